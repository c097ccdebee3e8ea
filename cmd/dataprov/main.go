package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/arthur-debert/dataprov/internal/cli"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err)
		stop()
		os.Exit(1)
	}
}

// printError writes err to stderr with its code and details, one per line.
func printError(err error) {
	fmt.Fprintln(os.Stderr, ui.Error("Error: ")+err.Error())

	details := errors.GetErrorDetails(err)
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(os.Stderr, "  %s %v\n", ui.Muted(k+":"), details[k])
	}
}
