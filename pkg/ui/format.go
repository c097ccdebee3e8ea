// Package ui renders dataprov results for people and for scripts: hash
// listings in several formats, dataset descriptions, and transfer progress.
package ui

import (
	"os"
	"strings"

	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Format selects how structured results are written.
type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
	FormatJSON  Format = "json"
)

// Formats lists every accepted format, table first.
var Formats = []Format{FormatTable, FormatYAML, FormatTOML, FormatJSON}

// ParseFormat parses a format name. An empty name means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatTable, nil
	case "yml":
		return FormatYAML, nil
	case FormatTable, FormatYAML, FormatTOML, FormatJSON:
		return f, nil
	default:
		return "", errors.Newf(errors.ErrInvalidInput, "unknown format %q (want table, yaml, toml or json)", s)
	}
}

// Interactive reports whether f is a color-capable terminal. NO_COLOR,
// pipes, redirects and ASCII-only terminals all count as not interactive.
func Interactive(f *os.File) bool {
	if f == nil || os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return termenv.NewOutput(f).ColorProfile() != termenv.Ascii
}
