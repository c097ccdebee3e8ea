package catalog

import (
	"bufio"
	"context"
	"os"
	"sort"

	"github.com/arthur-debert/dataprov/pkg/dataset"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/registry"
)

// ParallelLines is the loaded form of a line-aligned corpus: the lines of
// each build, keyed by build path.
type ParallelLines map[string][]string

// Names lists the build paths in sorted order.
func (p ParallelLines) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParallelLinesLoader is the registry name of LoadParallelLines.
const ParallelLinesLoader = "parallel-lines"

func init() {
	if err := registry.RegisterLoader(ParallelLinesLoader, LoadParallelLines); err != nil {
		panic(err)
	}
}

// LoadParallelLines reads every build of d line by line.
func LoadParallelLines(ctx context.Context, d *dataset.Dataset) (interface{}, error) {
	out := make(ParallelLines)
	for _, b := range d.Builds() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines, err := readLines(b.AbsPath())
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrIOFailure, "cannot read %s", b.RelPath()).WithDetail("path", b.RelPath())
		}
		out[b.RelPath()] = lines
	}
	return out, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
