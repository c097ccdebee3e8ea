package ui

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/arthur-debert/dataprov/pkg/dataset"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
)

// hashDocument wraps the entries so TOML gets a top-level table.
type hashDocument struct {
	Dataset string              `yaml:"dataset" json:"dataset" toml:"dataset"`
	Hashes  []dataset.HashEntry `yaml:"hashes" json:"hashes" toml:"hashes"`
}

// RenderHashes writes a hash listing for name in the given format.
func RenderHashes(w io.Writer, name string, entries []dataset.HashEntry, format Format) error {
	doc := hashDocument{Dataset: name, Hashes: entries}
	if doc.Hashes == nil {
		doc.Hashes = []dataset.HashEntry{}
	}

	switch format {
	case FormatTable:
		return renderHashTable(w, entries)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "cannot encode hashes as yaml")
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "cannot encode hashes as toml")
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "cannot encode hashes as json")
		}
		return nil
	default:
		return errors.Newf(errors.ErrInvalidInput, "unknown format %q", format)
	}
}

func renderHashTable(w io.Writer, entries []dataset.HashEntry) error {
	data := [][]string{{"PHASE", "PATH", "HASH", "STATUS"}}
	for _, e := range entries {
		hash := "-"
		if e.Hash != nil {
			hash = e.Hash.Algorithm + ":" + e.Hash.Value
		}
		data = append(data, []string{string(e.Phase), e.Path, hash, status(e)})
	}

	return RenderTable(w, data)
}

// RenderTable writes rows as a table whose first row is the header.
func RenderTable(w io.Writer, rows [][]string) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData(rows)).Srender()
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot render table")
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func status(e dataset.HashEntry) string {
	switch {
	case !e.Present:
		return Muted("missing")
	case e.Declared == nil:
		return Warn("undeclared")
	case e.Matches():
		return OK("ok")
	default:
		return Error("mismatch")
	}
}
