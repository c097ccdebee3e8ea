package dataset

import (
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/target"
)

// Phase selects which targets ListHashes reports.
type Phase string

const (
	PhaseSource Phase = "source"
	PhaseBuild  Phase = "build"
	PhasePack   Phase = "pack"
	PhaseAll    Phase = "all"
)

// ParsePhase validates a phase name. An empty name means all.
func ParsePhase(name string) (Phase, error) {
	switch Phase(name) {
	case "":
		return PhaseAll, nil
	case PhaseSource, PhaseBuild, PhasePack, PhaseAll:
		return Phase(name), nil
	default:
		return "", errors.Newf(errors.ErrInvalidInput, "unknown phase %q (want source, build, pack or all)", name)
	}
}

// HashEntry is the on-disk hash of one target next to its declared hash.
type HashEntry struct {
	Phase    Phase     `yaml:"phase" json:"phase" toml:"phase"`
	Path     string    `yaml:"path" json:"path" toml:"path"`
	Present  bool      `yaml:"present" json:"present" toml:"present"`
	Hash     *HashSpec `yaml:"hash,omitempty" json:"hash,omitempty" toml:"hash,omitempty"`
	Declared *HashSpec `yaml:"declared,omitempty" json:"declared,omitempty" toml:"declared,omitempty"`
}

// Matches reports whether the target is present and equal to its declared
// hash. A target without a declared hash never matches.
func (e HashEntry) Matches() bool {
	return e.Present && e.Hash != nil && e.Declared != nil &&
		e.Hash.Value == e.Declared.Value && e.Hash.Algorithm == e.Declared.Algorithm
}

// ListHashes computes the true on-disk hash of every target of phase,
// ignoring whether it matches what was declared. Missing targets are
// reported as not present rather than failing the listing.
func (d *Dataset) ListHashes(phase Phase) ([]HashEntry, error) {
	var entries []HashEntry

	add := func(p Phase, targets []*target.LocalTarget) error {
		for _, t := range targets {
			entry := HashEntry{Phase: p, Path: t.RelPath(), Present: t.Exists()}
			if declared, ok := t.Hash(); ok {
				spec := HashSpecOf(declared)
				entry.Declared = &spec
			}
			if entry.Present {
				actual, err := t.ActualHash()
				if err != nil {
					return err
				}
				spec := HashSpecOf(actual)
				entry.Hash = &spec
			}
			entries = append(entries, entry)
		}
		return nil
	}

	for _, p := range []Phase{PhaseSource, PhaseBuild, PhasePack} {
		if phase != p && phase != PhaseAll {
			continue
		}
		if phase == PhaseAll && p == PhasePack && len(d.packs) == 0 {
			// the sources already listed are the pack
			continue
		}
		if err := add(p, d.Targets(p)); err != nil {
			return nil, err
		}
	}
	return entries, nil
}
