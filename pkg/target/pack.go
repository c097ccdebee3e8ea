package target

import (
	"github.com/arthur-debert/dataprov/pkg/archive"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/hash"
	"github.com/arthur-debert/dataprov/pkg/paths"
)

// DefaultPackExtension is appended to a lone member's path when a pack
// declares no path of its own.
const DefaultPackExtension = ".pack.tgz"

// Pack is an archive aggregating other artifacts of the same dataset.
type Pack struct {
	*LocalTarget
	members []string
}

// NewPack builds a pack over members, which are paths relative to root.
// An empty relPath is only allowed with exactly one member.
func NewPack(relPath, root string, members []string, ref *hash.Reference) (*Pack, error) {
	if len(members) == 0 {
		return nil, errors.New(errors.ErrConfigValid, "pack must have at least one member").
			WithDetail("path", relPath)
	}

	cleaned := make([]string, len(members))
	for i, m := range members {
		if err := paths.ValidateRelative(m); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigValid, "invalid pack member %q", m).WithDetail("path", m)
		}
		cleaned[i] = paths.Clean(m)
	}

	if relPath == "" {
		if len(cleaned) != 1 {
			return nil, errors.Newf(errors.ErrConfigValid, "pack with %d members needs an explicit path", len(cleaned))
		}
		relPath = cleaned[0] + DefaultPackExtension
	}

	lt, err := NewLocalTarget(relPath, root, ref)
	if err != nil {
		return nil, err
	}
	for _, m := range cleaned {
		if m == lt.relPath {
			return nil, errors.Newf(errors.ErrConfigValid, "pack %s cannot contain itself", lt.relPath)
		}
	}
	return &Pack{LocalTarget: lt, members: cleaned}, nil
}

// Members returns the member paths in archive order.
func (p *Pack) Members() []string {
	out := make([]string, len(p.members))
	copy(out, p.members)
	return out
}

// Pack writes the archive. Directory members are archived whole, including
// files no build declares.
func (p *Pack) Pack(codec archive.Codec) error {
	members := make([]archive.Member, len(p.members))
	for i, m := range p.members {
		src, err := paths.Resolve(p.root, m)
		if err != nil {
			return err
		}
		members[i] = archive.Member{SourcePath: src, Name: m}
	}
	return codec.Create(p.AbsPath(), members)
}

// Unpack extracts the archive into the dataset root.
func (p *Pack) Unpack(codec archive.Codec) error {
	ok, err := codec.Extract(p.AbsPath(), p.root, archive.FormatAuto)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf(errors.ErrArchive, "%s is not a recognized archive", p.relPath).WithDetail("path", p.relPath)
	}
	return nil
}
