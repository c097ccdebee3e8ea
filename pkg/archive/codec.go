// Package archive extracts source downloads and creates/extracts pack
// archives.
//
// Extraction sniffs the file content rather than trusting its name, so a
// plain file that merely looks like an archive by name is reported as
// "not an archive" instead of failing. Creation is reproducible: entries are
// written in sorted order with normalized headers (see internal/tarstream).
package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/filesystem"
	"github.com/arthur-debert/dataprov/pkg/internal/tarstream"
	"github.com/arthur-debert/dataprov/pkg/logging"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Member is a file or directory to add to an archive under Name.
type Member struct {
	SourcePath string
	Name       string
}

// Codec extracts and creates archives.
type Codec interface {
	// Extract unpacks archivePath into destDir using the first format of
	// policy that recognizes the file. It returns false, without error, when
	// no format recognizes it.
	Extract(archivePath, destDir string, policy Format) (bool, error)
	// Create writes an archive at archivePath holding members in order.
	Create(archivePath string, members []Member) error
}

// Local is the filesystem Codec.
type Local struct{}

// New returns the filesystem codec.
func New() *Local {
	return &Local{}
}

// Extract implements Codec.
func (c *Local) Extract(archivePath, destDir string, policy Format) (bool, error) {
	logger := logging.GetLogger("archive")

	if _, err := os.Stat(archivePath); err != nil {
		return false, errors.Wrapf(err, errors.ErrIOFailure, "cannot open %s", archivePath).
			WithDetail("path", archivePath)
	}

	for _, format := range policy.candidates() {
		var (
			match   func(string) bool
			extract func(string, string) error
		)
		switch format {
		case FormatTar:
			match, extract = isTar, extractTar
		case FormatZip:
			match, extract = isZip, extractZip
		case FormatGzip:
			match, extract = isGzip, extractGzip
		default:
			return false, errors.Newf(errors.ErrArchive, "unsupported extract format %q", string(format))
		}

		if !match(archivePath) {
			continue
		}

		logger.Debug().Str("archive", archivePath).Str("format", string(format)).Str("dest", destDir).Msg("Extracting")
		if err := extractStaged(archivePath, destDir, extract); err != nil {
			return false, errors.Wrapf(err, errors.ErrArchive, "extracting %s as %s", archivePath, format).
				WithDetail("path", archivePath)
		}
		return true, nil
	}

	logger.Debug().Str("archive", archivePath).Str("policy", string(policy)).Msg("Not an archive, nothing to extract")
	return false, nil
}

// extractStaged runs extract into a staging directory inside destDir and
// moves the result into destDir only once every member was written. The
// staging directory is removed in all cases.
func extractStaged(archivePath, destDir string, extract func(string, string) error) error {
	staging := filesystem.StagingPath(filepath.Join(destDir, ".extract"))
	if err := os.MkdirAll(staging, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "cannot create %s", staging)
	}
	defer func() {
		_ = os.RemoveAll(staging)
	}()

	root, err := filepath.EvalSymlinks(staging)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "cannot resolve %s", staging)
	}
	if err := extract(archivePath, root); err != nil {
		return err
	}
	if err := checkLinks(root); err != nil {
		return err
	}
	if err := promote(root, destDir); err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "cannot move extracted files into %s", destDir).
			WithDetail("path", destDir)
	}
	return nil
}

// Create implements Codec. The archive is staged next to archivePath and
// only moved into place once fully written.
func (c *Local) Create(archivePath string, members []Member) error {
	if len(members) == 0 {
		return errors.Newf(errors.ErrArchive, "no members to archive into %s", archivePath)
	}

	streamMembers := make([]tarstream.Member, len(members))
	for i, m := range members {
		streamMembers[i] = tarstream.Member{SourcePath: m.SourcePath, Name: m.Name}
	}

	layout := LayoutFor(archivePath)
	err := filesystem.WriteStaged(filesystem.NewOS(), archivePath, func(w io.Writer) error {
		if layout.Zip {
			return writeZip(w, streamMembers)
		}
		return writeTar(w, layout.Compression, streamMembers)
	}, nil)
	if err != nil {
		return errors.Wrapf(err, errors.ErrArchive, "creating %s", archivePath).WithDetail("path", archivePath)
	}
	return nil
}

func writeTar(w io.Writer, compression Compression, members []tarstream.Member) error {
	var cw io.WriteCloser
	switch compression {
	case CompressionNone:
		return tarstream.Write(w, members)
	case CompressionGzip:
		cw = gzip.NewWriter(w)
	case CompressionZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		cw = enc
	case CompressionLZ4:
		cw = lz4.NewWriter(w)
	}

	if err := tarstream.Write(cw, members); err != nil {
		_ = cw.Close()
		return err
	}
	return cw.Close()
}

func writeZip(w io.Writer, members []tarstream.Member) error {
	entries, err := tarstream.Collect(members)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	for _, e := range entries {
		hdr, err := tarstream.Header(e)
		if err != nil {
			return err
		}

		fh := &zip.FileHeader{
			Name:     hdr.Name,
			Method:   zip.Deflate,
			Modified: tarstream.Epoch,
		}
		fh.SetMode(os.FileMode(hdr.Mode) | e.Info.Mode().Type())
		if e.Info.IsDir() {
			fh.Method = zip.Store
		}

		fw, err := zw.CreateHeader(fh)
		if err != nil {
			return err
		}

		switch {
		case e.Info.Mode().IsRegular():
			if err := copyFileTo(fw, e.Path); err != nil {
				return err
			}
		case hdr.Linkname != "":
			if _, err := io.WriteString(fw, hdr.Linkname); err != nil {
				return err
			}
		}
	}
	return zw.Close()
}

func copyFileTo(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	_, err = io.Copy(w, f)
	return err
}
