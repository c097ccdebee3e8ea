package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dataprov/pkg/paths"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte("BZh")
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4   = []byte{0x04, 0x22, 0x4d, 0x18}
)

// openDecompressed opens path and wraps it in the decompressor its leading
// bytes call for. Unrecognized content is returned as is.
func openDecompressed(p string) (io.Reader, func(), error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, nil, err
	}

	br := bufio.NewReader(f)
	head, _ := br.Peek(4)

	closers := []func(){func() { _ = f.Close() }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var r io.Reader = br
	switch {
	case bytes.HasPrefix(head, magicGzip):
		gz, err := gzip.NewReader(br)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = gz.Close() })
		r = gz
	case bytes.HasPrefix(head, magicBzip2):
		r = bzip2.NewReader(br)
	case bytes.HasPrefix(head, magicZstd):
		dec, err := zstd.NewReader(br)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, dec.Close)
		r = dec
	case bytes.HasPrefix(head, magicLZ4):
		r = lz4.NewReader(br)
	}

	return r, closeAll, nil
}

func isTar(p string) bool {
	r, closeFn, err := openDecompressed(p)
	if err != nil {
		return false
	}
	defer closeFn()

	_, err = tar.NewReader(r).Next()
	return err == nil
}

func isZip(p string) bool {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return false
	}
	_ = zr.Close()
	return true
}

func isGzip(p string) bool {
	if !strings.HasSuffix(p, ".gz") {
		return false
	}
	f, err := os.Open(p)
	if err != nil {
		return false
	}
	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return false
	}
	_ = gz.Close()
	return true
}

// target resolves an archive member name under dest. ok is false for names
// that denote dest itself ("./"); a name escaping dest is an error.
func target(dest, name string) (string, bool, error) {
	cleaned := path.Clean(strings.TrimPrefix(filepath.ToSlash(name), "./"))
	if cleaned == "." || cleaned == "" {
		return "", false, nil
	}
	p, err := paths.Resolve(dest, cleaned)
	if err != nil {
		return "", false, fmt.Errorf("unsafe member %q: %w", name, err)
	}
	return p, true, nil
}

func extractTar(archivePath, dest string) error {
	r, closeFn, err := openDecompressed(archivePath)
	if err != nil {
		return err
	}
	defer closeFn()

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		p, ok, err := target(dest, hdr.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := mkdirUnder(dest, p); err != nil {
				return err
			}
		case tar.TypeReg, tar.TypeRegA:
			if err := writeFile(dest, p, tr, os.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := writeSymlink(dest, p, hdr.Linkname); err != nil {
				return err
			}
		case tar.TypeLink:
			src, ok, err := target(dest, hdr.Linkname)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("hard link %q has no target", hdr.Name)
			}
			if _, err := resolveUnder(dest, filepath.Dir(src)); err != nil {
				return err
			}
			if err := mkdirUnder(dest, filepath.Dir(p)); err != nil {
				return err
			}
			if err := replace(p); err != nil {
				return err
			}
			if err := os.Link(src, p); err != nil {
				return err
			}
		default:
			// device files, fifos and the like are not dataset content
		}
	}
}

func extractZip(archivePath, dest string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer func() {
		_ = zr.Close()
	}()

	for _, zf := range zr.File {
		p, ok, err := target(dest, zf.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		mode := zf.Mode()
		switch {
		case mode.IsDir():
			if err := mkdirUnder(dest, p); err != nil {
				return err
			}
		case mode&os.ModeSymlink != 0:
			link, err := readZipEntry(zf)
			if err != nil {
				return err
			}
			if err := writeSymlink(dest, p, string(link)); err != nil {
				return err
			}
		default:
			rc, err := zf.Open()
			if err != nil {
				return err
			}
			err = writeFile(dest, p, rc, mode.Perm())
			_ = rc.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func readZipEntry(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rc.Close()
	}()
	return io.ReadAll(rc)
}

// extractGzip decompresses name.gz into dest/name.
func extractGzip(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer func() {
		_ = gz.Close()
	}()

	name := strings.TrimSuffix(filepath.Base(archivePath), ".gz")
	return writeFile(dest, filepath.Join(dest, name), gz, 0644)
}

// writeFile writes r to p, a path under root.
func writeFile(root, p string, r io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0644
	}
	if err := mkdirUnder(root, filepath.Dir(p)); err != nil {
		return err
	}
	if err := replace(p); err != nil {
		return err
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeSymlink creates p pointing at linkname. The link is judged from the
// directory it really lands in, after following links already extracted.
func writeSymlink(root, p, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("symlink %s points to absolute path %q", p, linkname)
	}
	parent, err := resolveUnder(root, filepath.Dir(p))
	if err != nil {
		return err
	}
	if !paths.ContainsPath(root, filepath.Join(parent, filepath.FromSlash(linkname))) {
		return fmt.Errorf("symlink %s escapes extraction root", p)
	}
	if err := mkdirUnder(root, filepath.Dir(p)); err != nil {
		return err
	}
	if err := replace(p); err != nil {
		return err
	}
	return os.Symlink(linkname, p)
}

// mkdirUnder creates directory p after checking that it stays under root
// once existing links are followed.
func mkdirUnder(root, p string) error {
	if _, err := resolveUnder(root, p); err != nil {
		return err
	}
	return os.MkdirAll(p, 0755)
}

// resolveUnder returns the real location of p, following the symlinks on
// disk, and fails when that location is outside root. Components that do
// not exist yet cannot be links, so only the deepest existing ancestor is
// evaluated. root must itself be a resolved path.
func resolveUnder(root, p string) (string, error) {
	existing, rest := p, ""
	for {
		_, err := os.Lstat(existing)
		if err == nil {
			break
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", p, err)
	}
	resolved = filepath.Join(resolved, rest)
	if !paths.ContainsPath(root, resolved) {
		return "", fmt.Errorf("%s resolves outside extraction root", p)
	}
	return resolved, nil
}

// checkLinks fails if any symlink under root resolves outside it. Links are
// checked once extraction is over, since a later member can change what an
// earlier link points at. Dangling links are accepted.
func checkLinks(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		resolved, err := filepath.EvalSymlinks(p)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("symlink %s: %w", p, err)
		}
		if !paths.ContainsPath(root, resolved) {
			return fmt.Errorf("symlink %s escapes extraction root", p)
		}
		return nil
	})
}

// promote moves the entries of staged into dest. Directories present on
// both sides are merged; any other existing entry is replaced.
func promote(staged, dest string) error {
	entries, err := os.ReadDir(staged)
	if err != nil {
		return err
	}
	for _, e := range entries {
		src := filepath.Join(staged, e.Name())
		dst := filepath.Join(dest, e.Name())

		info, err := os.Lstat(dst)
		switch {
		case err == nil && e.IsDir() && info.IsDir():
			if err := promote(src, dst); err != nil {
				return err
			}
			continue
		case err == nil:
			if err := os.RemoveAll(dst); err != nil {
				return err
			}
		case !os.IsNotExist(err):
			return err
		}
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// replace removes a non-directory at p so it can be rewritten.
func replace(p string) error {
	info, err := os.Lstat(p)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", p)
	}
	return os.Remove(p)
}
