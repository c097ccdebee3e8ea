// Package tarstream writes reproducible tar streams of files and directory
// trees. Two trees with the same names, contents, and file kinds produce
// byte-identical streams regardless of filesystem traversal order, owner,
// timestamps, or umask.
package tarstream

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Epoch is the modification time stamped on every entry.
var Epoch = time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	dirMode  = 0755
	fileMode = 0644
	execMode = 0755
)

// Member is a file or directory on disk and the name it takes in the stream.
type Member struct {
	SourcePath string
	Name       string
}

// Entry is a single filesystem object scheduled for the stream.
type Entry struct {
	Path string
	Name string
	Info fs.FileInfo
}

// Collect expands members into entries. Directories contribute their whole
// subtree. Entries of each member are sorted by name; members keep the
// order they were given in, and a name already collected is not repeated.
func Collect(members []Member) ([]Entry, error) {
	var entries []Entry
	seen := make(map[string]bool)

	for _, m := range members {
		name := path.Clean(filepath.ToSlash(m.Name))
		if name == "." || name == ".." || strings.HasPrefix(name, "../") || strings.HasPrefix(name, "/") {
			return nil, fmt.Errorf("invalid member name %q", m.Name)
		}

		root, err := os.Lstat(m.SourcePath)
		if err != nil {
			return nil, err
		}

		var memberEntries []Entry
		if !root.IsDir() {
			memberEntries = append(memberEntries, Entry{Path: m.SourcePath, Name: name, Info: root})
		} else {
			err = filepath.WalkDir(m.SourcePath, func(p string, d fs.DirEntry, walkErr error) error {
				if walkErr != nil {
					return walkErr
				}
				rel, err := filepath.Rel(m.SourcePath, p)
				if err != nil {
					return err
				}
				info, err := d.Info()
				if err != nil {
					return err
				}
				entryName := name
				if rel != "." {
					entryName = path.Join(name, filepath.ToSlash(rel))
				}
				memberEntries = append(memberEntries, Entry{Path: p, Name: entryName, Info: info})
				return nil
			})
			if err != nil {
				return nil, err
			}
		}

		sort.SliceStable(memberEntries, func(i, j int) bool {
			return memberEntries[i].Name < memberEntries[j].Name
		})

		for _, e := range memberEntries {
			if seen[e.Name] {
				continue
			}
			seen[e.Name] = true
			entries = append(entries, e)
		}
	}

	return entries, nil
}

// Header builds the normalized tar header for an entry.
func Header(e Entry) (*tar.Header, error) {
	hdr := &tar.Header{
		Name:    e.Name,
		ModTime: Epoch,
		Uid:     0,
		Gid:     0,
	}

	mode := e.Info.Mode()
	switch {
	case mode.IsDir():
		hdr.Typeflag = tar.TypeDir
		hdr.Name = e.Name + "/"
		hdr.Mode = dirMode
	case mode.IsRegular():
		hdr.Typeflag = tar.TypeReg
		hdr.Size = e.Info.Size()
		hdr.Mode = fileMode
		if mode.Perm()&0111 != 0 {
			hdr.Mode = execMode
		}
	case mode&fs.ModeSymlink != 0:
		target, err := os.Readlink(e.Path)
		if err != nil {
			return nil, err
		}
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = filepath.ToSlash(target)
		hdr.Mode = 0777
	default:
		return nil, fmt.Errorf("unsupported file type %s for %s", mode.Type(), e.Path)
	}

	return hdr, nil
}

// Write streams members into an uncompressed tar on w. The tar writer is
// closed (trailer written) but w is not.
func Write(w io.Writer, members []Member) error {
	entries, err := Collect(members)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(w)
	for _, e := range entries {
		if err := writeEntry(tw, e); err != nil {
			return err
		}
	}
	return tw.Close()
}

func writeEntry(tw *tar.Writer, e Entry) error {
	hdr, err := Header(e)
	if err != nil {
		return err
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if hdr.Typeflag != tar.TypeReg {
		return nil
	}

	f, err := os.Open(e.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	_, err = io.Copy(tw, f)
	return err
}
