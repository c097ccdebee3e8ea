package cloud

import (
	"context"
	"os"
	"path"

	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/filesystem"
	"github.com/arthur-debert/dataprov/pkg/logging"
	"github.com/spf13/afero"
)

// FSTransport keeps objects as files on an afero filesystem. For file://
// URIs the object path is the URI path; for other schemes (mem://) it is
// /<bucket>/<key>.
type FSTransport struct {
	Remote afero.Fs
	Local  afero.Fs
}

// NewFileTransport serves file:// URIs from the local disk.
func NewFileTransport() *FSTransport {
	return &FSTransport{Remote: filesystem.NewOS(), Local: filesystem.NewOS()}
}

// NewMemoryTransport serves mem:// URIs from an in-memory tree. Local files
// still live on disk.
func NewMemoryTransport() *FSTransport {
	return &FSTransport{Remote: filesystem.NewMemory(), Local: filesystem.NewOS()}
}

func (t *FSTransport) objectPath(uri string) (string, error) {
	loc, err := parse(uri)
	if err != nil {
		return "", err
	}
	if loc.scheme == "file" {
		return loc.key, nil
	}
	return path.Join("/", loc.bucket, loc.key), nil
}

// Save implements Transport.
func (t *FSTransport) Save(ctx context.Context, localPath, remoteURI string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrTransport, "save cancelled").WithDetail("uri", remoteURI)
	}
	obj, err := t.objectPath(remoteURI)
	if err != nil {
		return err
	}

	n, err := filesystem.CopyFile(t.Local, localPath, t.Remote, obj)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(err, errors.ErrIOFailure, "cannot read %s", localPath).WithDetail("path", localPath)
		}
		return errors.Wrapf(err, errors.ErrTransport, "cannot save %s", remoteURI).WithDetail("uri", remoteURI)
	}

	logger := logging.GetLogger("cloud")
	logger.Debug().Str("uri", remoteURI).Int64("bytes", n).Msg("Saved object")
	return nil
}

// Load implements Transport.
func (t *FSTransport) Load(ctx context.Context, remoteURI, localPath string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrTransport, "load cancelled").WithDetail("uri", remoteURI)
	}
	obj, err := t.objectPath(remoteURI)
	if err != nil {
		return err
	}

	info, err := t.Remote.Stat(obj)
	if os.IsNotExist(err) {
		return errors.Newf(errors.ErrNotFound, "%s does not exist", remoteURI).WithDetail("uri", remoteURI)
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrTransport, "cannot stat %s", remoteURI).WithDetail("uri", remoteURI)
	}
	if info.IsDir() {
		return errors.Newf(errors.ErrNotFound, "%s is not an object", remoteURI).WithDetail("uri", remoteURI)
	}

	n, err := filesystem.CopyFile(t.Remote, obj, t.Local, localPath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTransport, "cannot load %s", remoteURI).WithDetail("uri", remoteURI)
	}

	logger := logging.GetLogger("cloud")
	logger.Debug().Str("uri", remoteURI).Int64("bytes", n).Msg("Loaded object")
	return nil
}
