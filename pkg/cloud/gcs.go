package cloud

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/filesystem"
	"github.com/arthur-debert/dataprov/pkg/logging"
)

// GCSTransport stores objects in Google Cloud Storage. The client is created
// on first use with application default credentials.
type GCSTransport struct {
	once    sync.Once
	client  *storage.Client
	initErr error
}

// NewGCSTransport returns a GCS transport. No connection is made yet.
func NewGCSTransport() *GCSTransport {
	return &GCSTransport{}
}

// NewGCSTransportWithClient uses an existing client.
func NewGCSTransportWithClient(client *storage.Client) *GCSTransport {
	t := &GCSTransport{client: client}
	t.once.Do(func() {})
	return t
}

func (t *GCSTransport) bucket(ctx context.Context, loc location) (*storage.ObjectHandle, error) {
	t.once.Do(func() {
		t.client, t.initErr = storage.NewClient(ctx)
	})
	if t.initErr != nil {
		return nil, errors.Wrap(t.initErr, errors.ErrTransport, "cannot create storage client")
	}
	return t.client.Bucket(loc.bucket).Object(loc.key), nil
}

func gcsLocation(uri string) (location, error) {
	loc, err := parse(uri)
	if err != nil {
		return location{}, err
	}
	if loc.scheme != "gs" {
		return location{}, errors.Newf(errors.ErrInvalidInput, "not a gs:// uri: %q", uri).WithDetail("uri", uri)
	}
	return loc, nil
}

// Save implements Transport.
func (t *GCSTransport) Save(ctx context.Context, localPath, remoteURI string) error {
	loc, err := gcsLocation(remoteURI)
	if err != nil {
		return err
	}
	obj, err := t.bucket(ctx, loc)
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "cannot read %s", localPath).WithDetail("path", localPath)
	}
	defer func() {
		_ = f.Close()
	}()

	w := obj.NewWriter(ctx)
	n, err := io.Copy(w, f)
	if err != nil {
		_ = w.Close()
		return errors.Wrapf(err, errors.ErrTransport, "cannot upload %s", remoteURI).WithDetail("uri", remoteURI)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrTransport, "cannot upload %s", remoteURI).WithDetail("uri", remoteURI)
	}

	logger := logging.GetLogger("cloud")
	logger.Debug().Str("uri", remoteURI).Int64("bytes", n).Msg("Uploaded object")
	return nil
}

// Load implements Transport.
func (t *GCSTransport) Load(ctx context.Context, remoteURI, localPath string) error {
	loc, err := gcsLocation(remoteURI)
	if err != nil {
		return err
	}
	obj, err := t.bucket(ctx, loc)
	if err != nil {
		return err
	}

	r, err := obj.NewReader(ctx)
	if stderrors.Is(err, storage.ErrObjectNotExist) || stderrors.Is(err, storage.ErrBucketNotExist) {
		return errors.Newf(errors.ErrNotFound, "%s does not exist", remoteURI).WithDetail("uri", remoteURI)
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrTransport, "cannot open %s", remoteURI).WithDetail("uri", remoteURI)
	}
	defer func() {
		_ = r.Close()
	}()

	var n int64
	err = filesystem.WriteStaged(filesystem.NewOS(), localPath, func(w io.Writer) error {
		var copyErr error
		n, copyErr = io.Copy(w, r)
		return copyErr
	}, nil)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTransport, "cannot download %s", remoteURI).WithDetail("uri", remoteURI)
	}

	logger := logging.GetLogger("cloud")
	logger.Debug().Str("uri", remoteURI).Int64("bytes", n).Msg("Downloaded object")
	return nil
}
