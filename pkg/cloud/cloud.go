// Package cloud stores and retrieves pack objects in blob storage.
//
// A Transport moves single files between the local disk and a remote URI.
// Which backend serves a URI is decided by its scheme: gs:// goes to Google
// Cloud Storage, file:// (or a bare path) to a directory tree, and mem:// to
// an in-process filesystem used by tests.
package cloud

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/paths"
)

// Transport saves and loads single objects.
type Transport interface {
	// Save uploads localPath to remoteURI, replacing any existing object.
	Save(ctx context.Context, localPath, remoteURI string) error
	// Load downloads remoteURI to localPath. A missing object yields a
	// NotFound error and leaves localPath untouched.
	Load(ctx context.Context, remoteURI, localPath string) error
}

// Join appends a relative artifact path to a cloud root using forward
// slashes, whatever the host separator.
func Join(root, rel string) (string, error) {
	if err := paths.ValidateRelative(rel); err != nil {
		return "", err
	}
	if root == "" {
		return "", errors.New(errors.ErrConfigValid, "cloud root is not configured")
	}
	return strings.TrimRight(root, "/") + "/" + paths.Clean(rel), nil
}

// location is a parsed remote URI.
type location struct {
	scheme string
	bucket string
	key    string
}

func parse(uri string) (location, error) {
	if uri == "" {
		return location{}, errors.New(errors.ErrInvalidInput, "empty cloud uri")
	}
	if !strings.Contains(uri, "://") {
		return location{scheme: "file", key: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return location{}, errors.Wrapf(err, errors.ErrInvalidInput, "invalid cloud uri %q", uri).WithDetail("uri", uri)
	}

	loc := location{scheme: strings.ToLower(u.Scheme), bucket: u.Host}
	switch loc.scheme {
	case "file":
		loc.key = path.Join(u.Host, u.Path)
		if !strings.HasPrefix(loc.key, "/") {
			loc.key = "/" + loc.key
		}
		loc.bucket = ""
	default:
		loc.key = strings.TrimPrefix(u.Path, "/")
		if loc.bucket == "" || loc.key == "" {
			return location{}, errors.Newf(errors.ErrInvalidInput, "cloud uri %q needs a bucket and an object name", uri).
				WithDetail("uri", uri)
		}
	}
	return loc, nil
}

// Scheme returns the lower-cased scheme of uri, "file" for bare paths.
func Scheme(uri string) (string, error) {
	loc, err := parse(uri)
	if err != nil {
		return "", err
	}
	return loc.scheme, nil
}
