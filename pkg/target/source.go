package target

import (
	"context"
	"io"
	"net/url"
	"path"

	"github.com/arthur-debert/dataprov/pkg/archive"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/fetch"
	"github.com/arthur-debert/dataprov/pkg/filesystem"
	"github.com/arthur-debert/dataprov/pkg/hash"
	"github.com/arthur-debert/dataprov/pkg/logging"
)

// Source is a target obtained by downloading URL.
type Source struct {
	*LocalTarget
	url     string
	extract archive.Format
}

// NewSource builds a source. An empty relPath is inferred from the last
// element of the URL path.
func NewSource(rawURL, relPath, root string, ref *hash.Reference, extract archive.Format) (*Source, error) {
	if rawURL == "" {
		return nil, errors.New(errors.ErrConfigValid, "source url cannot be empty")
	}
	if relPath == "" {
		inferred, err := PathFromURL(rawURL)
		if err != nil {
			return nil, err
		}
		relPath = inferred
	}
	if extract == "" {
		extract = archive.FormatAuto
	}

	lt, err := NewLocalTarget(relPath, root, ref)
	if err != nil {
		return nil, err
	}
	return &Source{LocalTarget: lt, url: rawURL, extract: extract}, nil
}

// PathFromURL returns the basename of the URL path.
func PathFromURL(rawURL string) (string, error) {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
		if p == "" {
			// http://test.txt parses as a host with no path.
			p = u.Host
		}
	}
	base := path.Base(p)
	if base == "." || base == "/" || base == "" {
		return "", errors.Newf(errors.ErrConfigValid, "cannot infer a path from url %q", rawURL).
			WithDetail("url", rawURL)
	}
	return base, nil
}

// URL returns the remote location.
func (s *Source) URL() string { return s.url }

// Extract returns the extraction policy.
func (s *Source) Extract() archive.Format { return s.extract }

// Fetch downloads the source into place. The body is staged next to the
// destination and only renamed over it once complete and, when checkHash is
// set, verified. Any failure leaves no partial file behind.
func (s *Source) Fetch(ctx context.Context, fetcher fetch.Fetcher, checkHash bool, progress fetch.ProgressFunc) error {
	logger := logging.GetLogger("target").With().Str("url", s.url).Str("path", s.relPath).Logger()

	if checkHash && s.hash == nil {
		return errors.Newf(errors.ErrMissingHashReference, "no hash declared for %s", s.relPath).
			WithDetail("path", s.relPath)
	}

	var fetchErr error
	write := func(w io.Writer) error {
		fetchErr = fetcher.Fetch(ctx, s.url, w, progress)
		return fetchErr
	}

	var verify func(string) error
	if checkHash {
		verify = func(staged string) error {
			actual, err := s.hash.Compute(staged)
			if err != nil {
				return errors.Wrapf(err, errors.ErrIOFailure, "cannot hash downloaded %s", s.relPath).
					WithDetail("path", s.relPath)
			}
			if actual != s.hash.Value() {
				return errors.Newf(errors.ErrFetchVerification, "downloaded %s does not match its %s hash", s.relPath, s.hash.Algorithm()).
					WithDetails(map[string]interface{}{
						"path":      s.relPath,
						"url":       s.url,
						"algorithm": string(s.hash.Algorithm()),
						"expected":  s.hash.Value(),
						"actual":    actual,
					})
			}
			return nil
		}
	}

	logger.Info().Msg("Fetching source")
	err := filesystem.WriteStaged(filesystem.NewOS(), s.AbsPath(), write, verify)
	switch {
	case err == nil:
		logger.Debug().Msg("Source fetched")
		return nil
	case fetchErr != nil:
		if errors.GetErrorCode(fetchErr) != errors.ErrUnknown {
			return fetchErr
		}
		return errors.Wrapf(fetchErr, errors.ErrTransport, "fetching %s failed", s.url).WithDetail("url", s.url)
	case errors.IsErrorCode(err, errors.ErrFetchVerification), errors.IsErrorCode(err, errors.ErrIOFailure):
		return err
	default:
		return errors.Wrapf(err, errors.ErrIOFailure, "cannot write %s", s.relPath).WithDetail("path", s.relPath)
	}
}
