// Package fetch downloads remote dataset sources.
package fetch

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/logging"
)

// UnknownTotal is passed as total to a ProgressFunc when the size is unknown.
const UnknownTotal int64 = -1

// DefaultTimeout bounds a whole download when no timeout is configured.
const DefaultTimeout = 30 * time.Minute

// DefaultUserAgent identifies dataprov to remote servers.
const DefaultUserAgent = "dataprov"

// ProgressFunc receives the bytes written so far and the expected total.
type ProgressFunc func(done, total int64)

// Fetcher writes the body behind url to w.
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer, progress ProgressFunc) error
}

// HTTPFetcher fetches over HTTP(S).
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPFetcher returns a fetcher whose requests time out after timeout.
// A zero timeout means DefaultTimeout; an empty agent means DefaultUserAgent.
func NewHTTPFetcher(timeout time.Duration, agent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if agent == "" {
		agent = DefaultUserAgent
	}
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: agent,
	}
}

// Fetch implements Fetcher. A 404 is reported as NotFound, every other
// failure as a transport error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, w io.Writer, progress ProgressFunc) error {
	logger := logging.GetLogger("fetch")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTransport, "invalid url %q", url).WithDetail("url", url)
	}
	req.Header.Set("User-Agent", f.UserAgent)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	logger.Debug().Str("url", url).Msg("Requesting")
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTransport, "request to %s failed", url).WithDetail("url", url)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Newf(errors.ErrNotFound, "%s not found", url).WithDetail("url", url)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return errors.Newf(errors.ErrTransport, "%s returned %s", url, resp.Status).
			WithDetail("url", url).
			WithDetail("status", resp.StatusCode)
	}

	total := resp.ContentLength
	if total < 0 {
		total = UnknownTotal
	}
	logger.Debug().Str("url", url).Str("size", Describe(total)).Msg("Receiving")

	n, err := io.Copy(NewProgressWriter(w, total, progress), resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return errors.Wrapf(err, errors.ErrTransport, "download of %s interrupted after %d bytes", url, n).
			WithDetail("url", url)
	}
	if total >= 0 && n != total {
		return errors.Newf(errors.ErrTransport, "download of %s truncated: got %d of %d bytes", url, n, total).
			WithDetail("url", url)
	}

	logger.Debug().Str("url", url).Int64("bytes", n).Msg("Downloaded")
	return nil
}

// ProgressWriter counts bytes written through it and reports them.
type ProgressWriter struct {
	w        io.Writer
	total    int64
	written  int64
	progress ProgressFunc
}

// NewProgressWriter wraps w. progress may be nil.
func NewProgressWriter(w io.Writer, total int64, progress ProgressFunc) *ProgressWriter {
	return &ProgressWriter{w: w, total: total, progress: progress}
}

func (p *ProgressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.progress != nil {
		p.progress(p.written, p.total)
	}
	return n, err
}

// Written returns the number of bytes written so far.
func (p *ProgressWriter) Written() int64 {
	return p.written
}

// IsCancelled reports whether err stems from context cancellation or deadline.
func IsCancelled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// Describe renders total for log lines.
func Describe(total int64) string {
	if total == UnknownTotal {
		return "unknown size"
	}
	return fmt.Sprintf("%d bytes", total)
}
