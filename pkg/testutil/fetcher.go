package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/fetch"
	"github.com/stretchr/testify/mock"
)

// StaticFetcher serves bodies from a URL map. Unknown URLs are NotFound.
type StaticFetcher struct {
	mu       sync.Mutex
	bodies   map[string]string
	requests []string
}

// NewStaticFetcher serves bodies keyed by URL.
func NewStaticFetcher(bodies map[string]string) *StaticFetcher {
	copied := make(map[string]string, len(bodies))
	for k, v := range bodies {
		copied[k] = v
	}
	return &StaticFetcher{bodies: copied}
}

// Fetch implements fetch.Fetcher.
func (f *StaticFetcher) Fetch(ctx context.Context, url string, w io.Writer, progress fetch.ProgressFunc) error {
	f.mu.Lock()
	f.requests = append(f.requests, url)
	body, ok := f.bodies[url]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrTransport, "request cancelled").WithDetail("url", url)
	}
	if !ok {
		return errors.Newf(errors.ErrNotFound, "%s not found", url).WithDetail("url", url)
	}
	if _, err := io.WriteString(fetch.NewProgressWriter(w, int64(len(body)), progress), body); err != nil {
		return errors.Wrap(err, errors.ErrTransport, "write failed")
	}
	return nil
}

// Requests returns the URLs fetched so far, in order.
func (f *StaticFetcher) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// Count returns how many times url was fetched.
func (f *StaticFetcher) Count(url string) int {
	n := 0
	for _, r := range f.Requests() {
		if r == url {
			n++
		}
	}
	return n
}

// MockFetcher is a testify mock of fetch.Fetcher. Set the body written on
// success with Run, or return an error.
type MockFetcher struct {
	mock.Mock
}

// Fetch implements fetch.Fetcher.
func (m *MockFetcher) Fetch(ctx context.Context, url string, w io.Writer, progress fetch.ProgressFunc) error {
	args := m.Called(ctx, url, w, progress)
	return args.Error(0)
}

// WriteBody returns a Run function that writes body to the writer argument.
func WriteBody(body string) func(args mock.Arguments) {
	return func(args mock.Arguments) {
		w := args.Get(2).(io.Writer)
		_, _ = io.WriteString(w, body)
	}
}
