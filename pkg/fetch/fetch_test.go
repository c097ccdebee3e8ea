package fetch_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		switch r.URL.Path {
		case "/test.txt":
			_, _ = w.Write([]byte("test"))
		case "/broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := fetch.NewHTTPFetcher(5*time.Second, "dataprov-test")

	t.Run("downloads body and reports progress", func(t *testing.T) {
		var buf bytes.Buffer
		var lastDone, lastTotal int64
		err := f.Fetch(context.Background(), srv.URL+"/test.txt", &buf, func(done, total int64) {
			lastDone, lastTotal = done, total
		})
		require.NoError(t, err)
		assert.Equal(t, "test", buf.String())
		assert.Equal(t, int64(4), lastDone)
		assert.Equal(t, int64(4), lastTotal)
		assert.Equal(t, "dataprov-test", gotAgent)
	})

	t.Run("404 is not found", func(t *testing.T) {
		err := f.Fetch(context.Background(), srv.URL+"/missing", &bytes.Buffer{}, nil)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
		assert.Equal(t, srv.URL+"/missing", errors.GetErrorDetails(err)["url"])
	})

	t.Run("server error is transport", func(t *testing.T) {
		err := f.Fetch(context.Background(), srv.URL+"/broken", &bytes.Buffer{}, nil)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrTransport))
	})

	t.Run("cancelled context is transport", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := f.Fetch(ctx, srv.URL+"/test.txt", &bytes.Buffer{}, nil)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrTransport))
		assert.True(t, fetch.IsCancelled(err))
	})
}

func TestNewHTTPFetcherDefaults(t *testing.T) {
	f := fetch.NewHTTPFetcher(0, "")
	assert.Equal(t, fetch.DefaultTimeout, f.Client.Timeout)
	assert.Equal(t, fetch.DefaultUserAgent, f.UserAgent)
}

func TestProgressWriter(t *testing.T) {
	var buf bytes.Buffer
	var calls [][2]int64
	pw := fetch.NewProgressWriter(&buf, fetch.UnknownTotal, func(done, total int64) {
		calls = append(calls, [2]int64{done, total})
	})

	_, err := pw.Write([]byte("ab"))
	require.NoError(t, err)
	_, err = pw.Write([]byte("cde"))
	require.NoError(t, err)

	assert.Equal(t, int64(5), pw.Written())
	assert.Equal(t, [][2]int64{{2, -1}, {5, -1}}, calls)
	assert.Equal(t, "unknown size", fetch.Describe(fetch.UnknownTotal))
	assert.Equal(t, "5 bytes", fetch.Describe(5))
}
