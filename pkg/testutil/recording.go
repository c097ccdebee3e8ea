package testutil

import (
	"context"
	"sync"

	"github.com/arthur-debert/dataprov/pkg/archive"
	"github.com/arthur-debert/dataprov/pkg/cloud"
	"github.com/spf13/afero"
)

// RecordingCodec delegates to a real codec and counts calls.
type RecordingCodec struct {
	archive.Codec

	mu       sync.Mutex
	extracts []string
	creates  []string
}

// NewRecordingCodec wraps the filesystem codec.
func NewRecordingCodec() *RecordingCodec {
	return &RecordingCodec{Codec: archive.New()}
}

// Extract implements archive.Codec.
func (c *RecordingCodec) Extract(archivePath, destDir string, policy archive.Format) (bool, error) {
	c.mu.Lock()
	c.extracts = append(c.extracts, archivePath)
	c.mu.Unlock()
	return c.Codec.Extract(archivePath, destDir, policy)
}

// Create implements archive.Codec.
func (c *RecordingCodec) Create(archivePath string, members []archive.Member) error {
	c.mu.Lock()
	c.creates = append(c.creates, archivePath)
	c.mu.Unlock()
	return c.Codec.Create(archivePath, members)
}

// Extracts returns the archives extracted so far.
func (c *RecordingCodec) Extracts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.extracts...)
}

// Creates returns the archives created so far.
func (c *RecordingCodec) Creates() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.creates...)
}

// RecordingTransport is an in-memory cloud that records calls.
type RecordingTransport struct {
	*cloud.FSTransport

	mu    sync.Mutex
	saves []string
	loads []string
}

// NewRecordingTransport returns an empty in-memory cloud for mem:// URIs.
func NewRecordingTransport() *RecordingTransport {
	return &RecordingTransport{FSTransport: cloud.NewMemoryTransport()}
}

// Save implements cloud.Transport.
func (t *RecordingTransport) Save(ctx context.Context, localPath, remoteURI string) error {
	t.mu.Lock()
	t.saves = append(t.saves, remoteURI)
	t.mu.Unlock()
	return t.FSTransport.Save(ctx, localPath, remoteURI)
}

// Load implements cloud.Transport.
func (t *RecordingTransport) Load(ctx context.Context, remoteURI, localPath string) error {
	t.mu.Lock()
	t.loads = append(t.loads, remoteURI)
	t.mu.Unlock()
	return t.FSTransport.Load(ctx, remoteURI, localPath)
}

// Saves returns the URIs saved so far.
func (t *RecordingTransport) Saves() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.saves...)
}

// Loads returns the URIs loaded so far.
func (t *RecordingTransport) Loads() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.loads...)
}

// Put stores content directly at the object path of a mem:// URI
// ("/<bucket>/<key>").
func (t *RecordingTransport) Put(objectPath string, content []byte) error {
	return afero.WriteFile(t.Remote, objectPath, content, 0644)
}

// Has reports whether the object path exists.
func (t *RecordingTransport) Has(objectPath string) bool {
	ok, _ := afero.Exists(t.Remote, objectPath)
	return ok
}
