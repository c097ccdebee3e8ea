package cloud

import (
	"context"

	"github.com/arthur-debert/dataprov/pkg/errors"
)

// Router dispatches each URI to the transport registered for its scheme.
type Router struct {
	transports map[string]Transport
}

// NewRouter returns a router with file:// and gs:// registered.
func NewRouter() *Router {
	r := &Router{transports: make(map[string]Transport)}
	r.Register("file", NewFileTransport())
	r.Register("gs", NewGCSTransport())
	return r
}

// Register sets the transport for scheme, replacing any previous one.
func (r *Router) Register(scheme string, t Transport) {
	r.transports[scheme] = t
}

func (r *Router) route(uri string) (Transport, error) {
	scheme, err := Scheme(uri)
	if err != nil {
		return nil, err
	}
	t, ok := r.transports[scheme]
	if !ok {
		return nil, errors.Newf(errors.ErrConfigValid, "no cloud transport for scheme %q", scheme).WithDetail("uri", uri)
	}
	return t, nil
}

// Save implements Transport.
func (r *Router) Save(ctx context.Context, localPath, remoteURI string) error {
	t, err := r.route(remoteURI)
	if err != nil {
		return err
	}
	return t.Save(ctx, localPath, remoteURI)
}

// Load implements Transport.
func (r *Router) Load(ctx context.Context, remoteURI, localPath string) error {
	t, err := r.route(remoteURI)
	if err != nil {
		return err
	}
	return t.Load(ctx, remoteURI, localPath)
}
