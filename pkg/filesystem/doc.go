// Package filesystem provides the afero-backed filesystems dataprov moves
// artifacts through, and staged writes that never leave a partial or
// unverified file at a destination path.
//
// The OS filesystem backs dataset roots; the in-memory filesystem backs
// tests and the mem:// cloud transport.
package filesystem
