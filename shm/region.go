// Package shm establishes the shared-memory region a wheel lives in
// (SPEC_FULL.md §4.7, C5): creating a new anonymous, shareable memory
// object and mapping it, or attaching to one a peer process already
// created by way of its file descriptor.
package shm

import "errors"

// ErrClosed is returned by Bytes and FD when called on a Region that has
// already been closed. Closing a closed Region again returns nil.
var ErrClosed = errors.New("shm: region already closed")

// Region is a block of memory shared between processes, backed by a single
// memfd. Exactly one side calls Create; any process holding a copy of the
// resulting descriptor (inherited across fork, or passed over a Unix socket
// via the fdpass package) can Attach to the same memory.
type Region struct {
	fd     int
	data   []byte
	closed bool
}

// FD returns the region's underlying file descriptor, for passing to a peer
// with fdpass.Send or inheriting across exec.
func (r *Region) FD() (int, error) {
	if r.closed {
		return -1, ErrClosed
	}
	return r.fd, nil
}

// Bytes returns the mapped region. The slice is valid until Close.
func (r *Region) Bytes() ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}
	return r.data, nil
}

// Len returns the region's size in bytes, regardless of closed state.
func (r *Region) Len() int {
	return len(r.data)
}
