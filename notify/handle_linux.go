//go:build linux

package notify

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// writableBaseline is 2^64-2, the largest value an eventfd counter may hold
// without a subsequent write overflowing it (the kernel rejects a write
// that would push the counter past this). It is the "room indicator"
// baseline spec.md §4.1 calls for on the writable handle.
const writableBaseline = ^uint64(0) - 1

// eventfdHandle is a Handle backed by a Linux eventfd in its default
// (non-EFD_SEMAPHORE) mode: writes add to a 64-bit counter, and a read
// atomically returns the whole counter and resets it to zero. That combined
// with the gating in notify.Wheel (post/drain only on a 0<->1 flag
// transition) is exactly the "accumulate, never silently lose a post"
// property spec.md's rationale asks for.
type eventfdHandle struct {
	fd int
}

// newEventfdHandle creates a nonblocking, close-on-exec eventfd seeded with
// initval (which must fit a uint32; the kernel constructor accepts nothing
// wider).
func newEventfdHandle(initval uint32) (*eventfdHandle, error) {
	fd, err := unix.Eventfd(uint64(initval), unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("notify: create eventfd: %w", err)
	}
	return &eventfdHandle{fd: fd}, nil
}

// fromFD wraps an fd this process received from a peer (e.g. over
// fdpass.Recv) rather than one it created itself.
func fromFD(fd int) *eventfdHandle {
	return &eventfdHandle{fd: fd}
}

func (h *eventfdHandle) Post(units uint64) error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], units)
	for {
		_, err := unix.Write(h.fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("notify: post to eventfd %d: %w", h.fd, err)
		}
		return nil
	}
}

func (h *eventfdHandle) Drain() error {
	var buf [8]byte
	for {
		_, err := unix.Read(h.fd, buf[:])
		switch err {
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			// Nothing pending; the flag transition still happened.
			return nil
		case nil:
			return nil
		default:
			return fmt.Errorf("notify: drain eventfd %d: %w", h.fd, err)
		}
	}
}

func (h *eventfdHandle) FD() int { return h.fd }

func (h *eventfdHandle) Close() error {
	return unix.Close(h.fd)
}

// NewHandlePair creates a fresh readable/writable handle pair seeded from
// the notification flags' current values, per spec.md §4.1: the readable
// handle starts at isReadable (0 or 1), and the writable handle is seeded
// to 0 and then bumped to the large baseline minus isWritable, since a
// value that size doesn't fit the eventfd constructor's 32-bit initval.
func NewHandlePair(isReadable, isWritable uint8) (readable, writable Handle, err error) {
	r, err := newEventfdHandle(uint32(isReadable))
	if err != nil {
		return nil, nil, err
	}
	w, err := newEventfdHandle(0)
	if err != nil {
		r.Close()
		return nil, nil, err
	}
	if err := w.Post(writableBaseline - uint64(isWritable)); err != nil {
		r.Close()
		w.Close()
		return nil, nil, err
	}
	return r, w, nil
}

// FromFDs wraps two file descriptors received from the peer that called
// NewHandlePair, for init_notify_handles from spec.md §6.
func FromFDs(readableFD, writableFD int) (readable, writable Handle) {
	return fromFD(readableFD), fromFD(writableFD)
}
