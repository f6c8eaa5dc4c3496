package notify

import (
	"go.uber.org/multierr"

	"github.com/wheelmem/memwheel/wheel"
)

// Wheel wraps a *wheel.Wheel opened with wheel.InitNotified/OpenNotified,
// keeping the readable/writable handles coherent with the is_readable and
// is_writable flags per spec.md §4.6. All four methods carry a secondary
// error return for handle I/O failures (spec.md §7's "auxiliary
// indicator"): the primary result is always valid even when notifyErr is
// non-nil, since a failed notification never unwinds ring state.
type Wheel struct {
	core     *wheel.Wheel
	readable Handle
	writable Handle
}

// New wraps core, which must have been opened with InitNotified or
// OpenNotified, together with its two notification handles.
func New(core *wheel.Wheel, readable, writable Handle) *Wheel {
	return &Wheel{core: core, readable: readable, writable: writable}
}

// Core returns the wrapped wheel, for callers that need direct access
// (e.g. to read AlignedCapacity or MaxUserSize).
func (n *Wheel) Core() *wheel.Wheel { return n.core }

func (n *Wheel) Make(u uint32) (offset uint32, payload []byte, ok bool, notifyErr error) {
	offset, payload, ok = n.core.Make(u)
	if !ok && n.core.ExchangeWritable(0) == 1 {
		notifyErr = n.writable.Drain()
	}
	return offset, payload, ok, notifyErr
}

func (n *Wheel) Share(offset uint32) error {
	n.core.Share(offset)
	if n.core.ExchangeReadable(1) == 0 {
		return n.readable.Post(1)
	}
	return nil
}

func (n *Wheel) Next() (offset uint32, payload []byte, userSize uint32, ok bool, notifyErr error) {
	offset, payload, userSize, ok = n.core.Next()
	if !ok && n.core.ExchangeReadable(0) == 1 {
		notifyErr = n.readable.Drain()
	}
	return offset, payload, userSize, ok, notifyErr
}

func (n *Wheel) Return(offset uint32) (released int, notifyErr error) {
	released = n.core.Return(offset)
	if n.core.ExchangeWritable(1) == 0 {
		notifyErr = n.writable.Post(1)
	}
	return released, notifyErr
}

// ReadableFD and WritableFD return the underlying notification
// descriptors, for registering with a reactor (epoll, kqueue, ...).
func (n *Wheel) ReadableFD() int { return n.readable.FD() }
func (n *Wheel) WritableFD() int { return n.writable.FD() }

// Close closes both notification handles. It does not touch the
// underlying shared memory; that is shm.Region's job.
func (n *Wheel) Close() error {
	return multierr.Append(n.readable.Close(), n.writable.Close())
}
