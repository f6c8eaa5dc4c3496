//go:build linux

package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sys/unix"
)

// Reactor is the one concrete event-loop integration this repo ships
// (SPEC_FULL.md §4.10, C9): an epoll instance watching a notification
// handle's file descriptor for readability. It is a demo convenience, not
// part of the wheel/notify public contract, which leaves blocking
// discipline entirely to the caller.
type Reactor struct {
	epfd int
	fd   int
}

// NewReactor registers fd (a notify.Handle's FD()) for level-triggered
// readability on a fresh epoll instance.
func NewReactor(fd int) (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("demo: epoll_create1: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("demo: epoll_ctl add fd %d: %w", fd, err)
	}
	return &Reactor{epfd: epfd, fd: fd}, nil
}

// Close releases the epoll instance; it does not touch the registered fd.
func (r *Reactor) Close() error {
	return unix.Close(r.epfd)
}

// WaitReadable blocks until the reactor's fd becomes readable or ctx is
// done. It first retries a handful of times with a short exponential
// backoff (mirroring the bounded retry loop in the teacher's bird-adapter
// reconnect logic) under the theory that in a hot producer/consumer pair
// the wakeup is usually already pending by the time this is called; once
// that budget is spent it falls back to repeated 50 ms blocking
// epoll_wait calls, re-checking ctx between them.
func (r *Reactor) WaitReadable(ctx context.Context) error {
	b := backoff.ExponentialBackOff{
		InitialInterval:     time.Microsecond * 10,
		RandomizationFactor: 0.1,
		Multiplier:          2,
		MaxInterval:         time.Millisecond,
	}
	b.Reset()

	for attempt := 0; attempt < 8; attempt++ {
		ready, err := r.poll(0)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.NextBackOff()):
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ready, err := r.poll(50)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
	}
}

// poll runs a single epoll_wait with the given millisecond timeout
// (0 = return immediately, -1 would block forever; this never passes -1
// so ctx cancellation is always re-checked between calls).
func (r *Reactor) poll(timeoutMs int) (bool, error) {
	var events [1]unix.EpollEvent
	n, err := unix.EpollWait(r.epfd, events[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, fmt.Errorf("demo: epoll_wait: %w", err)
	}
	return n > 0, nil
}
