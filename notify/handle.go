// Package notify implements the notification layer (spec.md/SPEC_FULL.md
// §4.6, C4) on top of the wheel package, plus the Linux eventfd-backed
// counting-semaphore handles it needs (C6).
package notify

// Handle is a counting-semaphore file descriptor: Post adds to its internal
// counter, Drain atomically fetches-and-resets it to zero, and FD is the
// descriptor a reactor registers for readability. Implementations retry
// internally on EINTR; a Drain with nothing pending is not an error.
type Handle interface {
	Post(units uint64) error
	Drain() error
	FD() int
	Close() error
}
