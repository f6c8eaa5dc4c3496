//go:build linux

package shm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Create allocates a fresh anonymous memfd of the given size and maps it
// MAP_SHARED into this process, ready for wheel.Init or wheel.InitNotified.
// name shows up in /proc/<pid>/fd for diagnostics only; it need not be
// unique. The memfd is not sealed, so the peer side may ftruncate further
// shrinks or grows if it wants to, though nothing in this package does.
func Create(name string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shm: size must be positive, got %d", size)
	}

	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("shm: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: ftruncate to %d: %w", size, err)
	}

	data, err := mmapShared(fd, size)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &Region{fd: fd, data: data}, nil
}

// Attach maps a region a peer created, given its file descriptor (received
// over fdpass.Recv or inherited across exec) and its exact size in bytes.
// The caller is expected to already know the size by some out-of-band
// agreement (a fixed config value, or a size exchanged before the fd
// itself); shm does not invent a handshake for it.
func Attach(fd int, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shm: size must be positive, got %d", size)
	}
	data, err := mmapShared(fd, size)
	if err != nil {
		return nil, err
	}
	return &Region{fd: fd, data: data}, nil
}

func mmapShared(fd, size int) ([]byte, error) {
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %d bytes: %w", size, err)
	}
	return data, nil
}

// Close unmaps the region and closes its file descriptor. Closing twice is
// a no-op.
func (r *Region) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var unmapErr error
	if r.data != nil {
		unmapErr = unix.Munmap(r.data)
	}
	closeErr := unix.Close(r.fd)

	if unmapErr != nil {
		return fmt.Errorf("shm: munmap: %w", unmapErr)
	}
	if closeErr != nil {
		return fmt.Errorf("shm: close fd %d: %w", r.fd, closeErr)
	}
	return nil
}
