// Package fdpass passes open file descriptors between processes over a
// Unix domain socket, using SCM_RIGHTS ancillary data (SPEC_FULL.md §4.8,
// C7). It is how the consumer process gets the memfd backing the shared
// region, and the readable/writable eventfds, without either side needing
// a shared parent process or a filesystem path to rendezvous on.
package fdpass

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// maxFDsPerMessage bounds how much ancillary-data space Recv allocates; it
// is comfortably above the 3 descriptors (region, readable, writable) this
// module ever needs to pass in one message.
const maxFDsPerMessage = 8

// Send writes data as the ordinary payload of one Unix-socket message, with
// fds attached as SCM_RIGHTS ancillary data. The kernel duplicates each fd
// into the receiving process; closing them here afterward is the caller's
// choice, not a requirement.
func Send(conn *net.UnixConn, data []byte, fds ...int) error {
	oob := unix.UnixRights(fds...)
	n, oobn, err := conn.WriteMsgUnix(data, oob, nil)
	if err != nil {
		return fmt.Errorf("fdpass: sendmsg: %w", err)
	}
	if n != len(data) || oobn != len(oob) {
		return fmt.Errorf("fdpass: short sendmsg: wrote %d/%d bytes, %d/%d oob bytes", n, len(data), oobn, len(oob))
	}
	return nil
}

// Recv reads one message from conn into a buffer of up to maxLen bytes,
// returning the payload actually received alongside any file descriptors
// that arrived as SCM_RIGHTS ancillary data. The returned fds are already
// open in this process; the caller owns closing them. A payload longer than
// maxLen is reported as an error only on sockets that keep message
// boundaries (SOCK_SEQPACKET, SOCK_DGRAM); on a SOCK_STREAM connection the
// kernel does not flag truncation, so Recv returns the first maxLen bytes
// and the rest stays queued.
func Recv(conn *net.UnixConn, maxLen int) (data []byte, fds []int, err error) {
	buf := make([]byte, maxLen)
	oob := make([]byte, unix.CmsgSpace(maxFDsPerMessage*4))

	n, oobn, flags, _, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return nil, nil, fmt.Errorf("fdpass: recvmsg: %w", err)
	}
	if flags&unix.MSG_TRUNC != 0 {
		return nil, nil, fmt.Errorf("fdpass: message truncated, buffer of %d bytes too small", maxLen)
	}
	if flags&unix.MSG_CTRUNC != 0 {
		return nil, nil, fmt.Errorf("fdpass: ancillary data truncated, more than %d fds arrived", maxFDsPerMessage)
	}

	if oobn > 0 {
		scms, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil {
			return nil, nil, fmt.Errorf("fdpass: parse control message: %w", err)
		}
		for _, scm := range scms {
			got, err := unix.ParseUnixRights(&scm)
			if err != nil {
				continue // not an SCM_RIGHTS message; ignore
			}
			fds = append(fds, got...)
		}
	}

	return buf[:n], fds, nil
}

// CloseAll closes every fd in fds, continuing past individual errors and
// returning the first one encountered. It is meant for cleanup paths where
// a caller received fds via Recv but failed a later step.
func CloseAll(fds []int) error {
	var first error
	for _, fd := range fds {
		if err := unix.Close(fd); err != nil && first == nil {
			first = fmt.Errorf("fdpass: close fd %d: %w", fd, err)
		}
	}
	return first
}
