package wheel

import (
	"sync/atomic"
	"unsafe"
)

// Header byte offsets within the first A bytes of a mapped region. See
// SPEC_FULL.md §3 for the full layout table and the rationale for splitting
// head_last into two overlapping views.
const (
	offAlignedCapacity = 0
	offHead            = 8
	offLast            = 12
	offHeadLast        = 8 // same eight bytes as offHead/offLast, read as one
	offIsReadable      = 16
	offIsWritable      = 17

	headerSize = A
)

// header is a typed, non-owning view over the first A bytes of a wheel's
// shared region. Every access goes through sync/atomic: two execution
// contexts with disjoint address spaces hold independent header values over
// the same bytes, coordinated only by the atomics below.
type header struct {
	alignedCapacity *atomic.Uint32
	head            *atomic.Uint32
	last            *atomic.Uint32
	headLast        *atomic.Uint64
	isReadable      *atomic.Uint8 // nil unless the wheel was opened as notified
	isWritable      *atomic.Uint8 // nil unless the wheel was opened as notified
}

func newHeader(region []byte, notified bool) header {
	base := unsafe.Pointer(&region[0])
	h := header{
		alignedCapacity: (*atomic.Uint32)(unsafe.Add(base, offAlignedCapacity)),
		head:            (*atomic.Uint32)(unsafe.Add(base, offHead)),
		last:            (*atomic.Uint32)(unsafe.Add(base, offLast)),
		headLast:        (*atomic.Uint64)(unsafe.Add(base, offHeadLast)),
	}
	if notified {
		h.isReadable = (*atomic.Uint8)(unsafe.Add(base, offIsReadable))
		h.isWritable = (*atomic.Uint8)(unsafe.Add(base, offIsWritable))
	}
	return h
}
