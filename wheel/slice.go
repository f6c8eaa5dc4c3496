package wheel

import (
	"sync/atomic"
	"unsafe"
)

// State is the lifecycle state of a slice header, from spec.md §3.
type State uint8

const (
	StateUninit   State = 0
	StateReadable State = 1
	StateReturned State = 2
)

// Byte offsets within a slice header, relative to the slice's own start
// offset (which is itself A-unit aligned within the region).
const (
	offTrailingUserSize  = 0
	offAlignedSizeInWheel = 4
	offState             = 8

	sliceHeaderSize = 16
)

// sliceHeader is a typed view over one slice's 16-byte header.
type sliceHeader struct {
	trailingUserSize   *atomic.Uint32
	alignedSizeInWheel *atomic.Uint32
	state              *atomic.Uint8
}

// sliceAt returns the header view for the slice starting at the given
// A-unit offset.
func (w *Wheel) sliceAt(offset uint32) sliceHeader {
	byteOff := A + A*int(offset)
	base := unsafe.Pointer(&w.region[byteOff])
	return sliceHeader{
		trailingUserSize:   (*atomic.Uint32)(unsafe.Add(base, offTrailingUserSize)),
		alignedSizeInWheel: (*atomic.Uint32)(unsafe.Add(base, offAlignedSizeInWheel)),
		state:              (*atomic.Uint8)(unsafe.Add(base, offState)),
	}
}

// payload returns the byte slice backing a slice's user data, bounded to
// exactly userSize bytes so a careless append can't spill into the next
// slice's header.
func (w *Wheel) payload(offset, userSize uint32) []byte {
	start := A + A*int(offset) + sliceHeaderSize
	end := start + int(userSize)
	return w.region[start:end:end]
}

// sliceUnits computes S = ceil((sliceHeaderSize + u) / A), reporting ok=false
// if the computation overflows a uint32 (spec.md's "S = 0" overflow case,
// made explicit here by doing the arithmetic in 64 bits first).
func sliceUnits(u uint32) (s uint32, ok bool) {
	total := uint64(sliceHeaderSize) + uint64(u)
	units := ceilDivA(total)
	if units == 0 || units > uint64(Invalid) {
		return 0, false
	}
	return uint32(units), true
}
