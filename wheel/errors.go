package wheel

import "errors"

// ErrBadSize is returned by Init, InitNotified, Open and OpenNotified when
// the caller's region cannot host a wheel: its length is not a multiple of
// A, it is smaller than two A-units, or it is large enough that
// aligned_capacity would not fit a 32-bit offset.
var ErrBadSize = errors.New("wheel: region size is not a valid wheel size")
