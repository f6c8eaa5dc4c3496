// Package wheel implements a lock-free single-producer/single-consumer ring
// of variable-sized byte slices over a fixed shared-memory region. Every
// internal reference is an offset scaled by A, never a pointer, so the
// structure stays valid across two processes mapping the same region at
// different virtual addresses. See SPEC_FULL.md for the full design.
package wheel

// Wheel is a lock-free SPSC ring over a shared-memory region. Exactly one
// goroutine (in one process) may call Make/Share; exactly one goroutine (in
// the same or another process) may call Next/Return. Calling Make/Share
// from more than one goroutine concurrently, or Next/Return from more than
// one, is undefined behavior, per spec.md §7.
type Wheel struct {
	region []byte
	hdr    header
}

func validateRegion(region []byte) error {
	n := len(region)
	if n == 0 || n%A != 0 || n < 2*A {
		return ErrBadSize
	}
	// n < A * 2^32, i.e. aligned_capacity = n/A - 1 must fit in a uint32.
	if uint64(n) >= uint64(A)*(uint64(1)<<32) {
		return ErrBadSize
	}
	return nil
}

// Init writes a fresh, empty wheel header into region and returns a Wheel
// bound to it. The caller owns region's lifetime; Init never retains
// anything beyond the slice header itself.
func Init(region []byte) (*Wheel, error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	w := &Wheel{region: region, hdr: newHeader(region, false)}
	w.hdr.alignedCapacity.Store(uint32(len(region)/A - 1))
	w.hdr.headLast.Store(invalidPair)
	return w, nil
}

// InitNotified is Init plus the extra header fields the notify package
// needs: is_readable=0, is_writable=1.
func InitNotified(region []byte) (*Wheel, error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	w := &Wheel{region: region, hdr: newHeader(region, true)}
	w.hdr.alignedCapacity.Store(uint32(len(region)/A - 1))
	w.hdr.headLast.Store(invalidPair)
	w.hdr.isReadable.Store(0)
	w.hdr.isWritable.Store(1)
	return w, nil
}

// Open wraps a region that some other call to Init has already initialized,
// without rewriting its header. This is how the peer process that did not
// create the wheel obtains a *Wheel over it.
func Open(region []byte) (*Wheel, error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	return &Wheel{region: region, hdr: newHeader(region, false)}, nil
}

// OpenNotified is Open for a region initialized with InitNotified.
func OpenNotified(region []byte) (*Wheel, error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	return &Wheel{region: region, hdr: newHeader(region, true)}, nil
}

// AlignedCapacity returns the wheel's usable capacity, in A-units.
func (w *Wheel) AlignedCapacity() uint32 {
	return w.hdr.alignedCapacity.Load()
}

// MaxUserSize returns the largest payload a single Make call can ever
// succeed with: A*aligned_capacity - sizeof(slice header).
func (w *Wheel) MaxUserSize() uint32 {
	cap := uint64(w.hdr.alignedCapacity.Load())
	return uint32(cap*A - sliceHeaderSize)
}

// Make allocates a slice able to hold u user bytes and returns its offset
// together with a []byte view of the writable payload region. ok is false
// if u overflows the addressable size or there is currently no room; no
// state is mutated on failure.
func (w *Wheel) Make(u uint32) (offset uint32, payload []byte, ok bool) {
	cap := w.hdr.alignedCapacity.Load()
	s, sizeOK := sliceUnits(u)
	if !sizeOK || s > cap {
		return Invalid, nil, false
	}

	for {
		raw := w.hdr.headLast.Load()

		var o uint32
		if raw == invalidPair {
			// Empty wheel: we already checked s <= cap above.
			o = 0
		} else {
			head, last := unpackPair(raw)
			lastHdr := w.sliceAt(last)
			lastEnd := last + lastHdr.alignedSizeInWheel.Load()

			switch {
			case last < head: // wrapped: live region occupies [head,cap) U [0,lastEnd)
				if s > head-lastEnd {
					return Invalid, nil, false
				}
				o = lastEnd
			default: // non-wrapped: live region occupies [head, lastEnd)
				if s <= cap-lastEnd {
					o = lastEnd
				} else if s <= head {
					o = 0 // wraps to the front
				} else {
					return Invalid, nil, false
				}
			}

			if o == 0 && lastEnd != cap {
				// Backfill: absorb the unreachable tail gap into the slice
				// we're about to leave behind, so the consumer can still
				// walk it contiguously to reach the wrap point.
				lastHdr.alignedSizeInWheel.Store(cap - last)
			}
		}

		newHdr := w.sliceAt(o)
		newHdr.trailingUserSize.Store(u)
		newHdr.alignedSizeInWheel.Store(s)
		newHdr.state.Store(uint8(StateUninit))

		if raw == invalidPair {
			// Uncontested: only the producer can move the wheel out of
			// the empty state, so no CAS is needed here.
			w.hdr.headLast.Store(packPair(o, o))
			return o, w.payload(o, u), true
		}

		head, _ := unpackPair(raw)
		if w.hdr.headLast.CompareAndSwap(raw, packPair(head, o)) {
			return o, w.payload(o, u), true
		}
		// The consumer moved head (or emptied the wheel) concurrently;
		// reload and recompute from scratch. last never changes except by
		// us, so this converges: each retry either succeeds or observes a
		// wheel the consumer has just emptied, landing in the uncontested
		// branch above.
	}
}

// Share publishes offset (as returned by Make) for the consumer to see,
// with ordering sufficient to also publish every byte written into its
// payload between Make and Share.
func (w *Wheel) Share(offset uint32) {
	sh := w.sliceAt(offset)
	sh.state.Store(uint8(StateReadable))
}

// Next peeks at the oldest shared slice without consuming it. Calling Next
// repeatedly without an intervening Return is safe and returns the same
// slice each time.
func (w *Wheel) Next() (offset uint32, payload []byte, userSize uint32, ok bool) {
	head := w.hdr.head.Load()
	if head == Invalid {
		return Invalid, nil, 0, false
	}
	sh := w.sliceAt(head)
	if State(sh.state.Load()) != StateReadable {
		return Invalid, nil, 0, false
	}
	u := sh.trailingUserSize.Load()
	return head, w.payload(head, u), u, true
}

// Return releases the slice at offset (as returned by Next), then advances
// head past any contiguous run of already-returned slices. It reports how
// many slices were freed from the ring by this call; calling Return twice
// on the same offset is a no-op the second time and returns 0.
func (w *Wheel) Return(offset uint32) int {
	sh := w.sliceAt(offset)
	if State(sh.state.Swap(uint8(StateReturned))) == StateReturned {
		return 0
	}

	// released counts slices the head pointer actually advances past in
	// this call, not merely the one whose state we just flipped: a slice
	// returned out of order (offset != head) stays invisible to the ring
	// until head catches up to it in some later call.
	released := 0
	for {
		raw := w.hdr.headLast.Load()
		if raw == invalidPair {
			break
		}
		head, last := unpackPair(raw)

		headHdr := w.sliceAt(head)
		if State(headHdr.state.Load()) != StateReturned {
			break
		}

		if head == last {
			if w.hdr.headLast.CompareAndSwap(raw, invalidPair) {
				released++
				break
			}
			// The producer published a new slice between our load and
			// this CAS; head_last is no longer (head, head). Reload.
			continue
		}

		cap := w.hdr.alignedCapacity.Load()
		nextHead := (head + headHdr.alignedSizeInWheel.Load()) % cap
		w.hdr.head.Store(nextHead)
		released++
	}

	return released
}
