package wheel

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestWheel(t *testing.T, units int) (*Wheel, []byte) {
	t.Helper()
	region := make([]byte, A*units)
	w, err := Init(region)
	require.NoError(t, err)
	return w, region
}

// makeShare is a convenience that allocates, fills, and publishes one
// message in a single step, returning its offset.
func makeShare(t *testing.T, w *Wheel, payload []byte) uint32 {
	t.Helper()
	off, buf, ok := w.Make(uint32(len(payload)))
	require.True(t, ok, "make(%d) unexpectedly failed", len(payload))
	copy(buf, payload)
	w.Share(off)
	return off
}

func TestInit_RejectsBadSizes(t *testing.T) {
	_, err := Init(make([]byte, A)) // < 2A
	require.ErrorIs(t, err, ErrBadSize)

	_, err = Init(make([]byte, 3*A/2)) // not a multiple of A
	require.ErrorIs(t, err, ErrBadSize)

	_, err = Init(nil)
	require.ErrorIs(t, err, ErrBadSize)
}

func TestInit_SetsEmptyHeader(t *testing.T) {
	w, _ := newTestWheel(t, 32)
	require.Equal(t, uint32(31), w.AlignedCapacity())
	off, _, _, ok := w.Next()
	require.False(t, ok)
	require.Equal(t, Invalid, off)
}

// Property 1: round-trip integrity.
func TestRoundTrip(t *testing.T) {
	w, _ := newTestWheel(t, 64)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		n := rng.Intn(int(w.MaxUserSize()/4) + 1)
		msg := make([]byte, n)
		rng.Read(msg)

		off := makeShare(t, w, msg)

		gotOff, payload, u, ok := w.Next()
		require.True(t, ok)
		require.Equal(t, off, gotOff)
		require.Equal(t, uint32(n), u)
		require.Equal(t, msg, payload)

		require.Equal(t, 1, w.Return(gotOff))
	}
}

// Property 2: FIFO order.
func TestFIFO(t *testing.T) {
	w, _ := newTestWheel(t, 64)
	sizes := []int{3, 7, 11, 1, 5, 0, 9}

	var offsets []uint32
	for _, n := range sizes {
		msg := make([]byte, n)
		for i := range msg {
			msg[i] = byte(n)
		}
		offsets = append(offsets, makeShare(t, w, msg))
	}

	for _, want := range offsets {
		got, _, _, ok := w.Next()
		require.True(t, ok)
		require.Equal(t, want, got)
		w.Return(got)
	}
}

// Properties 3 & 4: containment and no-overlap, tracked across a run that
// forces repeated wraparound.
func TestContainmentAndNoOverlap(t *testing.T) {
	w, _ := newTestWheel(t, 16)
	cap := w.AlignedCapacity()
	rng := rand.New(rand.NewSource(2))

	type live struct {
		off, size uint32
	}
	var inFlight []live

	checkDisjoint := func() {
		owner := make([]int, cap)
		for i := range owner {
			owner[i] = -1
		}
		for idx, s := range inFlight {
			for u := uint32(0); u < s.size; u++ {
				pos := (s.off + u) % cap
				require.Equal(t, -1, owner[pos], "slice %d overlaps an existing live slice at unit %d", idx, pos)
				owner[pos] = idx
			}
		}
	}

	for i := 0; i < 500; i++ {
		if len(inFlight) > 0 && rng.Intn(3) == 0 {
			head := inFlight[0]
			w.Return(head.off)
			inFlight = inFlight[1:]
			continue
		}
		n := uint32(rng.Intn(40))
		off, _, ok := w.Make(n)
		if !ok {
			continue
		}
		w.Share(off)
		sh := w.sliceAt(off)
		inFlight = append(inFlight, live{off: off, size: sh.alignedSizeInWheel.Load()})
		checkDisjoint()
	}
}

// Property 5: emptiness consistency.
func TestEmptinessConsistency(t *testing.T) {
	w, _ := newTestWheel(t, 8)

	require.Equal(t, invalidPair, w.hdr.headLast.Load())

	off := makeShare(t, w, []byte("hi"))
	require.NotEqual(t, invalidPair, w.hdr.headLast.Load())

	require.Equal(t, 1, w.Return(off))
	require.Equal(t, invalidPair, w.hdr.headLast.Load())
}

// Property 7: idempotent return.
func TestIdempotentReturn(t *testing.T) {
	w, _ := newTestWheel(t, 8)
	off := makeShare(t, w, []byte("x"))

	require.Equal(t, 1, w.Return(off))
	require.Equal(t, 0, w.Return(off))
}

func TestBoundary_MakeZero(t *testing.T) {
	w, _ := newTestWheel(t, 2)
	off, payload, ok := w.Make(0)
	require.True(t, ok)
	require.Empty(t, payload)
	w.Share(off)

	_, _, u, ok := w.Next()
	require.True(t, ok)
	require.Equal(t, uint32(0), u)
}

func TestBoundary_MakeMaxUserSize(t *testing.T) {
	w, _ := newTestWheel(t, 4)
	max := w.MaxUserSize()

	off, payload, ok := w.Make(max)
	require.True(t, ok)
	require.Len(t, payload, int(max))
	w.Share(off)

	// Wheel is now full: nothing else fits, not even zero bytes, because
	// the slice header itself needs a whole A-unit of room.
	_, _, ok = w.Make(0)
	require.False(t, ok)
}

func TestBoundary_MakeOversizeAlwaysFails(t *testing.T) {
	w, _ := newTestWheel(t, 4)
	max := w.MaxUserSize()

	rawBefore := w.hdr.headLast.Load()
	_, _, ok := w.Make(max + 1)
	require.False(t, ok)
	require.Equal(t, rawBefore, w.hdr.headLast.Load())
}

// S2 — wrap with backfill. Region of 9 A-units (cap=8). Two 2-unit slices
// (A, B) and one 3-unit slice (C) fill [0,7); A is consumed, freeing head
// room of 2 units while C still ends at 7, one unit short of cap. A fourth
// 2-unit allocation doesn't fit in that 1-unit tail gap but does fit in the
// 2-unit front room, forcing a wrap to offset 0 and a backfill of C's
// aligned_size_in_wheel from 3 to 4 (absorbing the unit C left unreachable
// at the end of the buffer).
func TestScenario_S2_WrapWithBackfill(t *testing.T) {
	region := make([]byte, 9*A)
	w, err := Init(region)
	require.NoError(t, err)

	offA := makeShare(t, w, make([]byte, 64)) // S=2
	offB := makeShare(t, w, make([]byte, 64)) // S=2
	offC := makeShare(t, w, make([]byte, 128)) // S=3
	require.Equal(t, []uint32{0, 2, 4}, []uint32{offA, offB, offC})

	got, _, _, ok := w.Next()
	require.True(t, ok)
	require.Equal(t, offA, got)
	require.Equal(t, 1, w.Return(got))

	offD, _, ok := w.Make(64) // S=2; tail gap is only 1 unit, front room is 2
	require.True(t, ok)
	require.Equal(t, uint32(0), offD)

	shC := w.sliceAt(offC)
	require.Equal(t, uint32(4), shC.alignedSizeInWheel.Load())
}

// S1 — empty -> fill -> drain with a fixed message-size sequence.
func TestScenario_S1_EmptyFillDrain(t *testing.T) {
	region := make([]byte, 2048) // 32 A-units
	w, err := Init(region)
	require.NoError(t, err)

	sizes := []int{3, 7, 11, 1, 63, 0, 40, 12, 5, 17, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3}
	rng := rand.New(rand.NewSource(42))

	msgs := make([][]byte, len(sizes))
	for i, n := range sizes {
		msgs[i] = make([]byte, n)
		rng.Read(msgs[i])
	}

	var offs []uint32
	for _, m := range msgs {
		offs = append(offs, makeShare(t, w, m))
	}

	for i, wantOff := range offs {
		off, payload, u, ok := w.Next()
		require.True(t, ok)
		require.Equal(t, wantOff, off)
		require.Equal(t, uint32(len(msgs[i])), u)
		require.Equal(t, msgs[i], payload)
		require.Equal(t, 1, w.Return(off))
	}

	_, _, _, ok := w.Next()
	require.False(t, ok)
}

// S3 — full rejection, then room again after one consume.
func TestScenario_S3_FullRejection(t *testing.T) {
	w, _ := newTestWheel(t, 4)
	max := w.MaxUserSize()

	off, _, ok := w.Make(max)
	require.True(t, ok)
	w.Share(off)

	_, _, ok = w.Make(1)
	require.False(t, ok)

	require.Equal(t, 1, w.Return(off))

	_, _, ok = w.Make(max)
	require.True(t, ok)
}

// S4 — oversize rejection on a realistically sized buffer, state untouched.
func TestScenario_S4_OversizeRejection(t *testing.T) {
	region := make([]byte, 128*1024)
	w, err := Init(region)
	require.NoError(t, err)

	before := w.hdr.headLast.Load()
	_, _, ok := w.Make(256 * 1024)
	require.False(t, ok)
	require.Equal(t, before, w.hdr.headLast.Load())
}

// S6 — bulk soak: a concurrent producer and consumer exchanging a large
// number of small random messages, verified by a magic prefix and a total
// byte-count reconciliation. Scaled down under -short.
func TestScenario_S6_BulkSoak(t *testing.T) {
	n := 1_000_000
	if testing.Short() {
		n = 5_000
	}

	region := make([]byte, 1<<20)
	w, err := Init(region)
	require.NoError(t, err)

	const magic = 0xA5

	var produced, consumed uint64
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < n; i++ {
			size := rng.Intn(32)
			var off uint32
			var buf []byte
			var ok bool
			for {
				off, buf, ok = w.Make(uint32(size))
				if ok {
					break
				}
			}
			if size > 0 {
				buf[0] = magic
				for j := 1; j < size; j++ {
					buf[j] = byte(i + j)
				}
			}
			w.Share(off)
			atomic.AddUint64(&produced, uint64(size))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			var off uint32
			var payload []byte
			var u uint32
			var ok bool
			for {
				off, payload, u, ok = w.Next()
				if ok {
					break
				}
			}
			if u > 0 {
				require.Equal(t, byte(magic), payload[0])
				for j := 1; j < int(u); j++ {
					require.Equal(t, byte(i+j), payload[j])
				}
			}
			w.Return(off)
			atomic.AddUint64(&consumed, uint64(u))
		}
	}()

	wg.Wait()
	require.Equal(t, produced, consumed)
}
