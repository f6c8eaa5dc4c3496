package demo

import "math/rand"

// magicByte prefixes every non-empty payload so the consumer has an
// immediate sanity check before re-deriving the full deterministic fill
// (spec.md §8 S6).
const magicByte = 0xA5

// newSizeSequence deterministically reproduces the same message-size
// sequence given the same seed, count and bounds, so producer and
// consumer processes (which do not share memory for anything but the
// wheel itself) agree on what each message should look like without
// exchanging the sequence explicitly.
func newSizeSequence(seed int64, count, min, max int) []int {
	rng := rand.New(rand.NewSource(seed))
	sizes := make([]int, count)
	span := max - min + 1
	for i := range sizes {
		sizes[i] = min + rng.Intn(span)
	}
	return sizes
}

// fillPayload writes the deterministic pattern for message index i into
// buf, which must already be sized correctly. An empty buffer is left
// untouched.
func fillPayload(buf []byte, i int) {
	if len(buf) == 0 {
		return
	}
	buf[0] = magicByte
	for j := 1; j < len(buf); j++ {
		buf[j] = byte(i + j)
	}
}

// verifyPayload reports whether buf matches fillPayload's pattern for
// message index i.
func verifyPayload(buf []byte, i int) bool {
	if len(buf) == 0 {
		return true
	}
	if buf[0] != magicByte {
		return false
	}
	for j := 1; j < len(buf); j++ {
		if buf[j] != byte(i+j) {
			return false
		}
	}
	return true
}
