package demo

import (
	"sync/atomic"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Stats accumulates message and byte counts for one side of a run. Its
// fields are written from a single goroutine each (the producer's or the
// consumer's loop) but read concurrently for reporting, hence the atomics.
type Stats struct {
	messages uint64
	bytes    uint64
	started  time.Time
}

func newStats() *Stats {
	return &Stats{started: time.Now()}
}

func (s *Stats) recordProduced(size int) {
	atomic.AddUint64(&s.messages, 1)
	atomic.AddUint64(&s.bytes, uint64(size))
}

// recordConsumed is recordProduced's counterpart, kept distinct so call
// sites read naturally from either side; both update the same counters.
func (s *Stats) recordConsumed(size int) {
	atomic.AddUint64(&s.messages, 1)
	atomic.AddUint64(&s.bytes, uint64(size))
}

func (s *Stats) producedBytes() uint64 {
	return atomic.LoadUint64(&s.bytes)
}

// Report formats a human-readable, locale-correct summary line for
// label's side of the exchange (e.g. "producer" or "consumer").
func Report(label string, s *Stats) string {
	p := message.NewPrinter(language.English)
	elapsed := time.Since(s.started)
	msgs := atomic.LoadUint64(&s.messages)
	bytes := atomic.LoadUint64(&s.bytes)

	var rate float64
	if elapsed > 0 {
		rate = float64(msgs) / elapsed.Seconds()
	}

	return p.Sprintf("%s: %d messages, %d bytes in %s (%.0f msg/s)",
		label, msgs, bytes, elapsed.Round(time.Millisecond), rate)
}
