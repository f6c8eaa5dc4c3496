package demo

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// RunConsumer drains exactly len(sizes) messages from ring, verifying each
// against fillPayload's pattern for its index, and returns the consumer's
// Stats. If
// reactor is non-nil it is used to block between polls instead of
// busy-spinning (the notified path, C9); otherwise the consumer spins,
// matching the plain wheel's contract that blocking is entirely up to the
// caller.
func RunConsumer(ctx context.Context, ring Consumer, reactor *Reactor, sizes []int, log *zap.SugaredLogger) (*Stats, error) {
	stats := newStats()

	for i, want := range sizes {
		offset, payload, userSize, ok := ring.Next()
		for !ok {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("demo: consumer cancelled after %d/%d messages: %w", i, len(sizes), err)
			}
			if reactor != nil {
				if err := reactor.WaitReadable(ctx); err != nil {
					return stats, fmt.Errorf("demo: consumer reactor wait: %w", err)
				}
			} else {
				runtime.Gosched()
			}
			offset, payload, userSize, ok = ring.Next()
		}

		if int(userSize) != want {
			return stats, fmt.Errorf("demo: message %d: expected size %d, got %d", i, want, userSize)
		}
		if !verifyPayload(payload, i) {
			return stats, fmt.Errorf("demo: message %d: payload mismatch", i)
		}

		ring.Return(offset)
		stats.recordConsumed(int(userSize))
	}

	log.Infow("consumer finished", "messages", len(sizes), "bytes", stats.producedBytes())
	return stats, nil
}
