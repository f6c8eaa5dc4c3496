package demo

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// RunProducer writes len(sizes) messages into ring in order, filling each
// with fillPayload's deterministic pattern before calling Share. It spins
// on Make failures (the wheel is momentarily full) rather than sleeping,
// since under a real consumer that condition clears in microseconds.
func RunProducer(ctx context.Context, ring Producer, sizes []int, log *zap.SugaredLogger) (*Stats, error) {
	stats := newStats()

	for i, size := range sizes {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("demo: producer cancelled after %d/%d messages: %w", i, len(sizes), err)
		}

		var offset uint32
		var payload []byte
		spins := 0
		for {
			var ok bool
			offset, payload, ok = ring.Make(uint32(size))
			if ok {
				break
			}
			spins++
			if spins%4096 == 0 {
				runtime.Gosched()
			}
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("demo: producer cancelled while waiting for room: %w", err)
			}
		}

		fillPayload(payload, i)
		ring.Share(offset)
		stats.recordProduced(size)
	}

	log.Infow("producer finished", "messages", len(sizes), "bytes", stats.producedBytes())
	return stats, nil
}
