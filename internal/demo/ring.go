package demo

import (
	"go.uber.org/zap"

	"github.com/wheelmem/memwheel/notify"
)

// Producer is the subset of wheel.Wheel / notify.Wheel the demo producer
// drives. *wheel.Wheel already satisfies it directly; notifyProducer
// adapts *notify.Wheel, which carries an extra notification-error return
// that a plain wheel doesn't have.
type Producer interface {
	Make(u uint32) (offset uint32, payload []byte, ok bool)
	Share(offset uint32)
}

// Consumer is the read-side counterpart of Producer.
type Consumer interface {
	Next() (offset uint32, payload []byte, userSize uint32, ok bool)
	Return(offset uint32) int
}

// notifyProducer adapts a *notify.Wheel to Producer, logging (never
// failing on) notification I/O errors: per spec.md §7 those are an
// auxiliary indicator, and a failed Post/Drain never corrupts ring state.
type notifyProducer struct {
	w   *notify.Wheel
	log *zap.SugaredLogger
}

func (p *notifyProducer) Make(u uint32) (uint32, []byte, bool) {
	offset, payload, ok, err := p.w.Make(u)
	if err != nil {
		p.log.Warnw("notification post/drain failed on make", zap.Error(err))
	}
	return offset, payload, ok
}

func (p *notifyProducer) Share(offset uint32) {
	if err := p.w.Share(offset); err != nil {
		p.log.Warnw("notification post failed on share", zap.Error(err))
	}
}

type notifyConsumer struct {
	w   *notify.Wheel
	log *zap.SugaredLogger
}

func (c *notifyConsumer) Next() (uint32, []byte, uint32, bool) {
	offset, payload, userSize, ok, err := c.w.Next()
	if err != nil {
		c.log.Warnw("notification drain failed on next", zap.Error(err))
	}
	return offset, payload, userSize, ok
}

func (c *notifyConsumer) Return(offset uint32) int {
	released, err := c.w.Return(offset)
	if err != nil {
		c.log.Warnw("notification post failed on return", zap.Error(err))
	}
	return released
}
