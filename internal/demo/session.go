package demo

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wheelmem/memwheel/fdpass"
	"github.com/wheelmem/memwheel/notify"
	"github.com/wheelmem/memwheel/shm"
	"github.com/wheelmem/memwheel/wheel"
)

// RunProducerSide creates the shared region (and, if cfg.Notify, a
// notification handle pair), hands everything to the peer over conn via
// fdpass, then runs the producer loop to completion. It owns and closes
// the region and any handles it created, aggregating their close errors
// with multierr the way the teacher's gateway shutdown path does.
func RunProducerSide(ctx context.Context, cfg *Config, conn *net.UnixConn, log *zap.SugaredLogger) (stats *Stats, err error) {
	sizes, err := cfg.MessageSizes()
	if err != nil {
		return nil, err
	}

	region, err := shm.Create("memwheel-demo", int(cfg.RegionSize))
	if err != nil {
		return nil, fmt.Errorf("demo: create region: %w", err)
	}
	defer func() { err = multierr.Append(err, region.Close()) }()

	data, err := region.Bytes()
	if err != nil {
		return nil, err
	}

	var producer Producer
	fds := []int{}
	regionFD, err := region.FD()
	if err != nil {
		return nil, err
	}
	fds = append(fds, regionFD)

	var readable, writable notify.Handle
	if cfg.Notify {
		var core *wheel.Wheel
		core, err = wheel.InitNotified(data)
		if err != nil {
			return nil, fmt.Errorf("demo: init notified wheel: %w", err)
		}
		readable, writable, err = notify.NewHandlePair(core.IsReadable(), core.IsWritable())
		if err != nil {
			return nil, fmt.Errorf("demo: create notify handles: %w", err)
		}
		defer func() { err = multierr.Append(err, readable.Close()) }()
		defer func() { err = multierr.Append(err, writable.Close()) }()
		fds = append(fds, readable.FD(), writable.FD())
		producer = &notifyProducer{w: notify.New(core, readable, writable), log: log}
	} else {
		core, err := wheel.Init(data)
		if err != nil {
			return nil, fmt.Errorf("demo: init wheel: %w", err)
		}
		producer = core
	}

	handshake := Handshake{RegionSize: int(cfg.RegionSize), Notify: cfg.Notify}
	payload, err := handshake.marshal()
	if err != nil {
		return nil, fmt.Errorf("demo: marshal handshake: %w", err)
	}
	if err := fdpass.Send(conn, payload, fds...); err != nil {
		return nil, fmt.Errorf("demo: send handshake: %w", err)
	}

	return RunProducer(ctx, producer, sizes, log)
}

// RunConsumerSide receives the region and notification fds from conn,
// attaches to them, and runs the consumer loop to completion.
func RunConsumerSide(ctx context.Context, cfg *Config, conn *net.UnixConn, log *zap.SugaredLogger) (stats *Stats, err error) {
	sizes, err := cfg.MessageSizes()
	if err != nil {
		return nil, err
	}

	payload, fds, err := fdpass.Recv(conn, 4096)
	if err != nil {
		return nil, fmt.Errorf("demo: receive handshake: %w", err)
	}
	if len(fds) == 0 {
		return nil, fmt.Errorf("demo: handshake carried no file descriptors")
	}
	handshake, err := unmarshalHandshake(payload)
	if err != nil {
		return nil, fmt.Errorf("demo: unmarshal handshake: %w", err)
	}

	region, err := shm.Attach(fds[0], handshake.RegionSize)
	if err != nil {
		return nil, fmt.Errorf("demo: attach region: %w", err)
	}
	defer func() { err = multierr.Append(err, region.Close()) }()

	data, err := region.Bytes()
	if err != nil {
		return nil, err
	}

	var consumer Consumer
	var reactor *Reactor
	if handshake.Notify {
		if len(fds) < 3 {
			return nil, fmt.Errorf("demo: notified handshake carried %d fds, want 3", len(fds))
		}
		var core *wheel.Wheel
		core, err = wheel.OpenNotified(data)
		if err != nil {
			return nil, fmt.Errorf("demo: open notified wheel: %w", err)
		}
		readable, writable := notify.FromFDs(fds[1], fds[2])
		defer func() { err = multierr.Append(err, readable.Close()) }()
		defer func() { err = multierr.Append(err, writable.Close()) }()
		consumer = &notifyConsumer{w: notify.New(core, readable, writable), log: log}

		reactor, err = NewReactor(readable.FD())
		if err != nil {
			return nil, fmt.Errorf("demo: create reactor: %w", err)
		}
		defer func() { err = multierr.Append(err, reactor.Close()) }()
	} else {
		core, err := wheel.Open(data)
		if err != nil {
			return nil, fmt.Errorf("demo: open wheel: %w", err)
		}
		consumer = core
	}

	return RunConsumer(ctx, consumer, reactor, sizes, log)
}
