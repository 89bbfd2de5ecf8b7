package adapter

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/brickble/poweredup/internal/task"
)

// ErrHostStopped is returned for operations issued after the host actor has
// shut down. Callers observe it instead of hanging on a dead actor.
var ErrHostStopped = errors.New("adapter host stopped")

type hostRequest struct {
	op   func(Adapter)
	done chan struct{}
}

// Host exclusively owns an Adapter and serializes every adapter-level
// operation (scan control, peripheral lookup, connect) through its request
// queue. Contention shows up as queue depth rather than lock wait time.
type Host struct {
	requests chan hostRequest
	quit     chan struct{}
	stopOnce sync.Once
	logger   *logrus.Logger
}

// NewHost starts the owning actor for the given adapter.
func NewHost(a Adapter, logger *logrus.Logger) *Host {
	if logger == nil {
		logger = logrus.New()
	}

	h := &Host{
		requests: make(chan hostRequest, 10),
		quit:     make(chan struct{}),
		logger:   logger,
	}

	task.Go(context.Background(), "adapter-host", func(ctx context.Context) {
		for {
			select {
			case req := <-h.requests:
				req.op(a)
				close(req.done)
			case <-h.quit:
				return
			}
		}
	})

	return h
}

// do runs op on the actor goroutine and waits for completion.
func (h *Host) do(ctx context.Context, op func(Adapter)) error {
	req := hostRequest{op: op, done: make(chan struct{})}

	select {
	case h.requests <- req:
	case <-h.quit:
		return ErrHostStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-h.quit:
		return ErrHostStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartScan begins discovery on the owned adapter and returns its bounded
// event stream.
func (h *Host) StartScan(ctx context.Context) (<-chan Event, error) {
	var (
		events <-chan Event
		err    error
	)
	if derr := h.do(ctx, func(a Adapter) {
		events, err = a.StartScan(ctx)
	}); derr != nil {
		return nil, derr
	}
	return events, err
}

// Peripheral resolves a peripheral handle by address on the actor.
func (h *Host) Peripheral(ctx context.Context, addr string) (Peripheral, error) {
	var (
		p   Peripheral
		err error
	)
	if derr := h.do(ctx, func(a Adapter) {
		p, err = a.Peripheral(addr)
	}); derr != nil {
		return nil, derr
	}
	return p, err
}

// Connect resolves the peripheral at addr and establishes its connection.
// Both steps run on the actor, so connects serialize with all other adapter
// access.
func (h *Host) Connect(ctx context.Context, addr string) (Peripheral, error) {
	var (
		p   Peripheral
		err error
	)
	if derr := h.do(ctx, func(a Adapter) {
		p, err = a.Peripheral(addr)
		if err != nil {
			return
		}
		err = p.Connect(ctx)
	}); derr != nil {
		return nil, derr
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Stop shuts down the adapter and terminates the actor. Safe to call more
// than once.
func (h *Host) Stop(ctx context.Context) error {
	var err error
	derr := h.do(ctx, func(a Adapter) {
		err = a.Stop()
	})
	h.stopOnce.Do(func() { close(h.quit) })
	if derr != nil {
		if errors.Is(derr, ErrHostStopped) {
			return nil
		}
		return derr
	}
	return err
}
