package discovery

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/brickble/poweredup/internal/task"
)

// ErrManagerStopped is returned for requests issued after the manager actor
// has shut down, instead of letting callers hang on a dead actor.
var ErrManagerStopped = errors.New("discovery manager stopped")

type pendingWait struct {
	id     uint64
	filter HubFilter // nil matches every hub
	reply  chan DiscoveredHub
}

type registerRequest struct {
	filter HubFilter
	reply  chan registerResponse
}

type registerResponse struct {
	id uint64
	ch <-chan DiscoveredHub
}

type retractRequest struct {
	id   uint64
	done chan struct{}
}

type snapshotRequest struct {
	reply chan []DiscoveredHub
}

// Manager is the single-goroutine actor owning the discovery log and the
// wait-for-hub registrations. Registrations are tracked independently, each
// with its own filter and reply channel; every registration matching a
// discovery is fulfilled and consumed by it.
//
// The discovery log is keyed by address in first-seen order; a rediscovery
// updates the stored name and kind in place rather than growing the log.
type Manager struct {
	discoveries <-chan DiscoveredHub
	requests    chan any
	quit        chan struct{}
	stopOnce    sync.Once
	logger      *logrus.Logger

	// actor-goroutine state
	log    *orderedmap.OrderedMap[string, DiscoveredHub]
	waits  []*pendingWait
	nextID uint64
}

// NewManager starts the actor over the given discovery channel.
func NewManager(discoveries <-chan DiscoveredHub, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}

	m := &Manager{
		discoveries: discoveries,
		requests:    make(chan any, 10),
		quit:        make(chan struct{}),
		logger:      logger,
		log:         orderedmap.New[string, DiscoveredHub](),
	}

	task.Go(context.Background(), "discovery-manager", m.run)
	return m
}

func (m *Manager) run(context.Context) {
	m.logger.Info("Starting discovery manager")
	for {
		select {
		case req := <-m.requests:
			m.handleRequest(req)
		case hub := <-m.discoveries:
			m.handleDiscovered(hub)
		case <-m.quit:
			return
		}
	}
}

func (m *Manager) handleRequest(req any) {
	switch r := req.(type) {
	case registerRequest:
		m.nextID++
		wait := &pendingWait{
			id:     m.nextID,
			filter: r.filter,
			reply:  make(chan DiscoveredHub, 1),
		}
		m.waits = append(m.waits, wait)
		r.reply <- registerResponse{id: wait.id, ch: wait.reply}

	case retractRequest:
		for i, w := range m.waits {
			if w.id == r.id {
				m.waits = append(m.waits[:i], m.waits[i+1:]...)
				break
			}
		}
		close(r.done)

	case snapshotRequest:
		hubs := make([]DiscoveredHub, 0, m.log.Len())
		for pair := m.log.Oldest(); pair != nil; pair = pair.Next() {
			hubs = append(hubs, pair.Value)
		}
		r.reply <- hubs
	}
}

func (m *Manager) handleDiscovered(hub DiscoveredHub) {
	if _, seen := m.log.Get(hub.Addr); !seen {
		m.logger.WithFields(logrus.Fields{
			"address": hub.Addr,
			"name":    hub.Name,
			"kind":    hub.Kind.String(),
		}).Info("Discovered new hub")
	}
	m.log.Set(hub.Addr, hub)

	remaining := m.waits[:0]
	for _, w := range m.waits {
		if w.filter == nil || w.filter.Matches(hub) {
			// Reply channels are buffered and single-use; the send
			// never blocks the actor.
			w.reply <- hub
			continue
		}
		remaining = append(remaining, w)
	}
	m.waits = remaining
}

// Register adds a wait-for-hub registration and returns its id along with
// the single-use channel its match will arrive on. A nil filter matches the
// next discovery.
func (m *Manager) Register(ctx context.Context, filter HubFilter) (uint64, <-chan DiscoveredHub, error) {
	req := registerRequest{filter: filter, reply: make(chan registerResponse, 1)}
	if err := m.send(ctx, req); err != nil {
		return 0, nil, err
	}
	select {
	case resp := <-req.reply:
		return resp.id, resp.ch, nil
	case <-m.quit:
		return 0, nil, ErrManagerStopped
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

// Retract removes a registration that is no longer wanted, typically after
// its caller timed out. Retracting an already fulfilled id is a no-op.
func (m *Manager) Retract(ctx context.Context, id uint64) error {
	req := retractRequest{id: id, done: make(chan struct{})}
	if err := m.send(ctx, req); err != nil {
		return err
	}
	select {
	case <-req.done:
		return nil
	case <-m.quit:
		return ErrManagerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Discovered returns the discovery log in first-seen order.
func (m *Manager) Discovered(ctx context.Context) ([]DiscoveredHub, error) {
	req := snapshotRequest{reply: make(chan []DiscoveredHub, 1)}
	if err := m.send(ctx, req); err != nil {
		return nil, err
	}
	select {
	case hubs := <-req.reply:
		return hubs, nil
	case <-m.quit:
		return nil, ErrManagerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) send(ctx context.Context, req any) error {
	select {
	case m.requests <- req:
		return nil
	case <-m.quit:
		return ErrManagerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop terminates the actor loop. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.quit) })
}
