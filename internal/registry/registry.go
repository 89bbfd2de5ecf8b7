// Package registry hosts the actor owning all live hub connections. Every
// hardware-touching operation against a connected hub funnels through its
// request channel, so hub state is only ever mutated from one goroutine.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"

	"github.com/brickble/poweredup/internal/adapter"
	"github.com/brickble/poweredup/internal/device"
	"github.com/brickble/poweredup/internal/discovery"
	"github.com/brickble/poweredup/internal/hub"
	"github.com/brickble/poweredup/internal/protocol"
	"github.com/brickble/poweredup/internal/task"
)

type connectRequest struct {
	hub   discovery.DiscoveredHub
	reply chan connectResponse
}

type connectResponse struct {
	controller *HubController
	err        error
}

type getPortRequest struct {
	addr  string
	port  hub.Port
	reply chan portResponse
}

type portResponse struct {
	controller *PortController
	err        error
}

type sendRequest struct {
	addr  string
	msg   *protocol.Message
	reply chan error
}

type disconnectRequest struct {
	addr  string
	reply chan error
}

// notification is the inbound, reply-less message carrying a parsed hub
// notification from a hardware-stack goroutine.
type notification struct {
	addr string
	msg  *protocol.Message
}

// Registry is the per-process hub registry actor.
type Registry struct {
	host           *adapter.Host
	requests       chan any
	quit           chan struct{}
	stopOnce       sync.Once
	logger         *logrus.Logger
	connectTimeout time.Duration

	// hubs is owned by the actor goroutine; connected mirrors its keys
	// for lock-free snapshots from any goroutine.
	hubs      map[string]hub.Hub
	connected *hashmap.Map[string, protocol.HubKind]
}

// New starts the registry actor. connectTimeout bounds each in-flight
// connection attempt; once issued, an attempt runs to completion or
// hardware-stack failure regardless of the requester's context.
func New(host *adapter.Host, connectTimeout time.Duration, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	if connectTimeout <= 0 {
		connectTimeout = 30 * time.Second
	}

	r := &Registry{
		host:           host,
		requests:       make(chan any, 10),
		quit:           make(chan struct{}),
		logger:         logger,
		connectTimeout: connectTimeout,
		hubs:           make(map[string]hub.Hub),
		connected:      hashmap.New[string, protocol.HubKind](),
	}

	task.Go(context.Background(), "hub-registry", r.run)
	return r
}

func (r *Registry) run(context.Context) {
	r.logger.Info("Starting hub registry")
	for {
		select {
		case req := <-r.requests:
			r.dispatch(req)
		case <-r.quit:
			return
		}
	}
}

// dispatch handles one request on the actor goroutine. Per-request errors
// go to the requester's reply channel only; the loop never terminates on
// them.
func (r *Registry) dispatch(req any) {
	switch req := req.(type) {
	case connectRequest:
		controller, err := r.connect(req.hub)
		req.reply <- connectResponse{controller: controller, err: err}

	case getPortRequest:
		controller, err := r.getPort(req.addr, req.port)
		req.reply <- portResponse{controller: controller, err: err}

	case sendRequest:
		req.reply <- r.sendToHub(req.addr, req.msg)

	case disconnectRequest:
		req.reply <- r.disconnect(req.addr)

	case notification:
		// Observed only for now; per-port delivery hangs off this
		// point later.
		r.logger.WithFields(logrus.Fields{
			"address": req.addr,
			"message": req.msg.String(),
		}).Debug("Received hub notification")
	}
}

func (r *Registry) connect(discovered discovery.DiscoveredHub) (*HubController, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.connectTimeout)
	defer cancel()

	addr := discovered.Addr
	p, err := r.host.Connect(ctx, addr)
	if err != nil {
		return nil, err
	}

	// Past this point a failure must not leave the link up.
	abandon := func(err error) (*HubController, error) {
		if derr := p.Disconnect(); derr != nil {
			r.logger.WithError(derr).WithField("address", addr).Debug("Failed to tear down half-initialized connection")
		}
		return nil, err
	}

	chars, err := p.DiscoverCharacteristics()
	if err != nil {
		return abandon(err)
	}

	kind, name := discovered.Kind, discovered.Name
	if kind == protocol.HubKindUnknown {
		// The caller did not know what it connected to; identify from
		// the live advertisement properties.
		props := p.Properties()
		if k, ok := protocol.Identify(props.Services, props.ManufacturerData); ok {
			kind = k
			name = props.LocalName
		} else {
			kind = protocol.HubKindUnknown
			name = ""
		}
	}

	p.SetNotificationHandler(func(data []byte) {
		msg, perr := protocol.ParseMessage(data)
		if perr != nil {
			// Parse failures never fail the connection.
			r.logger.WithError(perr).WithField("address", addr).Error("Dropping unparseable notification")
			return
		}
		// Blocking send: when the request queue is momentarily full
		// this briefly stalls the hardware-owned goroutine rather
		// than dropping the notification.
		select {
		case r.requests <- notification{addr: addr, msg: msg}:
		case <-r.quit:
		}
	})

	control, err := hub.FindControlCharacteristic(addr, chars)
	if err != nil {
		return abandon(err)
	}
	if err := p.Subscribe(control); err != nil {
		return abandon(err)
	}

	var h hub.Hub
	switch kind {
	case protocol.HubKindTechnicMediumHub:
		h, err = hub.NewTechnicHub(p, chars)
	case protocol.HubKindMoveHub:
		h, err = hub.NewMoveHub(p, chars)
	default:
		return abandon(&UnsupportedHubKindError{Kind: kind})
	}
	if err != nil {
		return abandon(err)
	}

	r.hubs[addr] = h
	r.connected.Set(addr, kind)

	r.logger.WithFields(logrus.Fields{
		"address": addr,
		"name":    name,
		"kind":    kind.String(),
	}).Info("Connected to hub")

	return &HubController{addr: addr, kind: kind, name: name, registry: r}, nil
}

func (r *Registry) getPort(addr string, port hub.Port) (*PortController, error) {
	h, ok := r.hubs[addr]
	if !ok {
		return nil, &UnknownHubError{Addr: addr}
	}

	portID, ok := h.PortMap().Get(port)
	if !ok {
		return nil, &UnknownPortError{Port: port, Addr: addr}
	}

	dev := device.Create(portID, port, addr, r)
	return &PortController{portID: portID, port: port, device: dev}, nil
}

func (r *Registry) sendToHub(addr string, msg *protocol.Message) error {
	h, ok := r.hubs[addr]
	if !ok {
		return &UnknownHubError{Addr: addr}
	}
	return h.Send(msg)
}

func (r *Registry) disconnect(addr string) error {
	h, ok := r.hubs[addr]
	if !ok {
		return &UnknownHubError{Addr: addr}
	}

	// Remove before the hardware call so concurrent requests against the
	// same address observe UnknownHub immediately.
	delete(r.hubs, addr)
	r.connected.Del(addr)

	return h.Disconnect()
}

// ConnectToHub establishes a connection to a previously discovered hub and
// returns its controller.
func (r *Registry) ConnectToHub(ctx context.Context, discovered discovery.DiscoveredHub) (*HubController, error) {
	req := connectRequest{hub: discovered, reply: make(chan connectResponse, 1)}
	if err := r.send(ctx, req); err != nil {
		return nil, err
	}
	select {
	case resp := <-req.reply:
		return resp.controller, resp.err
	case <-r.quit:
		return nil, ErrRegistryStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetPort builds a port controller for the given port of a connected hub.
func (r *Registry) GetPort(ctx context.Context, addr string, port hub.Port) (*PortController, error) {
	req := getPortRequest{addr: addr, port: port, reply: make(chan portResponse, 1)}
	if err := r.send(ctx, req); err != nil {
		return nil, err
	}
	select {
	case resp := <-req.reply:
		return resp.controller, resp.err
	case <-r.quit:
		return nil, ErrRegistryStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendToHub forwards an outbound message to a connected hub. It implements
// device.Commander, which is how port devices reach their hub.
func (r *Registry) SendToHub(ctx context.Context, addr string, msg *protocol.Message) error {
	req := sendRequest{addr: addr, msg: msg, reply: make(chan error, 1)}
	if err := r.send(ctx, req); err != nil {
		return err
	}
	select {
	case err := <-req.reply:
		return err
	case <-r.quit:
		return ErrRegistryStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect tears down the connection at addr and removes it from the
// registry.
func (r *Registry) Disconnect(ctx context.Context, addr string) error {
	req := disconnectRequest{addr: addr, reply: make(chan error, 1)}
	if err := r.send(ctx, req); err != nil {
		return err
	}
	select {
	case err := <-req.reply:
		return err
	case <-r.quit:
		return ErrRegistryStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected returns a snapshot of connected hub addresses and kinds without
// a registry round trip.
func (r *Registry) Connected() map[string]protocol.HubKind {
	snapshot := make(map[string]protocol.HubKind, r.connected.Len())
	r.connected.Range(func(addr string, kind protocol.HubKind) bool {
		snapshot[addr] = kind
		return true
	})
	return snapshot
}

func (r *Registry) send(ctx context.Context, req any) error {
	select {
	case r.requests <- req:
		return nil
	case <-r.quit:
		return ErrRegistryStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop terminates the actor loop. Live hub connections are not torn down;
// callers disconnect explicitly first if they need clean hardware state.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}
