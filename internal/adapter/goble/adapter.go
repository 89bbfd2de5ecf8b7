// Package goble implements the adapter abstraction on top of go-ble.
package goble

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/brickble/poweredup/internal/adapter"
	"github.com/brickble/poweredup/internal/protocol"
	"github.com/brickble/poweredup/internal/task"
)

// EventBuffer is the capacity of the low-level event channel. Advertisement
// handlers on hardware-owned goroutines block when it is full; events are
// never dropped.
const EventBuffer = 16

// Factory creates an adapter for the given local adapter index. It is a
// variable so tests can substitute a fake stack.
var Factory = func(id int, logger *logrus.Logger) (adapter.Adapter, error) {
	dev, err := newDevice(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", adapter.ErrAdapterUnavailable, err)
	}
	return New(dev, logger), nil
}

// bleAdapter implements adapter.Adapter over a ble.Device. Peripheral
// handles are cached per address as advertisements arrive, so lookups after
// discovery resolve without further radio traffic.
type bleAdapter struct {
	dev    ble.Device
	logger *logrus.Logger

	mu          sync.Mutex
	peripherals map[string]*blePeripheral
	events      chan adapter.Event
	scanCtx     context.Context
}

// New wraps an open ble.Device.
func New(dev ble.Device, logger *logrus.Logger) adapter.Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	return &bleAdapter{
		dev:         dev,
		logger:      logger,
		peripherals: make(map[string]*blePeripheral),
	}
}

func (a *bleAdapter) StartScan(ctx context.Context) (<-chan adapter.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.events != nil {
		return a.events, nil
	}

	events := make(chan adapter.Event, EventBuffer)
	a.events = events
	a.scanCtx = ctx

	task.Go(ctx, "goble-scan", func(ctx context.Context) {
		// Scan blocks until the context ends or the stack fails. Either
		// way the event channel is closed, which downstream treats as a
		// dead event source.
		err := a.dev.Scan(ctx, true, a.handleAdvertisement)
		if err != nil && ctx.Err() == nil {
			a.logger.WithError(err).Error("BLE scan terminated")
		}
		close(events)
	})

	return events, nil
}

// handleAdvertisement runs on a hardware-stack goroutine. It refreshes the
// cached peripheral and forwards a discovery event, blocking if the bounded
// channel is full.
func (a *bleAdapter) handleAdvertisement(adv ble.Advertisement) {
	addr := adv.Addr().String()
	props := propertiesFromAdvertisement(adv)

	a.mu.Lock()
	p, ok := a.peripherals[addr]
	if !ok {
		p = newPeripheral(a, addr)
		a.peripherals[addr] = p
	}
	events := a.events
	ctx := a.scanCtx
	a.mu.Unlock()

	p.updateProperties(props)

	if events == nil {
		return
	}
	select {
	case events <- adapter.Event{Type: adapter.EventDeviceDiscovered, Addr: addr}:
	case <-ctx.Done():
	}
}

func (a *bleAdapter) Peripheral(addr string) (adapter.Peripheral, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.peripherals[addr]
	if !ok {
		return nil, &adapter.PeripheralNotFoundError{Addr: addr}
	}
	return p, nil
}

func (a *bleAdapter) Stop() error {
	return a.dev.Stop()
}

// propertiesFromAdvertisement converts a go-ble advertisement into the
// adapter property snapshot. go-ble delivers manufacturer data as raw bytes
// with the little-endian company id in front; the snapshot keys the payload
// by that id the way hub identification expects.
func propertiesFromAdvertisement(adv ble.Advertisement) adapter.Properties {
	props := adapter.Properties{
		LocalName:        adv.LocalName(),
		ManufacturerData: make(map[uint16][]byte),
	}

	for _, u := range adv.Services() {
		props.Services = append(props.Services, protocol.NormalizeUUID(u.String()))
	}

	if raw := adv.ManufacturerData(); len(raw) >= 2 {
		company := uint16(raw[0]) | uint16(raw[1])<<8
		props.ManufacturerData[company] = raw[2:]
	}

	return props
}
