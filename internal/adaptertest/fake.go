// Package adaptertest provides in-memory fakes for the adapter interfaces,
// used by package tests across the module.
package adaptertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/brickble/poweredup/internal/adapter"
	"github.com/brickble/poweredup/internal/protocol"
)

// Characteristic is a fake GATT characteristic identified by UUID only.
type Characteristic struct {
	uuid string
}

// NewCharacteristic builds a fake characteristic; the UUID is normalized.
func NewCharacteristic(uuid string) *Characteristic {
	return &Characteristic{uuid: protocol.NormalizeUUID(uuid)}
}

func (c *Characteristic) UUID() string { return c.uuid }

// Write records one write against a peripheral characteristic.
type Write struct {
	UUID string
	Data []byte
}

// Peripheral is a scriptable fake peripheral.
type Peripheral struct {
	mu sync.Mutex

	addr  string
	props adapter.Properties
	chars []adapter.Characteristic

	connected    bool
	connectErrs  []error
	connectCalls int
	discoverErr  error
	subscribeErr error

	notify     func([]byte)
	subscribed []string
	writes     []Write
}

// NewPeripheral builds a fake peripheral at addr with the given properties.
func NewPeripheral(addr string, props adapter.Properties) *Peripheral {
	return &Peripheral{addr: addr, props: props}
}

// NewHubPeripheral builds a fake peripheral advertising as an LPF2 hub with
// the given manufacturer device-type code, exposing the LPF2 control
// characteristic.
func NewHubPeripheral(addr, name string, code byte) *Peripheral {
	p := NewPeripheral(addr, adapter.Properties{
		LocalName:        name,
		Services:         []string{protocol.ServiceLPF2Hub},
		ManufacturerData: map[uint16][]byte{protocol.LegoCompanyID: {0x00, code, 0x06, 0x00, 0x61, 0x00}},
	})
	p.SetCharacteristics(NewCharacteristic(protocol.CharacteristicLPF2All))
	return p
}

// SetCharacteristics sets the characteristics enumerated after connect.
func (p *Peripheral) SetCharacteristics(chars ...*Characteristic) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chars = p.chars[:0]
	for _, c := range chars {
		p.chars = append(p.chars, c)
	}
}

// FailConnect queues errs to be returned by successive Connect calls before
// connects start succeeding.
func (p *Peripheral) FailConnect(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connectErrs = append(p.connectErrs, errs...)
}

// FailDiscover makes characteristic enumeration fail.
func (p *Peripheral) FailDiscover(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discoverErr = err
}

// FailSubscribe makes Subscribe fail.
func (p *Peripheral) FailSubscribe(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribeErr = err
}

// SetConnected overrides the connected flag, for already-connected
// filtering tests.
func (p *Peripheral) SetConnected(connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = connected
}

// ConnectCalls reports how many times Connect was attempted.
func (p *Peripheral) ConnectCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectCalls
}

// Writes returns all recorded characteristic writes.
func (p *Peripheral) Writes() []Write {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Write(nil), p.writes...)
}

// Subscribed returns the UUIDs subscribed to, in order.
func (p *Peripheral) Subscribed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subscribed...)
}

// EmitNotification invokes the installed notification handler with raw
// bytes, as the hardware stack would.
func (p *Peripheral) EmitNotification(data []byte) {
	p.mu.Lock()
	fn := p.notify
	p.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

// adapter.Peripheral implementation

func (p *Peripheral) Address() string { return p.addr }

func (p *Peripheral) Properties() adapter.Properties {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.props
}

func (p *Peripheral) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *Peripheral) Connect(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.connectCalls++
	if len(p.connectErrs) > 0 {
		err := p.connectErrs[0]
		p.connectErrs = p.connectErrs[1:]
		return err
	}
	p.connected = true
	return nil
}

func (p *Peripheral) DiscoverCharacteristics() ([]adapter.Characteristic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.discoverErr != nil {
		return nil, p.discoverErr
	}
	return append([]adapter.Characteristic(nil), p.chars...), nil
}

func (p *Peripheral) SetNotificationHandler(fn func(data []byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notify = fn
}

func (p *Peripheral) Subscribe(c adapter.Characteristic) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subscribeErr != nil {
		return p.subscribeErr
	}
	p.subscribed = append(p.subscribed, c.UUID())
	return nil
}

func (p *Peripheral) WriteCharacteristic(c adapter.Characteristic, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return fmt.Errorf("peripheral %s is not connected", p.addr)
	}
	p.writes = append(p.writes, Write{UUID: c.UUID(), Data: append([]byte(nil), data...)})
	return nil
}

func (p *Peripheral) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

// Adapter is a scriptable fake adapter.
type Adapter struct {
	mu          sync.Mutex
	peripherals map[string]*Peripheral
	events      chan adapter.Event
	stopped     bool
}

// NewAdapter builds an empty fake adapter.
func NewAdapter() *Adapter {
	return &Adapter{peripherals: make(map[string]*Peripheral)}
}

// AddPeripheral registers a peripheral so lookups at its address resolve.
func (a *Adapter) AddPeripheral(p *Peripheral) *Adapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.peripherals[p.addr] = p
	return a
}

// EmitDiscovered pushes a discovery event for addr onto the event stream.
func (a *Adapter) EmitDiscovered(addr string) {
	a.mu.Lock()
	events := a.events
	a.mu.Unlock()
	if events != nil {
		events <- adapter.Event{Type: adapter.EventDeviceDiscovered, Addr: addr}
	}
}

// CloseEvents closes the event stream, simulating a dead event source.
func (a *Adapter) CloseEvents() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.events != nil {
		close(a.events)
		a.events = nil
	}
}

// Stopped reports whether Stop was called.
func (a *Adapter) Stopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

// adapter.Adapter implementation

func (a *Adapter) StartScan(context.Context) (<-chan adapter.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.events == nil {
		a.events = make(chan adapter.Event, 16)
	}
	return a.events, nil
}

func (a *Adapter) Peripheral(addr string) (adapter.Peripheral, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.peripherals[addr]
	if !ok {
		return nil, &adapter.PeripheralNotFoundError{Addr: addr}
	}
	return p, nil
}

func (a *Adapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	return nil
}
