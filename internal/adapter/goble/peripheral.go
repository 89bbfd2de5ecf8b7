package goble

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ble/ble"

	"github.com/brickble/poweredup/internal/adapter"
	"github.com/brickble/poweredup/internal/protocol"
	"github.com/brickble/poweredup/internal/task"
)

// bleCharacteristic pairs the normalized UUID with the underlying go-ble
// handle needed for subscribe and write calls.
type bleCharacteristic struct {
	uuid string
	char *ble.Characteristic
}

func (c *bleCharacteristic) UUID() string {
	return c.uuid
}

// blePeripheral implements adapter.Peripheral. Properties are refreshed by
// the scan handler; the client handle exists only while connected.
type blePeripheral struct {
	parent *bleAdapter
	addr   string

	mu     sync.RWMutex
	props  adapter.Properties
	client ble.Client
	notify func(data []byte)
}

func newPeripheral(parent *bleAdapter, addr string) *blePeripheral {
	return &blePeripheral{parent: parent, addr: addr}
}

func (p *blePeripheral) updateProperties(props adapter.Properties) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if props.LocalName == "" {
		props.LocalName = p.props.LocalName
	}
	p.props = props
}

func (p *blePeripheral) Address() string {
	return p.addr
}

func (p *blePeripheral) Properties() adapter.Properties {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.props
}

func (p *blePeripheral) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}

func (p *blePeripheral) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.client != nil {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	client, err := p.parent.dev.Dial(ctx, ble.NewAddr(p.addr))
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", adapter.ErrConnectFailed, p.addr, err)
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()

	// Clear the client when the link drops so IsConnected stays honest.
	task.Go(context.Background(), "goble-disconnect-watch-"+p.addr, func(context.Context) {
		<-client.Disconnected()
		p.mu.Lock()
		if p.client == client {
			p.client = nil
		}
		p.mu.Unlock()
	})

	return nil
}

func (p *blePeripheral) DiscoverCharacteristics() ([]adapter.Characteristic, error) {
	client := p.currentClient()
	if client == nil {
		return nil, fmt.Errorf("%w: %s is not connected", adapter.ErrConnectFailed, p.addr)
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		return nil, fmt.Errorf("%w: discover profile on %s: %v", adapter.ErrConnectFailed, p.addr, err)
	}

	var chars []adapter.Characteristic
	for _, svc := range profile.Services {
		for _, char := range svc.Characteristics {
			chars = append(chars, &bleCharacteristic{
				uuid: protocol.NormalizeUUID(char.UUID.String()),
				char: char,
			})
		}
	}
	return chars, nil
}

func (p *blePeripheral) SetNotificationHandler(fn func(data []byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notify = fn
}

func (p *blePeripheral) Subscribe(c adapter.Characteristic) error {
	bc, ok := c.(*bleCharacteristic)
	if !ok {
		return fmt.Errorf("characteristic %s does not belong to this adapter", c.UUID())
	}

	client := p.currentClient()
	if client == nil {
		return fmt.Errorf("%w: %s is not connected", adapter.ErrConnectFailed, p.addr)
	}

	err := client.Subscribe(bc.char, false, func(data []byte) {
		p.mu.RLock()
		fn := p.notify
		p.mu.RUnlock()
		if fn != nil {
			fn(data)
		}
	})
	if err != nil {
		return fmt.Errorf("%w: subscribe %s on %s: %v", adapter.ErrConnectFailed, bc.uuid, p.addr, err)
	}
	return nil
}

func (p *blePeripheral) WriteCharacteristic(c adapter.Characteristic, data []byte) error {
	bc, ok := c.(*bleCharacteristic)
	if !ok {
		return fmt.Errorf("characteristic %s does not belong to this adapter", c.UUID())
	}

	client := p.currentClient()
	if client == nil {
		return fmt.Errorf("write to %s: %s is not connected", bc.uuid, p.addr)
	}
	return client.WriteCharacteristic(bc.char, data, false)
}

func (p *blePeripheral) Disconnect() error {
	p.mu.Lock()
	client := p.client
	p.client = nil
	p.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.CancelConnection()
}

func (p *blePeripheral) currentClient() ble.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}
