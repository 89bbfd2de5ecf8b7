package registry

import (
	"context"

	"github.com/brickble/poweredup/internal/device"
	"github.com/brickble/poweredup/internal/hub"
	"github.com/brickble/poweredup/internal/protocol"
)

// HubController is a lightweight, copyable handle to a connected hub. Many
// controllers may reference the same live hub; none of them owns it. All
// operations are request/reply round trips to the registry actor.
type HubController struct {
	addr     string
	kind     protocol.HubKind
	name     string
	registry *Registry
}

// Name returns the hub's advertised name at connect time.
func (c *HubController) Name() string { return c.name }

// Kind returns the hub kind.
func (c *HubController) Kind() protocol.HubKind { return c.kind }

// Addr returns the hub's address.
func (c *HubController) Addr() string { return c.addr }

// Port obtains a controller for the given port of this hub.
func (c *HubController) Port(ctx context.Context, port hub.Port) (*PortController, error) {
	return c.registry.GetPort(ctx, c.addr, port)
}

// Send forwards a protocol message to the hub.
func (c *HubController) Send(ctx context.Context, msg *protocol.Message) error {
	return c.registry.SendToHub(ctx, c.addr, msg)
}

// Disconnect tears down the hub connection. Operations against this hub's
// address fail with UnknownHub afterwards.
func (c *HubController) Disconnect(ctx context.Context) error {
	return c.registry.Disconnect(ctx, c.addr)
}

// PortController owns one device instance bound to one physical port. The
// device's lifetime is the controller's alone.
type PortController struct {
	portID byte
	port   hub.Port
	device device.Device
}

// PortID returns the hub-assigned physical port id.
func (c *PortController) PortID() byte { return c.portID }

// Port returns the logical port specification.
func (c *PortController) Port() hub.Port { return c.port }

// Device returns the owned device instance.
func (c *PortController) Device() device.Device { return c.device }

// Motor returns the device as a motor, if this port holds one.
func (c *PortController) Motor() (*device.Motor, bool) {
	m, ok := c.device.(*device.Motor)
	return m, ok
}

// LED returns the device as the hub LED, if this port holds it.
func (c *PortController) LED() (*device.HubLED, bool) {
	l, ok := c.device.(*device.HubLED)
	return l, ok
}

// Sensor returns the device as a generic sensor, if this port holds one.
func (c *PortController) Sensor() (*device.Sensor, bool) {
	s, ok := c.device.(*device.Sensor)
	return s, ok
}
