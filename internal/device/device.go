// Package device provides the per-port device instances handed out by the
// hub registry. A device instance never touches the peripheral directly; it
// issues protocol messages through its Commander, which routes them back
// through the registry's request channel.
package device

import (
	"context"

	"github.com/brickble/poweredup/internal/hub"
	"github.com/brickble/poweredup/internal/protocol"
)

// Commander sends an outbound message to the hub at addr. Implemented by
// the registry's request-channel client.
type Commander interface {
	SendToHub(ctx context.Context, addr string, msg *protocol.Message) error
}

// Device is a device instance bound to one physical port on one hub.
type Device interface {
	Port() hub.Port
	PortID() byte
	HubAddr() string
}

type base struct {
	portID byte
	port   hub.Port
	addr   string
	cmd    Commander
}

func (b *base) Port() hub.Port  { return b.port }
func (b *base) PortID() byte    { return b.portID }
func (b *base) HubAddr() string { return b.addr }

// Create builds the device instance matching the port specification. Motor
// ports get motors, the LED port gets the LED device, everything else is a
// generic sensor.
func Create(portID byte, port hub.Port, addr string, cmd Commander) Device {
	b := base{portID: portID, port: port, addr: addr, cmd: cmd}
	switch port {
	case hub.PortA, hub.PortB, hub.PortC, hub.PortD, hub.PortAB:
		return &Motor{base: b}
	case hub.PortHubLED:
		return &HubLED{base: b}
	default:
		return &Sensor{base: b}
	}
}

// Motor drives a motor attached to an external port or an internal motor
// port.
type Motor struct {
	base
}

// StartPower applies a raw duty cycle, -100..100. Zero floats the motor.
func (m *Motor) StartPower(ctx context.Context, power int8) error {
	return m.cmd.SendToHub(ctx, m.addr, protocol.StartPower(m.portID, power))
}

// StartSpeed runs a tacho motor at a regulated speed under a max-power
// ceiling.
func (m *Motor) StartSpeed(ctx context.Context, speed int8, maxPower byte) error {
	return m.cmd.SendToHub(ctx, m.addr, protocol.StartSpeed(m.portID, speed, maxPower))
}

// Stop floats the motor.
func (m *Motor) Stop(ctx context.Context) error {
	return m.StartPower(ctx, 0)
}

// HubLED controls the hub's status LED.
type HubLED struct {
	base
}

// SetRGB sets the LED to an RGB color.
func (l *HubLED) SetRGB(ctx context.Context, r, g, b byte) error {
	return l.cmd.SendToHub(ctx, l.addr, protocol.SetRGB(l.portID, r, g, b))
}

// Sensor is the generic device for sensor ports; it can enable or disable
// single-mode value notifications.
type Sensor struct {
	base
}

// EnableNotifications asks the hub to stream values for the given mode when
// they change by at least delta.
func (s *Sensor) EnableNotifications(ctx context.Context, mode byte, delta uint32) error {
	return s.cmd.SendToHub(ctx, s.addr, protocol.PortInputFormatSetup(s.portID, mode, delta, true))
}

// DisableNotifications stops value streaming for the given mode.
func (s *Sensor) DisableNotifications(ctx context.Context, mode byte) error {
	return s.cmd.SendToHub(ctx, s.addr, protocol.PortInputFormatSetup(s.portID, mode, 0, false))
}
