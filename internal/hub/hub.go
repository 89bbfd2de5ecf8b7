// Package hub models connected Powered Up hubs. The set of hub kinds is
// closed and known at build time; each kind is a concrete type behind the
// Hub interface rather than anything open-ended.
package hub

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/brickble/poweredup/internal/adapter"
	"github.com/brickble/poweredup/internal/protocol"
)

// PortMap maps logical ports to the hub-assigned physical port ids, in the
// hub's fixed port layout order.
type PortMap = orderedmap.OrderedMap[Port, byte]

// Properties describes a connected hub.
type Properties struct {
	Name    string
	PortMap *PortMap
}

// Hub is the capability surface every connected hub kind exposes.
type Hub interface {
	Name() string
	Kind() protocol.HubKind
	IsConnected() bool
	Properties() *Properties
	PortMap() *PortMap

	// Send encodes and writes an LPF2 message to the control
	// characteristic.
	Send(msg *protocol.Message) error
	// SendRaw writes pre-encoded bytes to the control characteristic.
	SendRaw(data []byte) error

	// Subscribe enables notifications on an additional characteristic.
	Subscribe(c adapter.Characteristic) error

	Disconnect() error
}

// FindControlCharacteristic locates the LPF2 control characteristic among
// enumerated characteristics.
func FindControlCharacteristic(addr string, chars []adapter.Characteristic) (adapter.Characteristic, error) {
	for _, c := range chars {
		if c.UUID() == protocol.CharacteristicLPF2All {
			return c, nil
		}
	}
	return nil, &adapter.CharacteristicMissingError{UUID: protocol.CharacteristicLPF2All, Addr: addr}
}

// baseHub carries the state and behavior shared by every LPF2 hub kind.
type baseHub struct {
	kind       protocol.HubKind
	peripheral adapter.Peripheral
	control    adapter.Characteristic
	props      *Properties
}

func newBaseHub(kind protocol.HubKind, p adapter.Peripheral, chars []adapter.Characteristic, portMap *PortMap) (baseHub, error) {
	control, err := FindControlCharacteristic(p.Address(), chars)
	if err != nil {
		return baseHub{}, err
	}
	return baseHub{
		kind:       kind,
		peripheral: p,
		control:    control,
		props: &Properties{
			Name:    p.Properties().LocalName,
			PortMap: portMap,
		},
	}, nil
}

func (h *baseHub) Name() string            { return h.props.Name }
func (h *baseHub) Kind() protocol.HubKind  { return h.kind }
func (h *baseHub) IsConnected() bool       { return h.peripheral.IsConnected() }
func (h *baseHub) Properties() *Properties { return h.props }
func (h *baseHub) PortMap() *PortMap       { return h.props.PortMap }

func (h *baseHub) Send(msg *protocol.Message) error {
	return h.SendRaw(msg.Encode())
}

func (h *baseHub) SendRaw(data []byte) error {
	if err := h.peripheral.WriteCharacteristic(h.control, data); err != nil {
		return fmt.Errorf("send to %s: %w", h.peripheral.Address(), err)
	}
	return nil
}

func (h *baseHub) Subscribe(c adapter.Characteristic) error {
	return h.peripheral.Subscribe(c)
}

func (h *baseHub) Disconnect() error {
	return h.peripheral.Disconnect()
}
