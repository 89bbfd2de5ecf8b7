package hub

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/brickble/poweredup/internal/adapter"
	"github.com/brickble/poweredup/internal/protocol"
)

// MoveHub is the Boost Move Hub: two internal motors (individually and as
// the virtual AB pair), two external ports, LED, and internal tilt sensor.
type MoveHub struct {
	baseHub
}

func moveHubPortMap() *PortMap {
	m := orderedmap.New[Port, byte]()
	m.Set(PortA, 0x00)
	m.Set(PortB, 0x01)
	m.Set(PortAB, 0x10)
	m.Set(PortC, 0x02)
	m.Set(PortD, 0x03)
	m.Set(PortHubLED, 0x32)
	m.Set(PortTiltSensor, 0x3a)
	m.Set(PortCurrentSensor, 0x3b)
	m.Set(PortVoltageSensor, 0x3c)
	return m
}

// NewMoveHub wraps a connected peripheral as a Boost Move Hub.
func NewMoveHub(p adapter.Peripheral, chars []adapter.Characteristic) (*MoveHub, error) {
	base, err := newBaseHub(protocol.HubKindMoveHub, p, chars, moveHubPortMap())
	if err != nil {
		return nil, err
	}
	return &MoveHub{baseHub: base}, nil
}
