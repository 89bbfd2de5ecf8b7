package hub

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/brickble/poweredup/internal/adapter"
	"github.com/brickble/poweredup/internal/protocol"
)

// TechnicHub is the Technic Medium Hub (four external ports, LED, and the
// internal sensor suite).
type TechnicHub struct {
	baseHub
}

func technicPortMap() *PortMap {
	m := orderedmap.New[Port, byte]()
	m.Set(PortA, 0x00)
	m.Set(PortB, 0x01)
	m.Set(PortC, 0x02)
	m.Set(PortD, 0x03)
	m.Set(PortHubLED, 0x32)
	m.Set(PortCurrentSensor, 0x3b)
	m.Set(PortVoltageSensor, 0x3c)
	m.Set(PortTemperatureSensor1, 0x3d)
	m.Set(PortTemperatureSensor2, 0x60)
	m.Set(PortAccelerometer, 0x61)
	m.Set(PortGyroSensor, 0x62)
	m.Set(PortTiltSensor, 0x63)
	m.Set(PortGestureSensor, 0x64)
	return m
}

// NewTechnicHub wraps a connected peripheral as a Technic Medium Hub.
func NewTechnicHub(p adapter.Peripheral, chars []adapter.Characteristic) (*TechnicHub, error) {
	base, err := newBaseHub(protocol.HubKindTechnicMediumHub, p, chars, technicPortMap())
	if err != nil {
		return nil, err
	}
	return &TechnicHub{baseHub: base}, nil
}
