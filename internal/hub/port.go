package hub

import "fmt"

// Port is a logical port specification on a hub: the external connectors
// plus the fixed internal devices. The hub's port map translates it to the
// physical port id.
type Port int

const (
	PortA Port = iota
	PortB
	PortC
	PortD
	// PortAB is the virtual port pairing the two internal MoveHub motors.
	PortAB
	PortHubLED
	PortCurrentSensor
	PortVoltageSensor
	PortAccelerometer
	PortGyroSensor
	PortTiltSensor
	PortGestureSensor
	PortTemperatureSensor1
	PortTemperatureSensor2
)

func (p Port) String() string {
	switch p {
	case PortA:
		return "A"
	case PortB:
		return "B"
	case PortC:
		return "C"
	case PortD:
		return "D"
	case PortAB:
		return "AB"
	case PortHubLED:
		return "HubLED"
	case PortCurrentSensor:
		return "CurrentSensor"
	case PortVoltageSensor:
		return "VoltageSensor"
	case PortAccelerometer:
		return "Accelerometer"
	case PortGyroSensor:
		return "GyroSensor"
	case PortTiltSensor:
		return "TiltSensor"
	case PortGestureSensor:
		return "GestureSensor"
	case PortTemperatureSensor1:
		return "TemperatureSensor1"
	case PortTemperatureSensor2:
		return "TemperatureSensor2"
	default:
		return fmt.Sprintf("Port(%d)", int(p))
	}
}
