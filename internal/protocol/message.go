package protocol

import (
	"encoding/hex"
	"fmt"
)

// MessageType is the LPF2 common-header message type octet.
type MessageType byte

const (
	MessageHubProperties        MessageType = 0x01
	MessageHubActions           MessageType = 0x02
	MessageHubAlerts            MessageType = 0x03
	MessageHubAttachedIO        MessageType = 0x04
	MessageGenericError         MessageType = 0x05
	MessagePortInformation      MessageType = 0x43
	MessagePortInputFormatSetup MessageType = 0x41
	MessagePortValueSingle      MessageType = 0x45
	MessagePortInputFormat      MessageType = 0x47
	MessagePortOutputCommand    MessageType = 0x81
	MessagePortOutputFeedback   MessageType = 0x82
)

func (t MessageType) String() string {
	switch t {
	case MessageHubProperties:
		return "HubProperties"
	case MessageHubActions:
		return "HubActions"
	case MessageHubAlerts:
		return "HubAlerts"
	case MessageHubAttachedIO:
		return "HubAttachedIO"
	case MessageGenericError:
		return "GenericError"
	case MessagePortInformation:
		return "PortInformation"
	case MessagePortInputFormatSetup:
		return "PortInputFormatSetup"
	case MessagePortValueSingle:
		return "PortValueSingle"
	case MessagePortInputFormat:
		return "PortInputFormat"
	case MessagePortOutputCommand:
		return "PortOutputCommand"
	case MessagePortOutputFeedback:
		return "PortOutputFeedback"
	default:
		return fmt.Sprintf("MessageType(0x%02x)", byte(t))
	}
}

// ParseError reports a raw buffer that could not be decoded as an LPF2
// message. Parse failures never fail the owning connection; callers log
// and drop them.
type ParseError struct {
	Reason string
	Raw    []byte
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failure: %s (raw %s)", e.Reason, hex.EncodeToString(e.Raw))
}

// Message is a decoded LPF2 frame: common header stripped, payload kept raw.
// Typed views over the payload are provided per message type.
type Message struct {
	Type    MessageType
	Payload []byte
}

func (m *Message) String() string {
	return fmt.Sprintf("%s %s", m.Type, hex.EncodeToString(m.Payload))
}

// ParseMessage decodes the LPF2 common header (length, hub id, message type)
// and validates the declared length against the buffer. Lengths above 127
// use the two-byte continuation form.
func ParseMessage(buf []byte) (*Message, error) {
	if len(buf) < 3 {
		return nil, &ParseError{Reason: "buffer shorter than common header", Raw: buf}
	}

	length := int(buf[0])
	header := 3
	if buf[0]&0x80 != 0 {
		length = int(buf[0]&0x7f) | int(buf[1])<<7
		header = 4
		if len(buf) < header {
			return nil, &ParseError{Reason: "truncated extended header", Raw: buf}
		}
	}
	if length != len(buf) {
		return nil, &ParseError{
			Reason: fmt.Sprintf("declared length %d does not match buffer length %d", length, len(buf)),
			Raw:    buf,
		}
	}

	return &Message{
		Type:    MessageType(buf[header-1]),
		Payload: buf[header:],
	}, nil
}

// Encode produces the wire form of the message, prepending the common
// header. Messages longer than 127 bytes use the extended length form.
func (m *Message) Encode() []byte {
	total := len(m.Payload) + 3
	if total > 127 {
		total++
		buf := make([]byte, 0, total)
		buf = append(buf, byte(total&0x7f)|0x80, byte(total>>7), 0x00, byte(m.Type))
		return append(buf, m.Payload...)
	}
	buf := make([]byte, 0, total)
	buf = append(buf, byte(total), 0x00, byte(m.Type))
	return append(buf, m.Payload...)
}

// AttachedIO is the decoded form of a HubAttachedIO message.
type AttachedIO struct {
	PortID   byte
	Event    IOEvent
	IOTypeID uint16 // zero on detach
}

// IOEvent describes an attach/detach transition on a hub port.
type IOEvent byte

const (
	IODetached        IOEvent = 0x00
	IOAttached        IOEvent = 0x01
	IOAttachedVirtual IOEvent = 0x02
)

// AttachedIO decodes a HubAttachedIO payload.
func (m *Message) AttachedIO() (*AttachedIO, error) {
	if m.Type != MessageHubAttachedIO {
		return nil, &ParseError{Reason: "not a HubAttachedIO message", Raw: m.Payload}
	}
	if len(m.Payload) < 2 {
		return nil, &ParseError{Reason: "HubAttachedIO payload too short", Raw: m.Payload}
	}
	a := &AttachedIO{PortID: m.Payload[0], Event: IOEvent(m.Payload[1])}
	if a.Event != IODetached {
		if len(m.Payload) < 4 {
			return nil, &ParseError{Reason: "HubAttachedIO attach payload too short", Raw: m.Payload}
		}
		a.IOTypeID = uint16(m.Payload[2]) | uint16(m.Payload[3])<<8
	}
	return a, nil
}

// GenericError is the decoded form of a GenericError message: the command
// that failed and the hub-reported error code.
type GenericError struct {
	Command MessageType
	Code    byte
}

func (m *Message) GenericError() (*GenericError, error) {
	if m.Type != MessageGenericError {
		return nil, &ParseError{Reason: "not a GenericError message", Raw: m.Payload}
	}
	if len(m.Payload) < 2 {
		return nil, &ParseError{Reason: "GenericError payload too short", Raw: m.Payload}
	}
	return &GenericError{Command: MessageType(m.Payload[0]), Code: m.Payload[1]}, nil
}

// PortValue is the decoded form of a PortValueSingle message.
type PortValue struct {
	PortID byte
	Data   []byte
}

func (m *Message) PortValue() (*PortValue, error) {
	if m.Type != MessagePortValueSingle {
		return nil, &ParseError{Reason: "not a PortValueSingle message", Raw: m.Payload}
	}
	if len(m.Payload) < 1 {
		return nil, &ParseError{Reason: "PortValueSingle payload too short", Raw: m.Payload}
	}
	return &PortValue{PortID: m.Payload[0], Data: m.Payload[1:]}, nil
}

// Port output command startup/completion flags: execute immediately and
// request command feedback.
const outputCommandFlags = 0x11

// StartPower builds a PortOutputCommand that drives a motor port with a raw
// duty cycle via WriteDirectModeData, mode 0. Power is -100..100; 0 floats.
func StartPower(portID byte, power int8) *Message {
	return &Message{
		Type:    MessagePortOutputCommand,
		Payload: []byte{portID, outputCommandFlags, 0x51, 0x00, byte(power)},
	}
}

// StartSpeed builds a PortOutputCommand using the StartSpeed subcommand for
// tacho motors: regulated speed with a max-power ceiling.
func StartSpeed(portID byte, speed int8, maxPower byte) *Message {
	return &Message{
		Type:    MessagePortOutputCommand,
		Payload: []byte{portID, outputCommandFlags, 0x07, byte(speed), maxPower, 0x00},
	}
}

// SetRGB builds a PortOutputCommand that writes an RGB triple to the hub
// LED port via WriteDirectModeData, mode 1.
func SetRGB(portID byte, r, g, b byte) *Message {
	return &Message{
		Type:    MessagePortOutputCommand,
		Payload: []byte{portID, outputCommandFlags, 0x51, 0x01, r, g, b},
	}
}

// PortInputFormatSetup builds the message that enables or disables value
// notifications for a port mode with the given delta threshold.
func PortInputFormatSetup(portID, mode byte, delta uint32, notify bool) *Message {
	n := byte(0)
	if notify {
		n = 1
	}
	return &Message{
		Type: MessagePortInputFormatSetup,
		Payload: []byte{
			portID, mode,
			byte(delta), byte(delta >> 8), byte(delta >> 16), byte(delta >> 24),
			n,
		},
	}
}
