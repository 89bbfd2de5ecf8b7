// Package adapter abstracts the local BLE adapter stack behind small
// interfaces, and serializes all adapter-level access through a single-owner
// Host actor. Concrete implementations live in subpackages (goble).
package adapter

import (
	"context"
	"errors"
	"fmt"
)

// Errors surfaced by adapter implementations.
var (
	// ErrAdapterUnavailable indicates no usable local adapter.
	ErrAdapterUnavailable = errors.New("adapter unavailable")

	// ErrConnectFailed wraps any hardware-stack failure while establishing
	// a connection or enumerating characteristics.
	ErrConnectFailed = errors.New("connect failed")
)

// PeripheralNotFoundError indicates no peripheral is known at the address.
type PeripheralNotFoundError struct {
	Addr string
}

func (e *PeripheralNotFoundError) Error() string {
	return fmt.Sprintf("no peripheral found at %s", e.Addr)
}

// CharacteristicMissingError indicates a required characteristic was not
// among those enumerated on a connected peripheral.
type CharacteristicMissingError struct {
	UUID string
	Addr string
}

func (e *CharacteristicMissingError) Error() string {
	return fmt.Sprintf("peripheral %s does not expose characteristic %s", e.Addr, e.UUID)
}

// EventType discriminates low-level adapter events.
type EventType int

const (
	// EventDeviceDiscovered reports an advertisement from a peripheral.
	EventDeviceDiscovered EventType = iota
)

// Event is a low-level adapter event. The stream is bounded; producers on
// hardware-owned goroutines block when it is full rather than dropping.
type Event struct {
	Type EventType
	Addr string
}

// Properties is a snapshot of a peripheral's advertised properties.
type Properties struct {
	LocalName        string
	Services         []string
	ManufacturerData map[uint16][]byte
}

// Characteristic is an enumerated GATT characteristic handle.
type Characteristic interface {
	UUID() string
}

// Peripheral is a handle to a remote device resolved by address.
type Peripheral interface {
	Address() string
	Properties() Properties
	IsConnected() bool

	Connect(ctx context.Context) error
	DiscoverCharacteristics() ([]Characteristic, error)

	// SetNotificationHandler installs the raw-byte callback invoked from
	// hardware-stack goroutines for every characteristic update. It must
	// be set before Subscribe.
	SetNotificationHandler(fn func(data []byte))
	Subscribe(c Characteristic) error

	WriteCharacteristic(c Characteristic, data []byte) error
	Disconnect() error
}

// Adapter is a local BLE adapter. Implementations are not required to be
// safe for concurrent use; the Host actor serializes access.
type Adapter interface {
	// StartScan begins advertising discovery and returns the bounded
	// event stream. The stream is closed only if the underlying event
	// source dies, which callers treat as fatal.
	StartScan(ctx context.Context) (<-chan Event, error)

	// Peripheral resolves a handle for a previously observed address.
	Peripheral(addr string) (Peripheral, error)

	Stop() error
}
