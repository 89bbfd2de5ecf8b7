//go:build darwin

package goble

import (
	"fmt"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
)

func newDevice(id int) (ble.Device, error) {
	// CoreBluetooth exposes a single central manager.
	if id != 0 {
		return nil, fmt.Errorf("adapter index %d is not available on darwin", id)
	}
	return darwin.NewDevice()
}

// ListAdapters enumerates local adapters. CoreBluetooth only ever exposes
// the default one.
func ListAdapters() ([]string, error) {
	return []string{"default"}, nil
}
