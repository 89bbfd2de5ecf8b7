//go:build linux

package goble

import (
	"os"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

func newDevice(id int) (ble.Device, error) {
	return linux.NewDevice(ble.OptDeviceID(id))
}

// ListAdapters enumerates local HCI adapters by name.
func ListAdapters() ([]string, error) {
	entries, err := os.ReadDir("/sys/class/bluetooth")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
