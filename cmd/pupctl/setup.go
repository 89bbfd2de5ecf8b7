package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brickble/poweredup"
)

// startPoweredUp builds the connection layer from the global flags:
// configuration file (if any) and adapter index.
func startPoweredUp(cmd *cobra.Command, logger *logrus.Logger) (*poweredup.PoweredUp, error) {
	cfg := poweredup.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := poweredup.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	idx, _ := cmd.Flags().GetInt("adapter")
	pu, err := poweredup.WithAdapter(idx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start Bluetooth adapter %d: %w", idx, err)
	}
	return pu, nil
}
