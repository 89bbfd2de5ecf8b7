package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/brickble/poweredup"
)

// adaptersCmd lists the local Bluetooth adapters.
var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List local Bluetooth adapters",
	RunE:  runAdapters,
}

func runAdapters(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	adapters, err := poweredup.Adapters()
	if err != nil {
		return fmt.Errorf("failed to enumerate Bluetooth adapters: %w", err)
	}
	if len(adapters) == 0 {
		fmt.Println("No Bluetooth adapters found")
		return nil
	}

	bold := color.New(color.Bold)
	for i, name := range adapters {
		bold.Printf("%d", i)
		fmt.Printf("  %s\n", name)
	}
	return nil
}
