package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/brickble/poweredup"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Powered Up hubs",
	Long: `Scan for LEGO Powered Up hubs in the vicinity.

Discovered hubs are identified from their advertisements and printed as
they appear, with their kind, address, and advertised name.`,
	RunE: runScan,
}

var (
	scanDuration time.Duration
	scanName     string
	scanAddress  string
	scanVerbose  bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration (0 for indefinite)")
	scanCmd.Flags().StringVarP(&scanName, "name", "n", "", "Only show hubs advertising this name")
	scanCmd.Flags().StringVar(&scanAddress, "address", "", "Only show the hub at this address")
	scanCmd.Flags().BoolVar(&scanVerbose, "verbose", false, "Enable debug logging")
}

func runScan(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	pu, err := startPoweredUp(cmd, logger)
	if err != nil {
		return err
	}
	defer pu.Stop()

	baseCtx := context.Background()
	if scanDuration > 0 {
		var cancel context.CancelFunc
		baseCtx, cancel = context.WithTimeout(baseCtx, scanDuration)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	// Listen for Ctrl+C to cancel
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nCtrl+C pressed, cancelling scan...")
		cancel()
	}()

	filter := hubFilter()
	kindColor := color.New(color.FgCyan, color.Bold)

	fmt.Println("Scanning for Powered Up hubs... (Ctrl+C to stop)")
	seen := make(map[string]bool)
	for {
		hub, err := pu.WaitForHubFilter(ctx, filter)
		if err != nil {
			break
		}
		// Hubs re-advertise constantly; print each one once.
		if seen[hub.Addr] {
			continue
		}
		seen[hub.Addr] = true
		kindColor.Printf("%-18s", hub.Kind)
		fmt.Printf("  %s  %s\n", hub.Addr, hub.Name)
	}

	if len(seen) == 0 {
		fmt.Println("No hubs discovered")
	}
	return nil
}

// hubFilter builds a discovery filter from the --name/--address flags.
// Address wins when both are given.
func hubFilter() poweredup.HubFilter {
	if scanAddress != "" {
		return poweredup.FilterByAddress(scanAddress)
	}
	if scanName != "" {
		return poweredup.FilterByName(scanName)
	}
	return nil
}
