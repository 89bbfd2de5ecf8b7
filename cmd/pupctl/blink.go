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

// blinkCmd connects to a hub and blinks its status LED, as a quick
// end-to-end connectivity check.
var blinkCmd = &cobra.Command{
	Use:   "blink",
	Short: "Connect to a hub and blink its status LED",
	Long: `Wait for a Powered Up hub, connect to it, and blink its status LED.

This exercises the full connection path: discovery, identification,
connection with retry, characteristic subscription, and port commands.`,
	RunE: runBlink,
}

var (
	blinkName    string
	blinkAddress string
	blinkWait    time.Duration
	blinkCount   int
	blinkVerbose bool
)

func init() {
	blinkCmd.Flags().StringVarP(&blinkName, "name", "n", "", "Wait for a hub advertising this name")
	blinkCmd.Flags().StringVar(&blinkAddress, "address", "", "Wait for the hub at this address")
	blinkCmd.Flags().DurationVarP(&blinkWait, "wait", "w", 30*time.Second, "How long to wait for a matching hub")
	blinkCmd.Flags().IntVar(&blinkCount, "count", 5, "Number of blinks")
	blinkCmd.Flags().BoolVar(&blinkVerbose, "verbose", false, "Enable debug logging")
}

func runBlink(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	pu, err := startPoweredUp(cmd, logger)
	if err != nil {
		return err
	}
	defer pu.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nCtrl+C pressed, aborting...")
		cancel()
	}()

	var filter poweredup.HubFilter
	if blinkAddress != "" {
		filter = poweredup.FilterByAddress(blinkAddress)
	} else if blinkName != "" {
		filter = poweredup.FilterByName(blinkName)
	}

	fmt.Println("Waiting for a Powered Up hub...")
	discovered, err := pu.WaitForHubFilterTimeout(ctx, filter, blinkWait)
	if err != nil {
		return fmt.Errorf("no matching hub found: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("Found %s\n", discovered)

	hub, err := pu.CreateHub(ctx, discovered)
	if err != nil {
		return err
	}
	defer hub.Disconnect(context.Background())
	green.Printf("Connected to %s (%s)\n", hub.Name(), hub.Kind())

	port, err := hub.Port(ctx, poweredup.PortHubLED)
	if err != nil {
		return fmt.Errorf("hub has no status LED port: %w", err)
	}
	led, ok := port.LED()
	if !ok {
		return fmt.Errorf("port %s is not a LED", port.Port())
	}

	for i := 0; i < blinkCount; i++ {
		if err := led.SetRGB(ctx, 0x00, 0xff, 0x00); err != nil {
			return fmt.Errorf("failed to set LED colour: %w", err)
		}
		if err := sleepCtx(ctx, 500*time.Millisecond); err != nil {
			return err
		}
		if err := led.SetRGB(ctx, 0x00, 0x00, 0x00); err != nil {
			return fmt.Errorf("failed to clear LED: %w", err)
		}
		if err := sleepCtx(ctx, 500*time.Millisecond); err != nil {
			return err
		}
	}

	fmt.Println("Done")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
