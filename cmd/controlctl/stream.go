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

	"github.com/FeelRobotics/KiirooControlSDK/pkg/sensor"
)

// streamCmd represents the stream command
var streamCmd = &cobra.Command{
	Use:   "stream <address>",
	Short: "Stream the sensor percent signal",
	Long: `Connect to a Control device and print its debounced acceleration signal
as percent values. Only changes are printed; press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runStream,
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	dev, err := newDevice(cfg, logger, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectTimeout)
	defer cancel()
	if err := dev.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = dev.Disconnect(context.Background()) }()

	highlight := color.New(color.FgGreen, color.Bold)
	sub := dev.Bus().Subscribe(dev.ID(), func(ev sensor.Event) {
		fmt.Printf("%s  %s\n", time.Now().Format("15:04:05.000"), highlight.Sprintf("%3d%%", ev.Percent))
	})
	defer dev.Bus().Unsubscribe(sub)

	fmt.Fprintf(os.Stderr, "Streaming from %s, Ctrl+C to stop\n", dev.ID())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-sig:
	case <-cmd.Context().Done():
	}
	return nil
}
