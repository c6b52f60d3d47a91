package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <address>",
	Short: "Read device information",
	Long: `Connect to a Control device and read its full information set:
device name, manufacturer, model, serial number, firmware and hardware
versions, and battery level.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
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

	type getter struct {
		label string
		read  func(context.Context) (string, error)
	}
	getters := []getter{
		{"Device name", dev.DeviceName},
		{"Manufacturer", dev.ManufacturerName},
		{"Model", dev.ModelNumber},
		{"Serial number", dev.SerialNumber},
		{"Firmware", dev.FirmwareVersion},
		{"Hardware", dev.HardwareVersion},
	}

	label := color.New(color.FgCyan)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, g := range getters {
		value, err := g.read(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading %s: %w", g.label, err)
		}
		fmt.Fprintf(w, "%s\t%s\n", label.Sprint(g.label), value)
	}
	battery, err := dev.Battery(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading battery: %w", err)
	}
	fmt.Fprintf(w, "%s\t%d%%\n", label.Sprint("Battery"), battery)
	return w.Flush()
}
