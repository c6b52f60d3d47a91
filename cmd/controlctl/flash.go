package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/FeelRobotics/KiirooControlSDK/pkg/ota"
)

// flashCmd represents the flash command
var flashCmd = &cobra.Command{
	Use:   "flash <address> <image.bin>",
	Short: "Flash firmware over the air",
	Long: `Transfer a firmware image to a Control device and wait for it to apply
the update and reboot. The transfer is not resumable: if it fails, rerun the
command to restart from the beginning.`,
	Args: cobra.ExactArgs(2),
	RunE: runFlash,
}

func runFlash(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	image, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading firmware image: %w", err)
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

	// Rewrite the progress line only on a real terminal; in pipes each value
	// gets its own line.
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	progress := func(percent int) {
		if isTTY {
			fmt.Printf("\r\033[KFlashing... %d%%", percent)
		} else {
			fmt.Printf("progress %d%%\n", percent)
		}
	}

	err = dev.FlashFirmware(cmd.Context(), image, progress)
	if isTTY {
		fmt.Println()
	}
	switch {
	case errors.Is(err, ota.ErrFlashUnverified):
		color.Yellow("Transfer finished but the device did not reconnect; it may still have applied the update.")
		return err
	case err != nil:
		return err
	}

	color.Green("Firmware flashed and device verified (%d bytes).", len(image))
	return nil
}
