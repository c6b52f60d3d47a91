package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/FeelRobotics/KiirooControlSDK/internal/goble"
	"github.com/FeelRobotics/KiirooControlSDK/pkg/config"
	"github.com/FeelRobotics/KiirooControlSDK/pkg/control"
)

// loadConfig resolves the effective configuration: defaults, then the YAML
// file named by --config, then individual flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	// --log-level takes precedence over the file
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if platform, _ := cmd.Flags().GetString("platform"); platform != "" {
		cfg.Platform = platform
	}
	if _, err := cfg.Profile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newDevice builds a facade over the production go-ble transport.
func newDevice(cfg *config.Config, logger *logrus.Logger, address string) (*control.Device, error) {
	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}
	transport := goble.NewTransport(logger)
	return control.NewDevice(address, transport, control.Options{
		Profile:     profile,
		Logger:      logger,
		DesiredMTU:  cfg.DesiredMTU,
		SettleDelay: cfg.SettleDelay,
		RebootDelay: cfg.RebootDelay,
	}), nil
}
