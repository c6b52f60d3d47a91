package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// newLogger creates a logger from the effective configuration. Commands that
// print human output keep the logger quiet by default; --log-level opens it up.
func newLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level == "" {
		// No explicit level: log only real problems under the human output.
		cfg.LogLevel = "error"
	}
	return cfg.NewLogger()
}
