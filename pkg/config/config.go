// Package config holds SDK and CLI configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/FeelRobotics/KiirooControlSDK/pkg/ota"
)

// Config holds application configuration. Zero fields are filled from the
// default tags; a YAML file overrides them.
type Config struct {
	LogLevel       string        `yaml:"log_level" default:"info"`
	Platform       string        `yaml:"platform" default:"ios"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"30s"`
	ScanTimeout    time.Duration `yaml:"scan_timeout" default:"10s"`

	// OTA timings. Settle delay is the peripheral's flash-buffer grace
	// period; reboot delay is how long to wait before verification.
	DesiredMTU  int           `yaml:"desired_mtu" default:"258"`
	SettleDelay time.Duration `yaml:"settle_delay" default:"2s"`
	RebootDelay time.Duration `yaml:"reboot_delay" default:"10s"`
}

// Default returns the configuration with all default values applied.
func Default() *Config {
	c := &Config{}
	defaults.SetDefaults(c)
	return c
}

// UnmarshalYAML overlays a YAML document onto the configuration. Durations
// are written as strings ("30s", "2m"); absent keys keep their current
// values, so decoding into a Default() config yields defaults-plus-overrides.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type raw struct {
		LogLevel       string `yaml:"log_level"`
		Platform       string `yaml:"platform"`
		ConnectTimeout string `yaml:"connect_timeout"`
		ScanTimeout    string `yaml:"scan_timeout"`
		DesiredMTU     int    `yaml:"desired_mtu"`
		SettleDelay    string `yaml:"settle_delay"`
		RebootDelay    string `yaml:"reboot_delay"`
	}
	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}

	if r.LogLevel != "" {
		c.LogLevel = r.LogLevel
	}
	if r.Platform != "" {
		c.Platform = r.Platform
	}
	if r.DesiredMTU != 0 {
		c.DesiredMTU = r.DesiredMTU
	}
	for _, d := range []struct {
		key string
		in  string
		out *time.Duration
	}{
		{"connect_timeout", r.ConnectTimeout, &c.ConnectTimeout},
		{"scan_timeout", r.ScanTimeout, &c.ScanTimeout},
		{"settle_delay", r.SettleDelay, &c.SettleDelay},
		{"reboot_delay", r.RebootDelay, &c.RebootDelay},
	} {
		if d.in == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.in)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.out = parsed
	}
	return nil
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return c, nil
}

// Profile resolves the configured platform string.
func (c *Config) Profile() (ota.PlatformProfile, error) {
	return ota.ParsePlatformProfile(c.Platform)
}

// NewLogger creates a configured logger instance.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger, nil
}
