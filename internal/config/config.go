package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Device   DeviceConfig `yaml:"device"`
	HTTP     HTTPConfig   `yaml:"http"`
	BlueZ    BlueZConfig  `yaml:"bluez"`
	LogLevel string       `yaml:"log_level"`
}

// DeviceConfig holds speaker discovery and connection settings.
type DeviceConfig struct {
	Address        string        `yaml:"address"` // empty: first speaker found
	ScanTimeout    time.Duration `yaml:"scan_timeout"`
	Cooldown       time.Duration `yaml:"cooldown"`
	MaxAttempts    int           `yaml:"max_attempts"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Reconnect      bool          `yaml:"reconnect"`
	ReconnectMax   int           `yaml:"reconnect_max"` // seconds
}

// HTTPConfig holds the control server settings.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// BlueZConfig holds Linux adapter settings.
type BlueZConfig struct {
	Adapter string `yaml:"adapter"`
	PowerOn bool   `yaml:"power_on"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "z407ctl")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			ScanTimeout:    10 * time.Second,
			Cooldown:       2 * time.Second,
			MaxAttempts:    5,
			AcquireTimeout: 2 * time.Minute,
			ConnectTimeout: 10 * time.Second,
			Reconnect:      true,
			ReconnectMax:   30,
		},
		HTTP: HTTPConfig{
			Listen: ":8000",
		},
		BlueZ: BlueZConfig{
			Adapter: "hci0",
			PowerOn: true,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Device.Address = strings.TrimSpace(cfg.Device.Address)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Device.ScanTimeout <= 0 {
		return fmt.Errorf("device.scan_timeout must be > 0")
	}
	if c.Device.Cooldown < 0 {
		return fmt.Errorf("device.cooldown must not be negative")
	}
	if c.Device.MaxAttempts <= 0 {
		return fmt.Errorf("device.max_attempts must be > 0")
	}
	if c.Device.AcquireTimeout < 0 {
		return fmt.Errorf("device.acquire_timeout must not be negative")
	}
	if c.Device.ConnectTimeout <= 0 {
		return fmt.Errorf("device.connect_timeout must be > 0")
	}
	if c.Device.ReconnectMax <= 0 {
		return fmt.Errorf("device.reconnect_max must be > 0")
	}

	if c.HTTP.Listen == "" {
		return fmt.Errorf("http.listen must not be empty")
	}

	if c.BlueZ.Adapter == "" {
		return fmt.Errorf("bluez.adapter must not be empty")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// Marshal encodes the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// ParseLogLevel maps a config log level to slog. Unknown values are info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# z407ctl configuration
# Durations use Go syntax: 500ms, 10s, 2m.
# device.address restricts discovery to one speaker; leave empty to use the
# first Z407 found.
`

// WriteDefault writes the default config to DefaultConfigPath. It returns
// ("", nil) when a config file already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking config file: %w", err)
	}

	data, err := Default().Marshal()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}
