package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chaz8081/z407ctl/internal/config"
	"github.com/chaz8081/z407ctl/internal/remote"
)

// setup loads the config, applies global flag overrides, validates the
// result and installs the default logger.
func setup(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("address") {
		cfg.Device.Address, _ = cmd.Flags().GetString("address")
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}

// remoteOptions maps the device section of the config onto remote.Options.
func remoteOptions(cfg *config.Config) remote.Options {
	d := cfg.Device
	return remote.Options{
		Address:        d.Address,
		ScanTimeout:    d.ScanTimeout,
		Cooldown:       d.Cooldown,
		MaxAttempts:    d.MaxAttempts,
		AcquireTimeout: d.AcquireTimeout,
		ConnectTimeout: d.ConnectTimeout,
		Reconnect:      d.Reconnect,
		ReconnectMax:   d.ReconnectMax,
	}
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	address := cfg.Device.Address
	if address == "" {
		address = "first found"
	}
	fmt.Println("=== z407ctl ===")
	fmt.Printf("  Speaker:  %s\n", address)
	fmt.Printf("  Scan:     %s x %d (cooldown %s)\n", cfg.Device.ScanTimeout, cfg.Device.MaxAttempts, cfg.Device.Cooldown)
	fmt.Printf("  HTTP:     %s\n", cfg.HTTP.Listen)
	fmt.Printf("  Log:      %s\n", cfg.LogLevel)
	fmt.Println("===============")
}
