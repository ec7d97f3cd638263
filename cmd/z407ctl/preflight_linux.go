//go:build linux

package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chaz8081/z407ctl/internal/bluez"
	"github.com/chaz8081/z407ctl/internal/config"
)

// preflight checks the BlueZ adapter before any BLE work starts.
func preflight(cfg *config.Config) error {
	client, err := bluez.Dial(cfg.BlueZ.Adapter)
	if err != nil {
		if errors.Is(err, bluez.ErrNotRunning) {
			return err
		}
		return fmt.Errorf("bluez preflight: %w", err)
	}
	defer client.Close()

	if err := client.EnsurePowered(cfg.BlueZ.PowerOn); err != nil {
		return err
	}
	slog.Debug("[BlueZ] adapter powered", "adapter", cfg.BlueZ.Adapter)

	if cfg.Device.Address == "" {
		return nil
	}
	connected, err := client.DeviceConnected(cfg.Device.Address)
	if err != nil {
		slog.Warn("[BlueZ] could not query device", "address", cfg.Device.Address, "error", err)
		return nil
	}
	if connected {
		slog.Warn("[BlueZ] speaker already has a connection from this host", "address", cfg.Device.Address)
	}
	return nil
}
