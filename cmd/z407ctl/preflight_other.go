//go:build !linux

package main

import "github.com/chaz8081/z407ctl/internal/config"

// preflight is a no-op where BlueZ is not the Bluetooth stack.
func preflight(*config.Config) error {
	return nil
}
