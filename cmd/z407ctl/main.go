package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "z407ctl",
	Short: "Remote control for the Logitech Z407 speaker over Bluetooth LE",
	Long: `z407ctl connects to a Logitech Z407 speaker over Bluetooth Low Energy and
drives it like the physical control dial: volume, play/pause, input
selection, Bluetooth pairing and factory reset.

Run "z407ctl serve" to expose the speaker over HTTP with a small web page.`,
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit.
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().String("config", "", "path to config file (default: ~/.config/z407ctl/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().String("address", "", "speaker address; overrides device.address")
}
