package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaz8081/z407ctl/internal/ble"
	"github.com/chaz8081/z407ctl/internal/remote"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List nearby Z407 speakers",
	Long: `Scan for speakers advertising the Z407 control service and print each
one once, as it is found.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationP("timeout", "t", 10*time.Second, "scan duration")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		return fmt.Errorf("--timeout must be > 0")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := preflight(cfg); err != nil {
		return err
	}
	adapter := ble.NewTinyGoAdapter()
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("enable bluetooth adapter: %w", err)
	}
	rem := remote.New(adapter, remoteOptions(cfg))

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tNAME\tRSSI")
	count := 0
	for dev, err := range rem.Discover(ctx) {
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		count++
		fmt.Fprintf(w, "%s\t%s\t%d\n", dev.Address, dev.Name, dev.RSSI)
		w.Flush()
	}

	// The timeout is the normal way out; Ctrl+C exits quietly.
	if errors.Is(ctx.Err(), context.Canceled) {
		return context.Canceled
	}
	if count == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no speakers found")
	}
	return nil
}
