package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaz8081/z407ctl/internal/ble"
	"github.com/chaz8081/z407ctl/internal/ble/protocol"
	"github.com/chaz8081/z407ctl/internal/remote"
)

var sendCmd = &cobra.Command{
	Use:   "send <action>",
	Short: "Connect, send one command and print the resulting status",
	Long: `Connect to the speaker, send one command and print the status as JSON
once the speaker has had time to report the change.

Actions: ` + actionList(),
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().Duration("settle", time.Second, "time to wait for notifications after sending")
}

func actionList() string {
	names := make([]string, len(protocol.UserActions))
	for i, a := range protocol.UserActions {
		names[i] = a.String()
	}
	return strings.Join(names, ", ")
}

func runSend(cmd *cobra.Command, args []string) error {
	action, err := protocol.ParseAction(args[0])
	if err != nil {
		return fmt.Errorf("%w (valid: %s)", err, actionList())
	}
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	settle, _ := cmd.Flags().GetDuration("settle")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := preflight(cfg); err != nil {
		return err
	}
	adapter := ble.NewTinyGoAdapter()
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("enable bluetooth adapter: %w", err)
	}

	opts := remoteOptions(cfg)
	opts.Reconnect = false
	rem := remote.New(adapter, opts)
	defer func() {
		if err := rem.Shutdown(); err != nil {
			slog.Warn("[Z407] shutdown", "error", err)
		}
	}()

	if err := rem.Acquire(ctx); err != nil {
		return err
	}
	if err := rem.Send(action); err != nil {
		return err
	}

	select {
	case <-time.After(settle):
	case <-ctx.Done():
		return ctx.Err()
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rem.Status())
}
