package remote

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"github.com/chaz8081/z407ctl/internal/ble"
)

// Discover scans for speakers until ctx ends or the caller stops ranging.
// Every range starts a fresh scan session; within a session each address is
// yielded once. If the scan itself fails the last pair carries the error.
// The radio is released before the range loop returns.
func (r *Remote) Discover(ctx context.Context) iter.Seq2[ble.Device, error] {
	return func(yield func(ble.Device, error) bool) {
		ctx, cancel := context.WithCancel(ctx)

		found := make(chan ble.Device)
		scanDone := make(chan struct{})
		var scanErr error
		go func() {
			defer close(scanDone)
			scanErr = r.scan(ctx, func(d ble.Device) {
				select {
				case found <- d:
				case <-ctx.Done():
				}
			})
		}()
		defer func() {
			cancel()
			<-scanDone
		}()

		seen := make(map[string]bool)
		for {
			select {
			case d := <-found:
				if r.opts.Address != "" && !strings.EqualFold(d.Address, r.opts.Address) {
					continue
				}
				key := strings.ToUpper(d.Address)
				if seen[key] {
					continue
				}
				seen[key] = true
				slog.Debug("[BLE] discovered", "address", d.Address, "name", d.Name, "rssi", d.RSSI)
				if !yield(d, nil) {
					return
				}
			case <-scanDone:
				if scanErr != nil {
					yield(ble.Device{}, scanErr)
				}
				return
			}
		}
	}
}

// scan runs one adapter scan session until ctx ends. StopScan is issued at
// most once, and only while the session is still running.
func (r *Remote) scan(ctx context.Context, found func(ble.Device)) error {
	var (
		mu       sync.Mutex
		finished bool
		released bool
	)
	release := func() {
		mu.Lock()
		defer mu.Unlock()
		if finished || released {
			return
		}
		released = true
		if err := r.adapter.StopScan(); err != nil {
			slog.Debug("[BLE] stop scan", "error", err)
		}
	}

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			release()
		case <-watchDone:
		}
	}()

	err := r.adapter.Scan(ble.ServiceUUID, found)

	mu.Lock()
	finished = true
	mu.Unlock()

	if err != nil {
		return fmt.Errorf("remote: scan: %w", err)
	}
	return nil
}
