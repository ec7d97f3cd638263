package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Acquire finds and connects to the speaker at startup. Each attempt scans
// for up to ScanTimeout, takes the first candidate and connects; a failed
// attempt waits Cooldown and scans again. After MaxAttempts failures it
// returns ErrAcquisitionFailed and the caller must not serve requests.
func (r *Remote) Acquire(ctx context.Context) error {
	if r.opts.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.AcquireTimeout)
		defer cancel()
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		attempts = attempt
		lastErr = r.acquireOnce(ctx)
		if lastErr == nil {
			return nil
		}
		slog.Warn("[Z407] acquisition attempt failed",
			"attempt", attempt,
			"max", r.opts.MaxAttempts,
			"error", lastErr)

		if attempt == r.opts.MaxAttempts {
			break
		}
		if err := sleepContext(ctx, r.opts.Cooldown); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrAcquisitionFailed, attempts, lastErr)
}

// acquireOnce is a single scan-and-connect attempt.
func (r *Remote) acquireOnce(ctx context.Context) error {
	scanCtx, cancel := context.WithTimeout(ctx, r.opts.ScanTimeout)
	defer cancel()

	var address string
	for d, err := range r.Discover(scanCtx) {
		if err != nil {
			return err
		}
		slog.Info("[Z407] found speaker", "address", d.Address, "name", d.Name, "rssi", d.RSSI)
		address = d.Address
		break
	}
	if address == "" {
		return ErrDiscoveryTimeout
	}

	if err := r.Connect(ctx, address); err != nil {
		return err
	}
	// A session that is already gone counts as a failure; the next attempt
	// rescans rather than retrying this candidate.
	if !r.TransportConnected() {
		_ = r.Disconnect()
		return fmt.Errorf("%w: %s not connected", ErrConnectFailure, address)
	}
	return nil
}

// backoffDelay returns the reconnection delay for attempt n, capped at maxSeconds.
func backoffDelay(attempt int, maxSeconds int) time.Duration {
	max := time.Duration(maxSeconds) * time.Second
	if attempt >= 30 {
		return max
	}
	delay := time.Duration(1<<uint(attempt)) * time.Second
	if delay > max {
		return max
	}
	return delay
}

// reconnectLoop reconnects to address with exponential backoff until it
// succeeds or Shutdown is called.
func (r *Remote) reconnectLoop(address string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-r.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for attempt := 0; ; attempt++ {
		// On the first attempt, try immediately; subsequent attempts use backoff.
		if attempt > 0 {
			delay := backoffDelay(attempt-1, r.opts.ReconnectMax)
			slog.Info("[Z407] reconnect backoff", "attempt", attempt+1, "delay", delay)
			if err := sleepContext(ctx, delay); err != nil {
				r.stopReconnecting()
				return
			}
		}
		if r.isClosed() {
			r.stopReconnecting()
			return
		}

		if err := r.Connect(ctx, address); err != nil {
			slog.Warn("[Z407] reconnect failed", "error", err, "attempt", attempt+1)
			continue
		}
		if r.isClosed() {
			r.stopReconnecting()
			_ = r.Disconnect()
			return
		}

		// A drop after Connect returned sees reconnecting still set and
		// leaves recovery to this loop, so the link is checked under mu.
		r.mu.Lock()
		up := r.established && r.conn != nil && r.conn.Connected()
		if up {
			r.reconnecting = false
		}
		r.mu.Unlock()
		if !up {
			slog.Warn("[Z407] link lost right after reconnect", "attempt", attempt+1)
			_ = r.Disconnect()
			continue
		}
		slog.Info("[Z407] reconnected", "address", address)
		return
	}
}

func (r *Remote) stopReconnecting() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconnecting = false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
