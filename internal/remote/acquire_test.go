package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chaz8081/z407ctl/internal/ble"
	"github.com/chaz8081/z407ctl/internal/ble/bletest"
)

var speaker = ble.Device{Name: "Z407", Address: testAddr, RSSI: -50}

func TestAcquireSucceedsOnFifthAttempt(t *testing.T) {
	adapter := bletest.NewAdapter(nil, nil, nil, nil, []ble.Device{speaker})
	r := New(adapter, testOptions())

	if err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !r.TransportConnected() {
		t.Error("TransportConnected should be true after Acquire")
	}
	if got := adapter.Scans(); got != 5 {
		t.Errorf("Scans() = %d, want 5", got)
	}
	if got := adapter.Stops(); got != 5 {
		t.Errorf("Stops() = %d, want 5 (one release per scan session)", got)
	}
}

func TestAcquireExhaustsAttempts(t *testing.T) {
	adapter := bletest.NewAdapter()
	r := New(adapter, testOptions())

	err := r.Acquire(context.Background())
	if !errors.Is(err, ErrAcquisitionFailed) {
		t.Fatalf("Acquire() error = %v, want ErrAcquisitionFailed", err)
	}
	if !errors.Is(err, ErrDiscoveryTimeout) {
		t.Errorf("Acquire() error should carry the last cause, got %v", err)
	}
	if got := adapter.Scans(); got != 5 {
		t.Errorf("Scans() = %d, want 5", got)
	}
	if got := adapter.Stops(); got != 5 {
		t.Errorf("Stops() = %d, want 5", got)
	}
	if r.TransportConnected() {
		t.Error("no session should exist after failed acquisition")
	}
}

func TestAcquireRescansAfterConnectFailure(t *testing.T) {
	adapter := bletest.NewAdapter([]ble.Device{speaker}, []ble.Device{speaker})
	adapter.FailConnects(errors.New("connection timed out"))
	r := New(adapter, testOptions())

	if err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got := adapter.Scans(); got != 2 {
		t.Errorf("Scans() = %d, want 2 (connect failure must trigger a rescan)", got)
	}
	if got := adapter.Connects(); got != 2 {
		t.Errorf("Connects() = %d, want 2", got)
	}
}

func TestAcquireDeadSessionCountsAsFailure(t *testing.T) {
	sessions := make([][]ble.Device, 5)
	for i := range sessions {
		sessions[i] = []ble.Device{speaker}
	}
	adapter := bletest.NewAdapter(sessions...)
	adapter.DeadOnArrival(true)
	r := New(adapter, testOptions())

	err := r.Acquire(context.Background())
	if !errors.Is(err, ErrAcquisitionFailed) {
		t.Fatalf("Acquire() error = %v, want ErrAcquisitionFailed", err)
	}
	if !errors.Is(err, ErrConnectFailure) {
		t.Errorf("last cause should be ErrConnectFailure, got %v", err)
	}
	if got := adapter.Scans(); got != 5 {
		t.Errorf("Scans() = %d, want 5", got)
	}
}

func TestAcquireOverallTimeout(t *testing.T) {
	adapter := bletest.NewAdapter()
	opts := testOptions()
	opts.ScanTimeout = time.Second
	opts.AcquireTimeout = 30 * time.Millisecond
	r := New(adapter, opts)

	start := time.Now()
	err := r.Acquire(context.Background())
	if !errors.Is(err, ErrAcquisitionFailed) {
		t.Fatalf("Acquire() error = %v, want ErrAcquisitionFailed", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Acquire() took %v, overall deadline should cut the scan short", elapsed)
	}
	if adapter.Stops() != adapter.Scans() {
		t.Errorf("Stops() = %d, Scans() = %d: every scan must be released", adapter.Stops(), adapter.Scans())
	}
}

func TestDiscoverDeduplicates(t *testing.T) {
	other := ble.Device{Name: "Z407", Address: "11:22:33:44:55:66"}
	adapter := bletest.NewAdapter([]ble.Device{speaker, speaker, other, speaker})
	r := New(adapter, testOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var got []string
	for d, err := range r.Discover(ctx) {
		if err != nil {
			t.Fatalf("Discover() error = %v", err)
		}
		got = append(got, d.Address)
	}

	if len(got) != 2 || got[0] != testAddr || got[1] != other.Address {
		t.Errorf("Discover() = %v, want [%s %s]", got, testAddr, other.Address)
	}
	if adapter.Stops() != 1 {
		t.Errorf("Stops() = %d, want 1", adapter.Stops())
	}
}

func TestDiscoverRestartable(t *testing.T) {
	adapter := bletest.NewAdapter([]ble.Device{speaker}, []ble.Device{speaker})
	r := New(adapter, testOptions())
	seq := r.Discover(context.Background())

	for i := 0; i < 2; i++ {
		found := false
		for d := range seq {
			found = d.Address == testAddr
			break
		}
		if !found {
			t.Fatalf("range %d: speaker not found", i)
		}
	}
	if adapter.Scans() != 2 || adapter.Stops() != 2 {
		t.Errorf("Scans() = %d, Stops() = %d, want 2 and 2", adapter.Scans(), adapter.Stops())
	}
}

func TestDiscoverAddressFilter(t *testing.T) {
	other := ble.Device{Name: "Z407", Address: "11:22:33:44:55:66"}
	adapter := bletest.NewAdapter([]ble.Device{other, speaker})
	opts := testOptions()
	opts.Address = "aa:bb:cc:dd:ee:ff"
	r := New(adapter, opts)

	if err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got := r.Status().Address; got != testAddr {
		t.Errorf("connected to %q, want %q", got, testAddr)
	}
}

func TestReconnectBackoff(t *testing.T) {
	delays := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // capped
		30 * time.Second, // still capped
	}

	for i, want := range delays {
		got := backoffDelay(i, 30)
		if got != want {
			t.Errorf("backoffDelay(%d, 30) = %v, want %v", i, got, want)
		}
	}
}

func TestBackoffDelayOverflowProtection(t *testing.T) {
	// Attempt=100 would cause 1<<100 overflow without the cap
	got := backoffDelay(100, 30)
	want := 30 * time.Second
	if got != want {
		t.Errorf("backoffDelay(100, 30) = %v, want %v (capped at max)", got, want)
	}
}

func TestReconnectAfterLinkLoss(t *testing.T) {
	adapter := bletest.NewAdapter([]ble.Device{speaker})
	opts := testOptions()
	opts.Reconnect = true
	r := New(adapter, opts)
	defer r.Shutdown()

	if err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	first := adapter.LatestConnection()
	first.Response.Notify([]byte{0xD4, 0x00, 0x01})

	first.SimulateDrop()

	if got := r.State(); got != (State{}) {
		t.Errorf("State() after link loss = %+v, want initial state", got)
	}

	// The reconnect loop attempts immediately on the first try.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && adapter.LatestConnection() == first {
		time.Sleep(5 * time.Millisecond)
	}
	second := adapter.LatestConnection()
	if second == first {
		t.Fatal("no reconnect attempt after link loss")
	}
	for time.Now().Before(deadline) && !r.TransportConnected() {
		time.Sleep(5 * time.Millisecond)
	}
	if !r.TransportConnected() {
		t.Error("remote should be reconnected")
	}
	if second.Address != testAddr {
		t.Errorf("reconnected to %q, want %q", second.Address, testAddr)
	}
}

func TestNoReconnectWhenDisabled(t *testing.T) {
	adapter := bletest.NewAdapter([]ble.Device{speaker})
	r := New(adapter, testOptions())

	if err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	adapter.LatestConnection().SimulateDrop()
	time.Sleep(20 * time.Millisecond)

	if got := adapter.Connects(); got != 1 {
		t.Errorf("Connects() = %d, want 1", got)
	}
	if r.TransportConnected() {
		t.Error("TransportConnected should be false after link loss")
	}
}

func TestShutdownStopsReconnectLoop(t *testing.T) {
	adapter := bletest.NewAdapter([]ble.Device{speaker})
	opts := testOptions()
	opts.Reconnect = true
	r := New(adapter, opts)

	if err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	// Every reconnect fails, so the loop keeps backing off.
	adapter.FailConnects(nil, errors.New("gone"), errors.New("gone"), errors.New("gone"))
	adapter.LatestConnection().SimulateDrop()

	time.Sleep(10 * time.Millisecond)
	if err := r.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && r.isReconnecting() {
		time.Sleep(5 * time.Millisecond)
	}
	if r.isReconnecting() {
		t.Error("reconnect loop should exit after Shutdown")
	}
}

func TestReconnectRecoversFromDropDuringSetup(t *testing.T) {
	adapter := bletest.NewAdapter([]ble.Device{speaker})
	opts := testOptions()
	opts.Reconnect = true
	r := New(adapter, opts)
	defer r.Shutdown()

	if err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// The first reconnect attempt loses its link mid-handshake.
	adapter.DropNextDuring("write command 84 05")
	adapter.LatestConnection().SimulateDrop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && !(r.TransportConnected() && !r.isReconnecting()) {
		time.Sleep(10 * time.Millisecond)
	}
	if !r.TransportConnected() {
		t.Fatalf("remote stranded after setup drop: connects=%d", adapter.Connects())
	}
	if r.isReconnecting() {
		t.Error("reconnect loop should have finished")
	}
	if got := adapter.Connects(); got != 3 {
		t.Errorf("Connects() = %d, want 3 (acquire, failed reconnect, reconnect)", got)
	}
}

func TestAcquireSetupDropRetriesWithoutReconnectLoop(t *testing.T) {
	adapter := bletest.NewAdapter([]ble.Device{speaker}, []ble.Device{speaker})
	opts := testOptions()
	opts.Reconnect = true
	r := New(adapter, opts)
	defer r.Shutdown()

	adapter.DropNextDuring("subscribe response")
	if err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if r.isReconnecting() {
		t.Error("a drop during setup should not start a reconnect loop")
	}
	if got := adapter.Connects(); got != 2 {
		t.Errorf("Connects() = %d, want 2", got)
	}
	if got := adapter.Scans(); got != 2 {
		t.Errorf("Scans() = %d, want 2", got)
	}
	if !r.TransportConnected() {
		t.Error("remote should be connected after the second attempt")
	}
}
