// Package remote drives a Logitech Z407 speaker over BLE: it finds and
// connects to the speaker, performs the handshake, turns notifications into
// State and exposes one method per speaker command.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chaz8081/z407ctl/internal/ble"
	"github.com/chaz8081/z407ctl/internal/ble/protocol"
)

// Options configures discovery, acquisition and reconnection.
type Options struct {
	Address        string        // when set, only this address is accepted during discovery
	ScanTimeout    time.Duration // per-attempt scan window
	Cooldown       time.Duration // pause between failed attempts
	MaxAttempts    int           // startup attempts before giving up
	AcquireTimeout time.Duration // overall deadline for Acquire; 0 disables
	ConnectTimeout time.Duration // per connect call
	Reconnect      bool          // reconnect after the link drops
	ReconnectMax   int           // backoff cap in seconds
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		ScanTimeout:    10 * time.Second,
		Cooldown:       2 * time.Second,
		MaxAttempts:    5,
		AcquireTimeout: 2 * time.Minute,
		ConnectTimeout: 10 * time.Second,
		Reconnect:      true,
		ReconnectMax:   30,
	}
}

// Remote owns the single session to one speaker. Create one with New and
// share it; all methods are safe for concurrent use.
type Remote struct {
	adapter ble.Adapter
	opts    Options

	// mu guards the session, state and reconnect bookkeeping. It is never
	// held across I/O.
	mu       sync.Mutex
	conn     ble.Connection
	cmdChar  ble.Characteristic
	respChar ble.Characteristic
	address  string
	state    State
	// established is set once Connect has finished setting up conn. Only an
	// established session that drops starts a reconnect loop.
	established  bool
	reconnecting bool

	watchMu  sync.Mutex
	watchers []func(Status)

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a Remote on adapter. Zero-valued options fall back to defaults.
func New(adapter ble.Adapter, opts Options) *Remote {
	def := DefaultOptions()
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = def.ScanTimeout
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = def.ConnectTimeout
	}
	if opts.ReconnectMax <= 0 {
		opts.ReconnectMax = def.ReconnectMax
	}
	return &Remote{
		adapter: adapter,
		opts:    opts,
		done:    make(chan struct{}),
	}
}

// Connect opens a session to address: it subscribes to notifications and
// then sends the opening handshake. Failures are ErrConnectFailure and leave
// no session behind, including a link that drops while the session is set up.
func (r *Remote) Connect(ctx context.Context, address string) error {
	r.mu.Lock()
	if r.conn != nil {
		current := r.address
		r.mu.Unlock()
		return fmt.Errorf("remote: already connected to %s", current)
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.opts.ConnectTimeout)
	defer cancel()

	conn, err := r.adapter.Connect(ctx, address)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailure, err)
	}
	if !conn.Connected() {
		_ = conn.Disconnect()
		return fmt.Errorf("%w: %s dropped right after connect", ErrConnectFailure, address)
	}

	respChar, err := conn.DiscoverCharacteristic(ble.ServiceUUID, ble.ResponseCharUUID)
	if err != nil {
		_ = conn.Disconnect()
		return fmt.Errorf("%w: discover response characteristic: %w", ErrConnectFailure, err)
	}
	cmdChar, err := conn.DiscoverCharacteristic(ble.ServiceUUID, ble.CommandCharUUID)
	if err != nil {
		_ = conn.Disconnect()
		return fmt.Errorf("%w: discover command characteristic: %w", ErrConnectFailure, err)
	}

	r.mu.Lock()
	if r.conn != nil {
		current := r.address
		r.mu.Unlock()
		_ = conn.Disconnect()
		return fmt.Errorf("remote: already connected to %s", current)
	}
	r.conn = conn
	r.cmdChar = cmdChar
	r.respChar = respChar
	r.address = address
	r.established = false
	r.mu.Unlock()

	conn.OnDisconnect(func() {
		r.handleDrop(conn)
	})

	if err := respChar.Subscribe(func(data []byte) {
		r.handleNotification(conn, data)
	}); err != nil {
		r.teardown(conn)
		return fmt.Errorf("%w: subscribe: %w", ErrConnectFailure, err)
	}

	if err := cmdChar.Write(protocol.Encode(protocol.ActionHandshake)); err != nil {
		r.teardown(conn)
		return fmt.Errorf("%w: handshake: %w", ErrConnectFailure, err)
	}

	// The link may have gone while subscribing or writing the handshake,
	// possibly before OnDisconnect was registered.
	r.mu.Lock()
	live := r.conn == conn && conn.Connected()
	if live {
		r.established = true
	}
	r.mu.Unlock()
	if !live {
		r.teardown(conn)
		return fmt.Errorf("%w: %s dropped during setup", ErrConnectFailure, address)
	}

	slog.Info("[Z407] connected", "address", address)
	r.notifyWatchers()
	return nil
}

// Disconnect ends the session, if any, and resets State. Calling it again
// is a no-op.
func (r *Remote) Disconnect() error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return nil
	}
	return r.teardown(conn)
}

// teardown unsubscribes, disconnects and resets state if conn is still the
// current session.
func (r *Remote) teardown(conn ble.Connection) error {
	r.mu.Lock()
	if r.conn != conn {
		r.mu.Unlock()
		return nil
	}
	respChar := r.respChar
	address := r.address
	r.conn, r.cmdChar, r.respChar = nil, nil, nil
	r.established = false
	r.state = State{}
	r.mu.Unlock()

	var errs []error
	if respChar != nil {
		if err := respChar.Unsubscribe(); err != nil {
			errs = append(errs, fmt.Errorf("remote: unsubscribe: %w", err))
		}
	}
	if err := conn.Disconnect(); err != nil {
		errs = append(errs, fmt.Errorf("remote: disconnect %s: %w", address, err))
	}

	slog.Info("[Z407] disconnected", "address", address)
	r.notifyWatchers()
	return errors.Join(errs...)
}

// handleDrop reacts to the link going down underneath us.
// A drop while Connect is still setting up is left to Connect, which then
// fails; the caller (Acquire or the reconnect loop) retries.
func (r *Remote) handleDrop(conn ble.Connection) {
	r.mu.Lock()
	current := r.conn == conn
	established := r.established
	address := r.address
	r.mu.Unlock()
	if !current {
		return
	}

	slog.Warn("[Z407] link lost", "address", address)
	if err := r.teardown(conn); err != nil {
		slog.Debug("[Z407] teardown after link loss", "error", err)
	}

	if !established || !r.opts.Reconnect || r.isClosed() {
		return
	}
	r.mu.Lock()
	if r.reconnecting {
		// The running loop checks the link under mu before it exits.
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()
	go r.reconnectLoop(address)
}

// handleNotification runs the state machine for one payload from conn.
func (r *Remote) handleNotification(conn ble.Connection, data []byte) {
	n := protocol.Decode(data)

	r.mu.Lock()
	if r.conn != conn {
		r.mu.Unlock()
		return
	}
	prev := r.state
	next := prev.apply(n)
	r.state = next
	r.mu.Unlock()

	logNotification(n, data, prev, next)

	if n == protocol.NotifyHandshakeRequest {
		if err := r.send(protocol.ActionHandshakeAck); err != nil {
			slog.Error("[Z407] handshake ack failed", "error", err)
		}
	}

	if next != prev {
		r.notifyWatchers()
	}
}

func logNotification(n protocol.Notification, data []byte, prev, next State) {
	payload := protocol.FormatPayload(data)
	if n == protocol.NotifyUnknown {
		slog.Warn("[Z407] unknown notification", "payload", payload)
		return
	}
	if target, ok := switchTarget(n); ok {
		if prev.Mode == target {
			slog.Info("[Z407] input already selected", "input", target)
		} else {
			slog.Info("[Z407] switching input", "from", prev.Mode, "to", target)
		}
		return
	}
	if next != prev {
		slog.Info("[Z407] state changed",
			"notification", n,
			"mode", next.Mode,
			"bluetooth", next.Bluetooth,
			"linked", next.Linked)
		return
	}
	slog.Info("[Z407] notification", "notification", n, "payload", payload)
}

// send writes one command on the current session.
func (r *Remote) send(a protocol.Action) error {
	r.mu.Lock()
	cmdChar := r.cmdChar
	r.mu.Unlock()
	if cmdChar == nil {
		return &CommandSendError{Action: a, Err: ErrNotConnected}
	}
	if err := cmdChar.Write(protocol.Encode(a)); err != nil {
		return &CommandSendError{Action: a, Err: err}
	}
	slog.Debug("[Z407] command sent", "action", a)
	return nil
}

// Status returns a snapshot of the link and the speaker state.
func (r *Remote) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

func (r *Remote) statusLocked() Status {
	st := Status{
		Mode:      r.state.Mode,
		Bluetooth: r.state.Bluetooth,
		Linked:    r.state.Linked,
	}
	if r.conn != nil {
		st.TransportConnected = r.conn.Connected()
		st.Address = r.address
	}
	return st
}

// State returns the speaker state alone.
func (r *Remote) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Remote) isReconnecting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reconnecting
}

// TransportConnected reports whether a BLE session is up.
func (r *Remote) TransportConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil && r.conn.Connected()
}

// Watch registers fn to receive a Status after every state or link change.
// fn runs on the goroutine that caused the change and must not block.
func (r *Remote) Watch(fn func(Status)) {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	r.watchers = append(r.watchers, fn)
}

func (r *Remote) notifyWatchers() {
	r.watchMu.Lock()
	watchers := make([]func(Status), len(r.watchers))
	copy(watchers, r.watchers)
	r.watchMu.Unlock()
	if len(watchers) == 0 {
		return
	}
	st := r.Status()
	for _, fn := range watchers {
		fn(st)
	}
}

// Shutdown stops any reconnect loop and disconnects. It is safe on a remote
// that never connected.
func (r *Remote) Shutdown() error {
	r.closeOnce.Do(func() { close(r.done) })
	return r.Disconnect()
}

func (r *Remote) isClosed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
