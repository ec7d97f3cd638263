// Package bletest provides an in-memory implementation of the ble
// interfaces for tests: scripted scan sessions, recorded writes and
// injectable notifications and link drops.
package bletest

import (
	"context"
	"fmt"
	"sync"

	"github.com/chaz8081/z407ctl/internal/ble"
)

// Characteristic records writes and allows subscribing. Events are logged
// without holding mu, so a drop triggered by an event may call back in.
type Characteristic struct {
	name   string
	record func(string)

	mu       sync.Mutex
	writes   [][]byte
	callback func([]byte)
	writeErr error
}

func (c *Characteristic) Write(data []byte) error {
	c.mu.Lock()
	if c.writeErr != nil {
		err := c.writeErr
		c.mu.Unlock()
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	c.mu.Unlock()

	c.log(fmt.Sprintf("write %s % X", c.name, cp))
	return nil
}

func (c *Characteristic) log(event string) {
	if c.record != nil {
		c.record(event)
	}
}

func (c *Characteristic) Subscribe(cb func([]byte)) error {
	c.mu.Lock()
	c.callback = cb
	c.mu.Unlock()
	c.log("subscribe " + c.name)
	return nil
}

func (c *Characteristic) Unsubscribe() error {
	c.mu.Lock()
	c.callback = nil
	c.mu.Unlock()
	c.log("unsubscribe " + c.name)
	return nil
}

// Subscribed reports whether a notification callback is registered.
func (c *Characteristic) Subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callback != nil
}

// FailWrites makes every subsequent Write return err (nil restores).
func (c *Characteristic) FailWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// Writes returns a copy of everything written so far.
func (c *Characteristic) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// Notify delivers data to the subscriber, if any.
func (c *Characteristic) Notify(data []byte) {
	c.mu.Lock()
	cb := c.callback
	c.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

// Connection simulates a BLE connection.
type Connection struct {
	Address  string
	Command  *Characteristic
	Response *Characteristic

	mu           sync.Mutex
	disconnectCb func()
	connected    bool
	disconnects  int
	events       []string
	dropOn       string
}

// NewConnection returns a live connection to address.
func NewConnection(address string) *Connection {
	c := &Connection{
		Address:   address,
		connected: true,
	}
	c.Command = &Characteristic{name: "command", record: c.record}
	c.Response = &Characteristic{name: "response", record: c.record}
	return c
}

func (c *Connection) record(event string) {
	c.mu.Lock()
	c.events = append(c.events, event)
	drop := c.dropOn != "" && c.dropOn == event
	if drop {
		c.dropOn = ""
	}
	c.mu.Unlock()

	if drop {
		c.SimulateDrop()
	}
}

// Events returns subscribe, unsubscribe and write events in order, e.g.
// "subscribe response" or "write command 84 05".
func (c *Connection) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	copy(out, c.events)
	return out
}

func (c *Connection) DiscoverCharacteristic(serviceUUID, charUUID string) (ble.Characteristic, error) {
	if serviceUUID != ble.ServiceUUID {
		return nil, fmt.Errorf("bletest: unknown service UUID %q", serviceUUID)
	}
	switch charUUID {
	case ble.CommandCharUUID:
		return c.Command, nil
	case ble.ResponseCharUUID:
		return c.Response, nil
	default:
		return nil, fmt.Errorf("bletest: unknown characteristic UUID %q", charUUID)
	}
}

func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnects++
	return nil
}

func (c *Connection) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCb = cb
}

func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Disconnects returns how many times Disconnect was called.
func (c *Connection) Disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

// SimulateDrop marks the link down and fires the disconnect callback.
func (c *Connection) SimulateDrop() {
	c.mu.Lock()
	c.connected = false
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Adapter simulates the BLE adapter. Each Scan consumes the next scripted
// session; once the script is exhausted scans find nothing.
type Adapter struct {
	mu          sync.Mutex
	sessions    [][]ble.Device
	scans       int
	stops       int
	connects    int
	connectErrs []error
	dead        bool
	dropOn      string
	connection  *Connection

	// stop carries one token per StopScan; each Scan waits for one.
	stop chan struct{}
}

// NewAdapter returns an adapter whose successive scans report sessions[0],
// sessions[1], ... A nil entry is a scan that finds nothing.
func NewAdapter(sessions ...[]ble.Device) *Adapter {
	return &Adapter{
		sessions: sessions,
		stop:     make(chan struct{}, 1),
	}
}

func (a *Adapter) Enable() error { return nil }

func (a *Adapter) Scan(serviceUUID string, found func(ble.Device)) error {
	if serviceUUID != ble.ServiceUUID {
		return fmt.Errorf("bletest: unexpected scan filter %q", serviceUUID)
	}
	a.mu.Lock()
	var devices []ble.Device
	if a.scans < len(a.sessions) {
		devices = a.sessions[a.scans]
	}
	a.scans++
	a.mu.Unlock()

	for _, d := range devices {
		select {
		case <-a.stop:
			return nil
		default:
		}
		found(d)
	}
	<-a.stop
	return nil
}

func (a *Adapter) StopScan() error {
	a.mu.Lock()
	a.stops++
	a.mu.Unlock()
	select {
	case a.stop <- struct{}{}:
	default:
	}
	return nil
}

func (a *Adapter) Connect(ctx context.Context, address string) (ble.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.connects
	a.connects++
	if n < len(a.connectErrs) && a.connectErrs[n] != nil {
		return nil, a.connectErrs[n]
	}
	conn := NewConnection(address)
	if a.dead {
		conn.connected = false
	}
	conn.dropOn = a.dropOn
	a.dropOn = ""
	a.connection = conn
	return conn, nil
}

// FailConnects makes the n-th Connect call return errs[n] when non-nil.
func (a *Adapter) FailConnects(errs ...error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connectErrs = errs
}

// DeadOnArrival makes Connect return sessions that are already down.
func (a *Adapter) DeadOnArrival(dead bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dead = dead
}

// DropNextDuring makes the next connection lose its link right after the
// given event is recorded, e.g. "subscribe response".
func (a *Adapter) DropNextDuring(event string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dropOn = event
}

// LatestConnection returns the most recently created connection.
func (a *Adapter) LatestConnection() *Connection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connection
}

// Scans returns how many scan sessions were started.
func (a *Adapter) Scans() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scans
}

// Stops returns how many times StopScan was called.
func (a *Adapter) Stops() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stops
}

// Connects returns how many times Connect was called.
func (a *Adapter) Connects() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connects
}

var (
	_ ble.Adapter        = (*Adapter)(nil)
	_ ble.Connection     = (*Connection)(nil)
	_ ble.Characteristic = (*Characteristic)(nil)
)
