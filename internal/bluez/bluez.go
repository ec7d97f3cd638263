// Package bluez checks the Linux Bluetooth stack over D-Bus before the
// BLE adapter is used: BlueZ must be running and the adapter powered.
package bluez

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	busName      = "org.bluez"
	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"
	propsIface   = "org.freedesktop.DBus.Properties"
)

// ErrNotRunning means org.bluez is not on the system bus.
var ErrNotRunning = errors.New("bluez: org.bluez not found on system bus (is bluetooth.service running?)")

// AdapterPath returns the object path of adapter, e.g. "/org/bluez/hci0".
func AdapterPath(adapter string) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + adapter)
}

// DeviceObjectPath converts a MAC address like "AA:BB:CC:DD:EE:FF" to
// "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF".
func DeviceObjectPath(adapter, addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(strings.ToUpper(addr), ":", "_")
	return dbus.ObjectPath(string(AdapterPath(adapter)) + "/dev_" + escaped)
}

// properties is the subset of org.freedesktop.DBus.Properties we use.
type properties interface {
	Get(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error)
	Set(path dbus.ObjectPath, iface, prop string, val interface{}) error
}

// Client wraps a system D-Bus connection for BlueZ operations.
type Client struct {
	conn    *dbus.Conn
	adapter string
}

// Dial connects to the system bus and verifies BlueZ is present.
func Dial(adapter string) (*Client, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("bluez: connect to system bus: %w", err)
	}
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bluez: list bus names: %w", err)
	}
	if !slices.Contains(names, busName) {
		conn.Close()
		return nil, ErrNotRunning
	}
	return &Client{conn: conn, adapter: adapter}, nil
}

// Close releases the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Get(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	obj := c.conn.Object(busName, path)
	var v dbus.Variant
	err := obj.Call(propsIface+".Get", 0, iface, prop).Store(&v)
	return v, err
}

func (c *Client) Set(path dbus.ObjectPath, iface, prop string, val interface{}) error {
	obj := c.conn.Object(busName, path)
	return obj.Call(propsIface+".Set", 0, iface, prop, dbus.MakeVariant(val)).Err
}

// EnsurePowered checks that the adapter is powered, switching it on when
// powerOn is set.
func (c *Client) EnsurePowered(powerOn bool) error {
	return ensurePowered(c, c.adapter, powerOn)
}

// DeviceConnected reports whether BlueZ already holds a link to addr. An
// unknown device is reported as not connected.
func (c *Client) DeviceConnected(addr string) (bool, error) {
	connected, err := getBool(c, DeviceObjectPath(c.adapter, addr), deviceIface, "Connected")
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) && dbusErr.Name == "org.freedesktop.DBus.Error.UnknownObject" {
		return false, nil
	}
	return connected, err
}

func getBool(p properties, path dbus.ObjectPath, iface, prop string) (bool, error) {
	v, err := p.Get(path, iface, prop)
	if err != nil {
		return false, err
	}
	val, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("bluez: property %s is not bool", prop)
	}
	return val, nil
}

func ensurePowered(p properties, adapter string, powerOn bool) error {
	path := AdapterPath(adapter)
	powered, err := getBool(p, path, adapterIface, "Powered")
	if err != nil {
		return fmt.Errorf("bluez: read %s power state: %w", adapter, err)
	}
	if powered {
		slog.Debug("[BlueZ] adapter powered", "adapter", adapter)
		return nil
	}
	if !powerOn {
		return fmt.Errorf("bluez: adapter %s is powered off", adapter)
	}
	slog.Info("[BlueZ] powering on adapter", "adapter", adapter)
	if err := p.Set(path, adapterIface, "Powered", true); err != nil {
		return fmt.Errorf("bluez: power on %s: %w", adapter, err)
	}
	return nil
}
