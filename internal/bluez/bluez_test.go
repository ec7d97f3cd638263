package bluez

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
)

// fakeProps is an in-memory property store keyed by path and property.
type fakeProps struct {
	values map[string]interface{}
	sets   []string
	getErr error
	setErr error
}

func (f *fakeProps) key(path dbus.ObjectPath, iface, prop string) string {
	return string(path) + "|" + iface + "|" + prop
}

func (f *fakeProps) Get(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	if f.getErr != nil {
		return dbus.Variant{}, f.getErr
	}
	return dbus.MakeVariant(f.values[f.key(path, iface, prop)]), nil
}

func (f *fakeProps) Set(path dbus.ObjectPath, iface, prop string, val interface{}) error {
	if f.setErr != nil {
		return f.setErr
	}
	k := f.key(path, iface, prop)
	f.values[k] = val
	f.sets = append(f.sets, k)
	return nil
}

func poweredProps(powered bool) *fakeProps {
	f := &fakeProps{values: map[string]interface{}{}}
	f.values[f.key("/org/bluez/hci0", adapterIface, "Powered")] = powered
	return f
}

func TestAdapterPath(t *testing.T) {
	if got := AdapterPath("hci1"); got != "/org/bluez/hci1" {
		t.Errorf("AdapterPath(hci1) = %q", got)
	}
}

func TestDeviceObjectPath(t *testing.T) {
	got := DeviceObjectPath("hci0", "aa:bb:cc:dd:ee:ff")
	want := dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF")
	if got != want {
		t.Errorf("DeviceObjectPath() = %q, want %q", got, want)
	}
}

func TestEnsurePoweredAlreadyOn(t *testing.T) {
	props := poweredProps(true)
	if err := ensurePowered(props, "hci0", true); err != nil {
		t.Fatalf("ensurePowered() error = %v", err)
	}
	if len(props.sets) != 0 {
		t.Errorf("unexpected writes: %v", props.sets)
	}
}

func TestEnsurePoweredSwitchesOn(t *testing.T) {
	props := poweredProps(false)
	if err := ensurePowered(props, "hci0", true); err != nil {
		t.Fatalf("ensurePowered() error = %v", err)
	}
	if len(props.sets) != 1 {
		t.Fatalf("got %d writes, want 1", len(props.sets))
	}
	if on, _ := props.values[props.sets[0]].(bool); !on {
		t.Error("Powered should be set to true")
	}
}

func TestEnsurePoweredOffWithoutPowerOn(t *testing.T) {
	props := poweredProps(false)
	if err := ensurePowered(props, "hci0", false); err == nil {
		t.Error("ensurePowered() should fail when the adapter is off and power_on is disabled")
	}
}

func TestEnsurePoweredReadError(t *testing.T) {
	props := poweredProps(true)
	props.getErr = errors.New("no such adapter")
	if err := ensurePowered(props, "hci0", true); err == nil {
		t.Error("ensurePowered() should surface read errors")
	}
}

func TestGetBoolWrongType(t *testing.T) {
	props := &fakeProps{values: map[string]interface{}{}}
	props.values[props.key("/org/bluez/hci0", adapterIface, "Powered")] = "yes"
	if _, err := getBool(props, "/org/bluez/hci0", adapterIface, "Powered"); err == nil {
		t.Error("getBool() should reject non-bool values")
	}
}
