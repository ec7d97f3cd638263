package remote

import (
	"fmt"

	"github.com/chaz8081/z407ctl/internal/ble/protocol"
)

// Mode is the speaker's active audio input.
type Mode int

const (
	ModeDisconnected Mode = iota
	ModeBluetooth
	ModeAux
	ModeUSB
)

var modeNames = [...]string{
	ModeDisconnected: "disconnected",
	ModeBluetooth:    "bluetooth",
	ModeAux:          "aux",
	ModeUSB:          "usb",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	for i, name := range modeNames {
		if name == string(text) {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("remote: unknown mode %q", text)
}

// BluetoothStatus is the state of the speaker's link to a paired phone or
// computer, independent of Mode.
type BluetoothStatus int

const (
	BluetoothUnknown BluetoothStatus = iota
	BluetoothConnected
	BluetoothDisconnected
	BluetoothPairing
)

var bluetoothNames = [...]string{
	BluetoothUnknown:      "unknown",
	BluetoothConnected:    "connected",
	BluetoothDisconnected: "disconnected",
	BluetoothPairing:      "pairing",
}

func (b BluetoothStatus) String() string {
	if b < 0 || int(b) >= len(bluetoothNames) {
		return fmt.Sprintf("BluetoothStatus(%d)", int(b))
	}
	return bluetoothNames[b]
}

func (b BluetoothStatus) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *BluetoothStatus) UnmarshalText(text []byte) error {
	for i, name := range bluetoothNames {
		if name == string(text) {
			*b = BluetoothStatus(i)
			return nil
		}
	}
	return fmt.Errorf("remote: unknown bluetooth status %q", text)
}

// State is what the speaker has told us about itself. The zero value is the
// initial state: {Disconnected, Unknown, not linked}.
type State struct {
	Mode      Mode
	Bluetooth BluetoothStatus
	Linked    bool
}

// apply returns the state after notification n. Notifications without a
// state effect return s unchanged.
func (s State) apply(n protocol.Notification) State {
	switch n {
	case protocol.NotifyLinkedBluetooth:
		s.Linked, s.Mode = true, ModeBluetooth
	case protocol.NotifyLinkedAux:
		s.Linked, s.Mode = true, ModeAux
	case protocol.NotifyLinkedUSB:
		s.Linked, s.Mode = true, ModeUSB

	case protocol.NotifyInputBluetooth:
		s.Mode = ModeBluetooth
	case protocol.NotifyInputAux:
		s.Mode = ModeAux
	case protocol.NotifyInputUSB:
		s.Mode = ModeUSB

	case protocol.NotifyBluetoothConnected:
		s.Bluetooth = BluetoothConnected
	case protocol.NotifyBluetoothDisconnected, protocol.NotifyFactoryReset:
		s.Bluetooth = BluetoothDisconnected
	case protocol.NotifyPairing:
		s.Bluetooth = BluetoothPairing

	case protocol.NotifyUnknown,
		protocol.NotifyHandshakeRequest,
		protocol.NotifyConnecting,
		protocol.NotifyVolumeUp,
		protocol.NotifyVolumeDown,
		protocol.NotifyPlayPause,
		protocol.NotifySwitchingBluetooth,
		protocol.NotifySwitchingAux,
		protocol.NotifySwitchingUSB:
	}
	return s
}

// switchTarget is the input a C1 acknowledgement refers to.
func switchTarget(n protocol.Notification) (Mode, bool) {
	switch n {
	case protocol.NotifySwitchingBluetooth:
		return ModeBluetooth, true
	case protocol.NotifySwitchingAux:
		return ModeAux, true
	case protocol.NotifySwitchingUSB:
		return ModeUSB, true
	}
	return ModeDisconnected, false
}

// Status is a point-in-time snapshot for callers. TransportConnected is the
// BLE link; State only changes when the speaker reports something, so the
// link can be up while Mode is still disconnected.
type Status struct {
	TransportConnected bool            `json:"transport_connected"`
	Address            string          `json:"address,omitempty"`
	Mode               Mode            `json:"connection_mode"`
	Bluetooth          BluetoothStatus `json:"bluetooth_status"`
	Linked             bool            `json:"linked"`
}
