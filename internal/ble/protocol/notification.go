package protocol

import "fmt"

// Notification identifies a payload received on the notification
// characteristic. Matching is exact: no prefixes, no wildcards.
type Notification int

const (
	NotifyUnknown Notification = iota

	NotifyHandshakeRequest // D4 05 01
	NotifyConnecting       // CF 0B

	// Link established, carrying the current input.
	NotifyLinkedBluetooth // D4 00 01
	NotifyLinkedAux       // D4 00 02
	NotifyLinkedUSB       // D4 00 03

	// Echoes of transport controls.
	NotifyVolumeUp   // C0 02
	NotifyVolumeDown // C0 03
	NotifyPlayPause  // C0 04

	// Input switch acknowledged; the switch itself is confirmed by NotifyInput*.
	NotifySwitchingBluetooth // C1 01
	NotifySwitchingAux       // C1 02
	NotifySwitchingUSB       // C1 03

	NotifyBluetoothConnected    // CF 00
	NotifyBluetoothDisconnected // CF 01
	NotifyPairing               // C2 00

	// Authoritative input change.
	NotifyInputBluetooth // CF 04
	NotifyInputAux       // CF 05
	NotifyInputUSB       // CF 06

	NotifyFactoryReset // C3 00
)

var notifications = map[string]Notification{
	"\xd4\x05\x01": NotifyHandshakeRequest,
	"\xcf\x0b":     NotifyConnecting,
	"\xd4\x00\x01": NotifyLinkedBluetooth,
	"\xd4\x00\x02": NotifyLinkedAux,
	"\xd4\x00\x03": NotifyLinkedUSB,
	"\xc0\x02":     NotifyVolumeUp,
	"\xc0\x03":     NotifyVolumeDown,
	"\xc0\x04":     NotifyPlayPause,
	"\xc1\x01":     NotifySwitchingBluetooth,
	"\xc1\x02":     NotifySwitchingAux,
	"\xc1\x03":     NotifySwitchingUSB,
	"\xcf\x00":     NotifyBluetoothConnected,
	"\xcf\x01":     NotifyBluetoothDisconnected,
	"\xc2\x00":     NotifyPairing,
	"\xcf\x04":     NotifyInputBluetooth,
	"\xcf\x05":     NotifyInputAux,
	"\xcf\x06":     NotifyInputUSB,
	"\xc3\x00":     NotifyFactoryReset,
}

var notificationNames = [...]string{
	NotifyUnknown:               "unknown",
	NotifyHandshakeRequest:      "handshake-request",
	NotifyConnecting:            "connecting",
	NotifyLinkedBluetooth:       "linked-bluetooth",
	NotifyLinkedAux:             "linked-aux",
	NotifyLinkedUSB:             "linked-usb",
	NotifyVolumeUp:              "volume-up",
	NotifyVolumeDown:            "volume-down",
	NotifyPlayPause:             "play-pause",
	NotifySwitchingBluetooth:    "switching-bluetooth",
	NotifySwitchingAux:          "switching-aux",
	NotifySwitchingUSB:          "switching-usb",
	NotifyBluetoothConnected:    "bluetooth-connected",
	NotifyBluetoothDisconnected: "bluetooth-disconnected",
	NotifyPairing:               "pairing",
	NotifyInputBluetooth:        "input-bluetooth",
	NotifyInputAux:              "input-aux",
	NotifyInputUSB:              "input-usb",
	NotifyFactoryReset:          "factory-reset",
}

// Decode classifies one notification payload. Anything outside the
// catalogue is NotifyUnknown.
func Decode(data []byte) Notification {
	if n, ok := notifications[string(data)]; ok {
		return n
	}
	return NotifyUnknown
}

func (n Notification) String() string {
	if n < 0 || int(n) >= len(notificationNames) {
		return fmt.Sprintf("Notification(%d)", int(n))
	}
	return notificationNames[n]
}

// FormatPayload renders a payload as spaced upper-case hex, e.g. "D4 05 01".
func FormatPayload(data []byte) string {
	return fmt.Sprintf("% X", data)
}
