// Package protocol implements the Logitech Z407 control protocol: the fixed
// command payloads written to the command characteristic and the catalogue of
// notification payloads the speaker pushes back.
package protocol

import "fmt"

// Action is a command the speaker accepts.
type Action int

const (
	ActionHandshake Action = iota // sent once, right after subscribing
	ActionHandshakeAck            // answer to NotifyHandshakeRequest
	ActionVolumeUp
	ActionVolumeDown
	ActionPlayPause
	ActionInputBluetooth
	ActionInputAux
	ActionInputUSB
	ActionBluetoothPair
	ActionFactoryReset
)

// commands maps every Action to its wire payload.
var commands = [...][]byte{
	ActionHandshake:      {0x84, 0x05},
	ActionHandshakeAck:   {0x84, 0x00},
	ActionVolumeUp:       {0x80, 0x02},
	ActionVolumeDown:     {0x80, 0x03},
	ActionPlayPause:      {0x80, 0x04},
	ActionInputBluetooth: {0x81, 0x01},
	ActionInputAux:       {0x81, 0x02},
	ActionInputUSB:       {0x81, 0x03},
	ActionBluetoothPair:  {0x82, 0x00},
	ActionFactoryReset:   {0x83, 0x00},
}

var actionNames = [...]string{
	ActionHandshake:      "handshake",
	ActionHandshakeAck:   "handshake-ack",
	ActionVolumeUp:       "volume-up",
	ActionVolumeDown:     "volume-down",
	ActionPlayPause:      "play-pause",
	ActionInputBluetooth: "input-bluetooth",
	ActionInputAux:       "input-aux",
	ActionInputUSB:       "input-usb",
	ActionBluetoothPair:  "bluetooth-pair",
	ActionFactoryReset:   "factory-reset",
}

// UserActions lists the actions a caller may request. The handshake pair is
// driven by the connection itself.
var UserActions = []Action{
	ActionVolumeUp,
	ActionVolumeDown,
	ActionPlayPause,
	ActionInputBluetooth,
	ActionInputAux,
	ActionInputUSB,
	ActionBluetoothPair,
	ActionFactoryReset,
}

// Encode returns the payload for a. The returned slice is a fresh copy.
// It panics if a is not a defined Action.
func Encode(a Action) []byte {
	if a < 0 || int(a) >= len(commands) {
		panic(fmt.Sprintf("protocol: Encode called with undefined action %d", int(a)))
	}
	out := make([]byte, len(commands[a]))
	copy(out, commands[a])
	return out
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

// ParseAction looks up a user action by name, e.g. "volume-up".
func ParseAction(name string) (Action, error) {
	for _, a := range UserActions {
		if actionNames[a] == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("protocol: unknown action %q", name)
}
