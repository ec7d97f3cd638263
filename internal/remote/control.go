package remote

import (
	"slices"

	"github.com/chaz8081/z407ctl/internal/ble/protocol"
)

// Command methods write a single command and return once the write is
// issued. They never wait for the speaker's acknowledgement; State moves
// only when the matching notification arrives.

// Send writes the command for a user action. Handshake and undefined
// actions are refused with ErrUnsupportedAction.
func (r *Remote) Send(a protocol.Action) error {
	if !slices.Contains(protocol.UserActions, a) {
		return &CommandSendError{Action: a, Err: ErrUnsupportedAction}
	}
	return r.send(a)
}

func (r *Remote) VolumeUp() error       { return r.send(protocol.ActionVolumeUp) }
func (r *Remote) VolumeDown() error     { return r.send(protocol.ActionVolumeDown) }
func (r *Remote) PlayPause() error      { return r.send(protocol.ActionPlayPause) }
func (r *Remote) InputBluetooth() error { return r.send(protocol.ActionInputBluetooth) }
func (r *Remote) InputAux() error       { return r.send(protocol.ActionInputAux) }
func (r *Remote) InputUSB() error       { return r.send(protocol.ActionInputUSB) }
func (r *Remote) BluetoothPair() error  { return r.send(protocol.ActionBluetoothPair) }
func (r *Remote) FactoryReset() error   { return r.send(protocol.ActionFactoryReset) }
