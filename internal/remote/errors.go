package remote

import (
	"errors"
	"fmt"

	"github.com/chaz8081/z407ctl/internal/ble/protocol"
)

var (
	// ErrDiscoveryTimeout means no speaker advertised within the scan window.
	ErrDiscoveryTimeout = errors.New("remote: no speaker found before scan timeout")
	// ErrConnectFailure covers transport connect errors and links that are
	// down immediately after connecting.
	ErrConnectFailure = errors.New("remote: connect failed")
	// ErrNotConnected is returned by commands issued without a live session.
	ErrNotConnected = errors.New("remote: not connected")
	// ErrUnsupportedAction is returned by Send for anything that is not a
	// user action, including the handshake pair.
	ErrUnsupportedAction = errors.New("remote: unsupported action")
	// ErrAcquisitionFailed means every startup attempt failed. The remote is
	// unusable.
	ErrAcquisitionFailed = errors.New("remote: could not acquire speaker")
)

// CommandSendError reports a failed write of a single command. The session
// stays up.
type CommandSendError struct {
	Action protocol.Action
	Err    error
}

func (e *CommandSendError) Error() string {
	return fmt.Sprintf("remote: send %s: %v", e.Action, e.Err)
}

func (e *CommandSendError) Unwrap() error {
	return e.Err
}
