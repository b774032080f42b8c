package device

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by operations that require an open link.
	ErrNotConnected = errors.New("not connected")
	// ErrAckTimeout is returned when the device does not acknowledge a
	// command within the configured timeout, after all retries.
	ErrAckTimeout = errors.New("no ack from device")
	// ErrNack is returned when the device actively rejects a command.
	// Nacks are permanent: they are surfaced without retrying.
	ErrNack = errors.New("device rejected command")
)

// ProtocolError reports a malformed frame received from the device. The
// offending frame is dropped and the telemetry stream continues.
type ProtocolError struct {
	Line   string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed frame %q: %s", e.Line, e.Reason)
}
