package ptp

import (
	"errors"
	"fmt"
)

// RCError are return codes from the Container.Code field. They are
// passed through to the caller verbatim.
type RCError uint16

func (e RCError) Error() string {
	n, ok := RC_names[int(e)]
	if ok {
		return n
	}
	return fmt.Sprintf("RetCode %x", uint16(e))
}

// EngineError is an error raised by the engine or a transport rather
// than by the device. The values live next to the response codes so
// they can be reported in the same namespace.
type EngineError uint16

const (
	ErrIO           EngineError = 0x02FF
	ErrDataExpected EngineError = 0x02FE
	ErrRespExpected EngineError = 0x02FD
	ErrBadParam     EngineError = 0x02FC
	ErrCancelled    EngineError = 0x02FB
	ErrTimeout      EngineError = 0x02FA
)

// ErrNotReady is returned by a transport when the response is not
// there yet; the engine retries the read.
const ErrNotReady = ErrRespExpected

var engineNames = map[EngineError]string{
	ErrIO:           "I/O error",
	ErrDataExpected: "data phase expected",
	ErrRespExpected: "response expected",
	ErrBadParam:     "bad parameter",
	ErrCancelled:    "cancelled",
	ErrTimeout:      "timeout",
}

func (e EngineError) Error() string {
	if n, ok := engineNames[e]; ok {
		return "ptp: " + n
	}
	return fmt.Sprintf("ptp: error %x", uint16(e))
}

// ErrMalformed flags device data that could not be decoded.
var ErrMalformed = errors.New("ptp: malformed data")

// SyncError is an error type that indicates lost transaction
// synchronization in the protocol.
type SyncError string

func (s SyncError) Error() string {
	return string(s)
}

// Is makes a SyncError match ErrBadParam.
func (s SyncError) Is(target error) bool {
	return target == ErrBadParam
}

// Catastrophic marks errors after which the session should be reset.
type Catastrophic struct {
	Err error
}

func (f Catastrophic) Error() string {
	return fmt.Sprintf("fatal error: %s", f.Err)
}

func (f Catastrophic) Unwrap() error {
	return f.Err
}

// TransportError wraps a failure of the underlying link.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes every TransportError match ErrIO.
func (e *TransportError) Is(target error) bool {
	return target == ErrIO
}

// ErrorString names a response code or engine error code. It is for
// display only.
func ErrorString(code uint16) string {
	if n, ok := RC_names[int(code)]; ok {
		return n
	}
	if n, ok := engineNames[EngineError(code)]; ok {
		return n
	}
	return fmt.Sprintf("Unknown error 0x%04x", code)
}

// IsRetryable reports whether a response read should be attempted
// again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNotReady)
}
