package ptp

import (
	"context"
	"time"
)

// DataPhase is the direction of the optional data phase of a
// transaction.
type DataPhase int

const (
	DataNone DataPhase = iota
	DataSend
	DataGet
)

func (d DataPhase) String() string {
	switch d {
	case DataSend:
		return "send"
	case DataGet:
		return "get"
	}
	return "none"
}

// Transport moves the phases of one transaction over a concrete link.
// Implementations report link failures as *TransportError, read
// timeouts as ErrTimeout and a response that is not there yet as
// ErrNotReady. A data sink or source returning ErrCancelled must abort
// the data phase with that error.
type Transport interface {
	SendRequest(ctx context.Context, req *Container, dir DataPhase) error
	SendData(ctx context.Context, req *Container, size int64, src DataSource) error
	GetData(ctx context.Context, req *Container, dest DataSink) error
	GetResponse(ctx context.Context, rep *Container) error
	CancelRequest(ctx context.Context, tid uint32) error
	Close() error
}

// EventReader is implemented by transports with an asynchronous event
// channel, such as the USB interrupt pipe. ReadEvent returns
// ErrTimeout if nothing arrived within timeout.
type EventReader interface {
	ReadEvent(ctx context.Context, timeout time.Duration) (*Event, error)
}

// Resetter is implemented by transports that can reset the device.
type Resetter interface {
	Reset(ctx context.Context) error
}
