package printer

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected reports a print attempted with no active link. It is an
	// expected condition, not an anomaly: the caller decides whether to
	// reconnect, queue or abandon the job.
	ErrNotConnected = errors.New("printer not connected")
	// ErrConnectFailed wraps transport-level connection failures.
	ErrConnectFailed = errors.New("printer connect failed")
)

// Transport is the thermal-printer capability this package drives. The
// concrete byte transport (Bluetooth serial, a network bridge, a fake in
// tests) lives behind it; implementations must tolerate repeated Disconnect
// calls.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	// IsConnected reports whether the link is actually up right now. It is
	// polled, because the transport can silently drop without an event.
	IsConnected(ctx context.Context) bool
	Send(ctx context.Context, payload []byte) error
}
