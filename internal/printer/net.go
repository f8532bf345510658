package printer

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// NetTransport drives a printer reachable as a raw socket, either directly
// (JetDirect-style port 9100) or through the local Bluetooth printer bridge
// that exposes the paired device on a TCP port. The Bluetooth pairing itself
// is the bridge's problem, not ours.
type NetTransport struct {
	addr    string
	timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

func NewNetTransport(addr string, timeout time.Duration) *NetTransport {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NetTransport{addr: addr, timeout: timeout}
}

func (t *NetTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}
	// Keepalive makes the kernel reap half-open links (bridge powered off
	// without a RST), so the liveness probe eventually sees a real error.
	dialer := net.Dialer{Timeout: t.timeout, KeepAlive: 15 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

// Disconnect is idempotent: closing an already-released link is a no-op.
func (t *NetTransport) Disconnect(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// probeTimeout bounds the liveness read. Printers are quiet on an idle link,
// so a timed-out read means alive; EOF or a reset means the peer is gone.
const probeTimeout = 250 * time.Millisecond

// IsConnected probes the socket with a deadline-bounded one-byte read. A
// zero-byte write would report success on a link whose peer already
// vanished; the read sees the buffered EOF or reset instead.
func (t *NetTransport) IsConnected(_ context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return false
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(probeTimeout)); err != nil {
		return false
	}
	buf := make([]byte, 1)
	_, err := t.conn.Read(buf)
	if err == nil {
		// Unsolicited status byte from the printer; link is alive.
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func (t *NetTransport) Send(_ context.Context, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return ErrNotConnected
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return err
	}
	_, err := t.conn.Write(payload)
	return err
}
