package printer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startListener(t *testing.T) (net.Listener, <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()
	return ln, accepted
}

func TestNetTransportConnectAndSend(t *testing.T) {
	ln, accepted := startListener(t)

	tr := NewNetTransport(ln.Addr().String(), time.Second)
	ctx := context.Background()
	require.NoError(t, tr.Connect(ctx))
	t.Cleanup(func() { _ = tr.Disconnect(ctx) })

	require.NoError(t, tr.Send(ctx, []byte("halo")))

	server := <-accepted
	defer server.Close()
	buf := make([]byte, 4)
	require.NoError(t, server.SetReadDeadline(time.Now().Add(time.Second)))
	_, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "halo", string(buf))
}

func TestIsConnectedDetectsPeerClose(t *testing.T) {
	ln, accepted := startListener(t)

	tr := NewNetTransport(ln.Addr().String(), time.Second)
	ctx := context.Background()
	require.NoError(t, tr.Connect(ctx))
	t.Cleanup(func() { _ = tr.Disconnect(ctx) })

	// Quiet but open link: the probe read times out, which means alive.
	assert.True(t, tr.IsConnected(ctx))

	server := <-accepted
	require.NoError(t, server.Close())

	// The peer is gone; the probe must see the EOF, not report success.
	require.Eventually(t, func() bool {
		return !tr.IsConnected(ctx)
	}, 2*time.Second, 50*time.Millisecond)
}

func TestNetTransportDisconnectIdempotent(t *testing.T) {
	ln, _ := startListener(t)

	tr := NewNetTransport(ln.Addr().String(), time.Second)
	ctx := context.Background()
	require.NoError(t, tr.Connect(ctx))

	require.NoError(t, tr.Disconnect(ctx))
	require.NoError(t, tr.Disconnect(ctx))
	assert.False(t, tr.IsConnected(ctx))
}
