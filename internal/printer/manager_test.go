package printer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport is a controllable Transport for manager tests.
type fakeTransport struct {
	mu             sync.Mutex
	connected      bool
	connectCalls   int
	disconnects    int
	sends          [][]byte
	livenessCalls  int
	connectErr     error
	disconnectErr  error
	connectRelease chan struct{} // when set, Connect blocks until closed
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connectCalls++
	release := f.connectRelease
	err := f.connectErr
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Disconnect(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.connected = false
	return f.disconnectErr
}

func (f *fakeTransport) IsConnected(_ context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.livenessCalls++
	return f.connected
}

func (f *fakeTransport) Send(_ context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.sends = append(f.sends, payload)
	return nil
}

func (f *fakeTransport) setConnected(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = v
}

func (f *fakeTransport) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectCalls
}

func newTestManager(t *testing.T, transport Transport, interval time.Duration) *Manager {
	t.Helper()
	m := NewManager(transport, interval, zerolog.Nop())
	t.Cleanup(m.Close)
	return m
}

func TestConnectTransitionsToConnected(t *testing.T) {
	fake := &fakeTransport{}
	m := newTestManager(t, fake, time.Hour)

	require.Equal(t, StateDisconnected, m.Status())
	require.NoError(t, m.Connect(context.Background()))
	assert.Equal(t, StateConnected, m.Status())

	// Already connected: no-op success, no second physical attempt.
	require.NoError(t, m.Connect(context.Background()))
	assert.Equal(t, 1, fake.connectCount())
}

func TestConnectFailureSettlesToDisconnected(t *testing.T) {
	fake := &fakeTransport{connectErr: errors.New("out of range")}
	m := newTestManager(t, fake, time.Hour)

	err := m.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectFailed)
	assert.Equal(t, StateDisconnected, m.Status())

	// Recoverable: a retry works once the transport does.
	fake.mu.Lock()
	fake.connectErr = nil
	fake.mu.Unlock()
	require.NoError(t, m.Connect(context.Background()))
	assert.Equal(t, StateConnected, m.Status())
}

func TestConcurrentConnectsShareOneAttempt(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeTransport{connectRelease: release}
	m := newTestManager(t, fake, time.Hour)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Connect(context.Background())
		}(i)
	}

	// Let both goroutines reach the manager before releasing the transport.
	require.Eventually(t, func() bool {
		return m.Status() == StateConnecting
	}, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, 1, fake.connectCount(), "exactly one underlying connect")
	assert.Equal(t, StateConnected, m.Status())
}

func TestDisconnectFailureStillDisconnects(t *testing.T) {
	fake := &fakeTransport{}
	m := newTestManager(t, fake, time.Hour)
	require.NoError(t, m.Connect(context.Background()))

	fake.mu.Lock()
	fake.disconnectErr = errors.New("transport busy")
	fake.mu.Unlock()

	err := m.Disconnect(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, m.Status())
}

func TestPrintWhenDisconnected(t *testing.T) {
	fake := &fakeTransport{}
	m := newTestManager(t, fake, time.Hour)

	var job Job
	job.Line("hello")
	err := m.Print(context.Background(), job)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, fake.sends)
}

func TestPrintSendsEncodedJob(t *testing.T) {
	fake := &fakeTransport{}
	m := newTestManager(t, fake, time.Hour)
	require.NoError(t, m.Connect(context.Background()))

	var job Job
	job.Line("hello")
	job.Cut()
	require.NoError(t, m.Print(context.Background(), job))

	require.Len(t, fake.sends, 1)
	assert.Equal(t, job.Encode(), fake.sends[0])
}

func TestLivenessPollDetectsSilentDrop(t *testing.T) {
	fake := &fakeTransport{}
	m := newTestManager(t, fake, 5*time.Millisecond)
	require.NoError(t, m.Connect(context.Background()))

	// Simulate the printer going out of range without any disconnect event.
	fake.setConnected(false)

	require.Eventually(t, func() bool {
		return m.Status() == StateDisconnected
	}, time.Second, time.Millisecond)
}

func TestLivenessPollDetectsRestoredLink(t *testing.T) {
	fake := &fakeTransport{}
	m := newTestManager(t, fake, 5*time.Millisecond)

	fake.setConnected(true)

	require.Eventually(t, func() bool {
		return m.Status() == StateConnected
	}, time.Second, time.Millisecond)
}

func TestCloseStopsPoll(t *testing.T) {
	fake := &fakeTransport{}
	m := NewManager(fake, time.Millisecond, zerolog.Nop())
	m.Close()

	// Close is idempotent and the poll goroutine has exited.
	m.Close()

	fake.mu.Lock()
	before := fake.livenessCalls
	fake.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	fake.mu.Lock()
	after := fake.livenessCalls
	fake.mu.Unlock()
	assert.Equal(t, before, after, "no liveness probes after Close")
}
