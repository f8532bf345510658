package printer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Connection states. The state is the manager's belief about reachability,
// reconciled against the transport by the liveness poll.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
)

const defaultPollInterval = 2 * time.Second

type connectAttempt struct {
	done chan struct{}
	err  error
}

// Manager owns the lifecycle of one printer link. Explicit connect and
// disconnect calls are serialized; a background poll detects links that drop
// silently (printer out of range, powered off) and flips the state back.
type Manager struct {
	transport Transport
	interval  time.Duration
	logger    zerolog.Logger

	mu       sync.Mutex
	state    string
	attempt  *connectAttempt // in-flight connect, nil otherwise
	pending  int             // explicit operations in flight; poll stands down
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewManager starts the liveness poll immediately; call Close to stop it.
func NewManager(transport Transport, interval time.Duration, logger zerolog.Logger) *Manager {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	m := &Manager{
		transport: transport,
		interval:  interval,
		logger:    logger.With().Str("component", "printer").Logger(),
		state:     StateDisconnected,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go m.pollLoop()
	return m
}

// Status returns the current believed connection state.
func (m *Manager) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect establishes the link. Already connected is a no-op success. A call
// made while another connect is in flight does not start a second physical
// attempt; it waits for and returns the in-flight attempt's outcome. The
// state is always settled (connected or disconnected) before returning.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	if m.attempt != nil {
		attempt := m.attempt
		m.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	attempt := &connectAttempt{done: make(chan struct{})}
	m.attempt = attempt
	m.pending++
	m.state = StateConnecting
	m.mu.Unlock()

	err := m.transport.Connect(ctx)

	m.mu.Lock()
	if err != nil {
		m.state = StateDisconnected
		attempt.err = fmt.Errorf("%w: %v", ErrConnectFailed, err)
	} else {
		m.state = StateConnected
	}
	m.attempt = nil
	m.pending--
	m.mu.Unlock()
	close(attempt.done)

	if attempt.err != nil {
		m.logger.Warn().Err(err).Msg("connect failed")
	} else {
		m.logger.Info().Msg("printer connected")
	}
	return attempt.err
}

// Disconnect releases the link. The state transitions to disconnected even
// when the transport fails to fully release: the belief must not stay stuck
// on a link that no longer reflects reality. The failure is still returned.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	m.pending++
	m.mu.Unlock()

	err := m.transport.Disconnect(ctx)

	m.mu.Lock()
	m.state = StateDisconnected
	m.pending--
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn().Err(err).Msg("disconnect failed, treating link as gone")
		return err
	}
	m.logger.Info().Msg("printer disconnected")
	return nil
}

// Print sends an encoded job over the connected link. Jobs are not queued
// here; submitting while disconnected returns ErrNotConnected.
func (m *Manager) Print(ctx context.Context, job Job) error {
	m.mu.Lock()
	connected := m.state == StateConnected
	m.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	if err := m.transport.Send(ctx, job.Encode()); err != nil {
		return fmt.Errorf("send print job: %w", err)
	}
	return nil
}

// Close stops the liveness poll. It does not disconnect the transport.
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
}

func (m *Manager) pollLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.reconcile()
		}
	}
}

// reconcile aligns the believed state with what the transport reports. It
// stands down while an explicit connect or disconnect is in flight so it
// never overrides a transition in progress.
func (m *Manager) reconcile() {
	m.mu.Lock()
	if m.pending > 0 {
		m.mu.Unlock()
		return
	}
	believed := m.state
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	actual := m.transport.IsConnected(ctx)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending > 0 || m.state != believed {
		return
	}
	switch {
	case believed == StateConnected && !actual:
		m.state = StateDisconnected
		m.logger.Warn().Msg("liveness poll: link dropped")
	case believed == StateDisconnected && actual:
		m.state = StateConnected
		m.logger.Info().Msg("liveness poll: link restored")
	}
}
