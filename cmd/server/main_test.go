package main

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sakupos/backend/internal/config"
	"sakupos/backend/internal/domain"
	"sakupos/backend/internal/realtime"
	"sakupos/backend/internal/session"
)

func TestSeedOperatorsSkipsUnsetPasswords(t *testing.T) {
	sessions := session.NewManager("test-secret", time.Hour)
	seedOperators(sessions, config.Config{OwnerPassword: "rahasia-owner"}, zerolog.Nop())

	if _, err := sessions.Login(domain.LoginRequest{Username: "kasir", Password: ""}); err == nil {
		t.Fatalf("expected cashier account to be absent when password unset")
	}
	if _, err := sessions.Login(domain.LoginRequest{Username: "owner", Password: "rahasia-owner"}); err != nil {
		t.Fatalf("expected seeded owner login to succeed, got %v", err)
	}
}

func TestWatchRemoteChangesReturnsWhenFeedCloses(t *testing.T) {
	events := make(chan realtime.Event, 1)
	events <- realtime.Event{Entity: realtime.EntityProduct, Action: realtime.ActionCreated, ID: "p1"}

	done := make(chan struct{})
	go func() {
		watchRemoteChanges(events, zerolog.Nop())
		close(done)
	}()

	// Cancelling the subscription closes the feed channel; the watcher must
	// exit rather than linger.
	close(events)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("watcher did not stop after the feed closed")
	}
}
