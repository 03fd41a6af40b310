package http

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-dispatch/internal/core"
	"github.com/vovakirdan/wirechat-dispatch/internal/presence"
	"github.com/vovakirdan/wirechat-dispatch/internal/store/sqlite"
)

func TestWebSocketRegistersSession(t *testing.T) {
	env := newTestEnv(t, testConfig())
	token, alice := env.register(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, socketID := env.dial(t, ctx, token)

	sessions := env.hub.SessionsOf(alice.UniqueID)
	if len(sessions) != 1 || string(sessions[0]) != socketID {
		t.Fatalf("expected session %s registered, got %v", socketID, sessions)
	}
}

// blockingPresence holds ClearPresence until release is closed.
type blockingPresence struct {
	*presence.MemoryStore
	clearing chan struct{}
	release  chan struct{}
}

func (p *blockingPresence) ClearPresence(ctx context.Context, userID string) error {
	close(p.clearing)
	<-p.release
	return p.MemoryStore.ClearPresence(ctx, userID)
}

func TestReconnectDuringDisconnectStaysOnline(t *testing.T) {
	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()
	hub := core.NewHub(&logger)
	presences := &blockingPresence{
		MemoryStore: presence.NewMemoryStore(),
		clearing:    make(chan struct{}),
		release:     make(chan struct{}),
	}
	h := NewWSHandler(hub, nil, st, presences, &logger)
	ctx := context.Background()

	first := core.NewSession("s-1", "42")
	h.connect(ctx, first)

	disconnected := make(chan struct{})
	go func() {
		h.disconnect(first)
		close(disconnected)
	}()
	<-presences.clearing

	reconnected := make(chan struct{})
	go func() {
		h.connect(ctx, core.NewSession("s-2", "42"))
		close(reconnected)
	}()

	select {
	case <-reconnected:
		t.Fatal("reconnect must wait for the pending clear")
	case <-time.After(50 * time.Millisecond):
	}

	close(presences.release)
	<-disconnected
	<-reconnected

	got, _ := presences.Presences(ctx, []string{"42"})
	if got["42"] != presence.Online {
		t.Fatalf("user with a live session must stay online, got %v", got)
	}
	if len(hub.SessionsOf("42")) != 1 {
		t.Fatalf("expected one live session, got %v", hub.SessionsOf("42"))
	}
}
