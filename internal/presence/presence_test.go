package presence

import (
	"context"
	"os"
	"testing"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.SetPresence(ctx, "100", Online); err != nil {
		t.Fatalf("set presence: %v", err)
	}
	if err := s.SetPresence(ctx, "200", Busy); err != nil {
		t.Fatalf("set presence: %v", err)
	}
	if err := s.SetCustomStatus(ctx, "100", "coding"); err != nil {
		t.Fatalf("set custom status: %v", err)
	}

	presences, err := s.Presences(ctx, []string{"100", "200", "300"})
	if err != nil {
		t.Fatalf("presences: %v", err)
	}
	if presences["100"] != Online || presences["200"] != Busy {
		t.Fatalf("unexpected presences %v", presences)
	}
	if _, ok := presences["300"]; ok {
		t.Fatal("unknown user must be absent")
	}

	statuses, err := s.CustomStatuses(ctx, []string{"100", "200"})
	if err != nil {
		t.Fatalf("custom statuses: %v", err)
	}
	if statuses["100"] != "coding" || statuses["200"] != "" {
		t.Fatalf("unexpected statuses %v", statuses)
	}

	if err := s.ClearPresence(ctx, "100"); err != nil {
		t.Fatalf("clear presence: %v", err)
	}
	if err := s.SetCustomStatus(ctx, "100", ""); err != nil {
		t.Fatalf("clear custom status: %v", err)
	}
	presences, _ = s.Presences(ctx, []string{"100"})
	if presences["100"] != Offline {
		t.Fatalf("expected offline after clear, got %v", presences["100"])
	}

	empty, err := s.Presences(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty lookup: %v %v", empty, err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("WIRECHAT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("WIRECHAT_TEST_REDIS_URL not set")
	}

	s, err := NewRedisStore(context.Background(), url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()

	exerciseStore(t, s)
}
