package core

import (
	"sort"
	"testing"
)

func TestHubRegisterJoinsIdentityRoom(t *testing.T) {
	hub := NewHub(nil)

	phone := NewSession("a-1", "100")
	desk := NewSession("a-2", "100")
	hub.Register(phone)
	hub.Register(desk)

	got := hub.SessionsOf("100")
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if len(got) != 2 || got[0] != "a-1" || got[1] != "a-2" {
		t.Fatalf("unexpected sessions: %v", got)
	}
	if len(hub.SessionsOf("200")) != 0 {
		t.Fatal("offline user must have no sessions")
	}
}

func TestHubAbsentRoomIsEmpty(t *testing.T) {
	hub := NewHub(nil)
	if ids := hub.SessionsOfRoom(ServerRoom("nope")); len(ids) != 0 {
		t.Fatalf("expected empty room, got %v", ids)
	}
}

func TestHubJoinRoomAndEmit(t *testing.T) {
	hub := NewHub(nil)

	alice := NewSession("a", "100")
	bob := NewSession("b", "200")
	hub.Register(alice)
	hub.Register(bob)

	hub.JoinRoom(alice.ID, ServerRoom("s-1"))
	hub.JoinRoom(bob.ID, ServerRoom("s-1"))
	hub.JoinRoom(bob.ID, ServerRoom("s-1")) // idempotent
	hub.JoinRoom("ghost", ServerRoom("s-1"))

	ids := hub.SessionsOfRoom(ServerRoom("s-1"))
	if len(ids) != 2 {
		t.Fatalf("expected 2 sessions in room, got %v", ids)
	}

	for _, id := range ids {
		hub.Emit(id, &Event{Kind: EventMemberAdd})
	}
	mustEvent(t, alice.Events, EventMemberAdd)
	mustEvent(t, bob.Events, EventMemberAdd)
	mustNoEvent(t, bob.Events)
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub(nil)

	phone := NewSession("a-1", "100")
	desk := NewSession("a-2", "100")
	hub.Register(phone)
	hub.Register(desk)
	hub.JoinRoom(phone.ID, ServerRoom("s-1"))

	if last := hub.Unregister(phone); last {
		t.Fatal("user still has a session")
	}
	if _, ok := <-phone.Events; ok {
		t.Fatal("events channel must be closed after unregister")
	}
	if ids := hub.SessionsOfRoom(ServerRoom("s-1")); len(ids) != 0 {
		t.Fatalf("server room must be gone, got %v", ids)
	}

	// Emitting to a departed session is a silent no-op.
	hub.Emit(phone.ID, &Event{Kind: EventHello})

	if last := hub.Unregister(desk); !last {
		t.Fatal("expected last session to report offline")
	}
	if last := hub.Unregister(desk); last {
		t.Fatal("double unregister must be a no-op")
	}
	if len(hub.SessionsOf("100")) != 0 {
		t.Fatal("user must be offline")
	}
}

func TestHubEmitDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil)
	s := NewSession("slow", "100")
	hub.Register(s)

	for i := 0; i < cap(s.Events)+10; i++ {
		hub.Emit(s.ID, &Event{Kind: EventReceiveMessage})
	}
	if len(s.Events) != cap(s.Events) {
		t.Fatalf("expected full buffer, got %d/%d", len(s.Events), cap(s.Events))
	}
}
