package servers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-dispatch/internal/core"
	"github.com/vovakirdan/wirechat-dispatch/internal/notify"
	"github.com/vovakirdan/wirechat-dispatch/internal/presence"
	"github.com/vovakirdan/wirechat-dispatch/internal/proto"
	"github.com/vovakirdan/wirechat-dispatch/internal/store"
	"github.com/vovakirdan/wirechat-dispatch/internal/store/sqlite"
)

type fixture struct {
	store      *sqlite.SQLiteStore
	hub        *core.Hub
	presence   *presence.MemoryStore
	dispatcher *core.Dispatcher
	svc        *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hub := core.NewHub(nil)
	presences := presence.NewMemoryStore()
	dispatcher := core.NewDispatcher(st, core.NewMentionResolver(st), hub, notify.NewService(st, nil), notify.NopPusher{}, nil)

	return &fixture{
		store:      st,
		hub:        hub,
		presence:   presences,
		dispatcher: dispatcher,
		svc:        New(st, hub, presences, dispatcher, nil),
	}
}

func (f *fixture) user(t *testing.T, uniqueID, name string) *store.User {
	t.Helper()
	u, err := f.store.CreateUser(context.Background(), &store.User{UniqueID: uniqueID, Username: name, Tag: "0000"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) connect(id core.SessionID, u *store.User) *core.Session {
	s := core.NewSession(id, u.UniqueID)
	f.hub.Register(s)
	return s
}

func (f *fixture) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.dispatcher.Wait(ctx); err != nil {
		t.Fatalf("dispatcher wait: %v", err)
	}
}

func drain(ch <-chan *core.Event) []*core.Event {
	var out []*core.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func kinds(events []*core.Event) map[core.EventKind]int {
	out := make(map[core.EventKind]int)
	for _, ev := range events {
		out[ev.Kind]++
	}
	return out
}

func TestJoinByInvite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := f.user(t, "100", "alice")
	bob := f.user(t, "200", "bob")
	aliceSession := f.connect("a-1", alice)
	bobPhone := f.connect("b-1", bob)
	bobDesk := f.connect("b-2", bob)

	if err := f.presence.SetPresence(ctx, bob.UniqueID, presence.Online); err != nil {
		t.Fatal(err)
	}

	created, err := f.svc.Create(ctx, alice, "guild", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	drain(aliceSession.Events)

	code, err := f.svc.CreateInvite(ctx, alice, created.Server.ServerID)
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}

	var joined *Joined
	err = f.svc.JoinByInvite(ctx, bob, code, "b-1", func(j *Joined) {
		joined = j
		if len(aliceSession.Events) != 0 {
			t.Error("room was told before the joiner got a response")
		}
	})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined == nil || joined.Server.ServerID != created.Server.ServerID {
		t.Fatalf("unexpected joined %+v", joined)
	}
	f.settle(t)

	aliceEvents := drain(aliceSession.Events)
	if len(aliceEvents) != 2 || aliceEvents[0].Kind != core.EventMemberAdd {
		t.Fatalf("expected member_add then join message for alice, got %+v", kinds(aliceEvents))
	}
	add := aliceEvents[0].Payload.(proto.MemberAdd)
	if add.Member.User.ID != "200" || add.Member.Presence != int(presence.Online) {
		t.Fatalf("unexpected member_add payload %+v", add)
	}
	if aliceEvents[1].Kind != core.EventReceiveMessage || aliceEvents[1].Message.Kind != store.MessageKindJoin {
		t.Fatalf("expected join message, got %+v", aliceEvents[1])
	}

	for _, s := range []*core.Session{bobPhone, bobDesk} {
		events := drain(s.Events)
		if len(events) == 0 || events[0].Kind != core.EventServerJoined {
			t.Fatalf("expected server:joined first, got %+v", kinds(events))
		}
		if got := events[0].Payload.(proto.ServerJoined); got.SocketID != "b-1" || len(got.Server.Channels) != 1 {
			t.Fatalf("unexpected server:joined payload %+v", got)
		}
		k := kinds(events)
		if k[core.EventReceiveMessage] != 1 || k[core.EventServerRoles] != 1 || k[core.EventServerMembers] != 1 || k[core.EventMemberAdd] != 0 {
			t.Fatalf("unexpected events for %s: %+v", s.ID, k)
		}
		for _, ev := range events {
			if ev.Kind == core.EventServerMembers {
				if members := ev.Payload.(proto.ServerMembers).Members; len(members) != 2 {
					t.Fatalf("expected 2 members, got %d", len(members))
				}
			}
		}
	}

	room := f.hub.SessionsOfRoom(core.ServerRoom(created.Server.ServerID))
	if len(room) != 3 {
		t.Fatalf("expected 3 sessions in server room, got %v", room)
	}

	messages, err := f.store.ListMessages(ctx, created.Server.DefaultChannelID, 10)
	if err != nil || len(messages) != 1 || messages[0].Kind != store.MessageKindJoin {
		t.Fatalf("expected persisted join message, got %+v (%v)", messages, err)
	}

	// Alice is offline from push's point of view only when she has no session;
	// the notification row is written regardless.
	rows, _ := f.store.ListNotifications(ctx, alice.ID)
	if len(rows) != 1 {
		t.Fatalf("expected join notification for alice, got %+v", rows)
	}

	if err := f.svc.JoinByInvite(ctx, bob, code, "", nil); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
}

func TestJoinRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := f.user(t, "100", "alice")
	bob := f.user(t, "200", "bob")

	private, err := f.svc.Create(ctx, alice, "private", false)
	if err != nil {
		t.Fatal(err)
	}
	public, err := f.svc.Create(ctx, alice, "public", true)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.JoinByInvite(ctx, bob, "nope", "", nil); !errors.Is(err, ErrServerNotFound) {
		t.Fatalf("unknown invite: expected ErrServerNotFound, got %v", err)
	}
	if err := f.svc.JoinPublic(ctx, bob, "nope", "", nil); !errors.Is(err, ErrServerNotFound) {
		t.Fatalf("unknown server: expected ErrServerNotFound, got %v", err)
	}
	if err := f.svc.JoinPublic(ctx, bob, private.Server.ServerID, "", nil); !errors.Is(err, ErrNotPublic) {
		t.Fatalf("private server: expected ErrNotPublic, got %v", err)
	}

	if err := f.store.BanUser(ctx, public.Server.ID, bob.ID); err != nil {
		t.Fatal(err)
	}
	called := false
	err = f.svc.JoinPublic(ctx, bob, public.Server.ServerID, "", func(*Joined) { called = true })
	if !errors.Is(err, ErrServerNotFound) || called {
		t.Fatalf("banned user: expected ErrServerNotFound without response, got %v", err)
	}

	carol := f.user(t, "300", "carol")
	if err := f.svc.JoinPublic(ctx, carol, public.Server.ServerID, "", nil); err != nil {
		t.Fatalf("public join: %v", err)
	}
	f.settle(t)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "100", "alice")

	for _, name := range []string{"", "   ", "this server name is far too long to be accepted"} {
		if _, err := f.svc.Create(context.Background(), alice, name, false); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("name %q: expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestCreateInviteRequiresMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "100", "alice")
	bob := f.user(t, "200", "bob")

	created, err := f.svc.Create(ctx, alice, "guild", false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CreateInvite(ctx, bob, created.Server.ServerID); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
}

func TestSetMuted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := f.user(t, "100", "alice")
	bob := f.user(t, "200", "bob")
	session := f.connect("a-1", alice)

	created, err := f.svc.Create(ctx, alice, "guild", false)
	if err != nil {
		t.Fatal(err)
	}
	other, err := f.svc.Create(ctx, alice, "other", false)
	if err != nil {
		t.Fatal(err)
	}
	drain(session.Events)

	channelID := created.Server.DefaultChannelID
	if err := f.svc.SetMuted(ctx, alice, created.Server.ServerID, channelID, true); err != nil {
		t.Fatalf("mute: %v", err)
	}
	events := drain(session.Events)
	if len(events) != 1 || events[0].Kind != core.EventChannelMute {
		t.Fatalf("expected channel:mute, got %+v", kinds(events))
	}
	if got := events[0].Payload.(proto.ChannelMute); got.ChannelID != channelID {
		t.Fatalf("unexpected mute payload %+v", got)
	}

	members, _ := f.store.ListServerMembers(ctx, created.Server.ID)
	if len(members) != 1 || len(members[0].MutedChannels) != 1 {
		t.Fatalf("expected muted channel to be stored, got %+v", members)
	}

	if err := f.svc.SetMuted(ctx, alice, created.Server.ServerID, channelID, false); err != nil {
		t.Fatalf("unmute: %v", err)
	}
	if events := drain(session.Events); len(events) != 1 || events[0].Kind != core.EventChannelUnmute {
		t.Fatalf("expected channel:unmute, got %+v", kinds(events))
	}

	if err := f.svc.SetMuted(ctx, alice, created.Server.ServerID, other.Server.DefaultChannelID, true); !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("foreign channel: expected ErrChannelNotFound, got %v", err)
	}
	if err := f.svc.SetMuted(ctx, bob, created.Server.ServerID, channelID, true); !errors.Is(err, ErrNotMember) {
		t.Fatalf("non-member: expected ErrNotMember, got %v", err)
	}
}
