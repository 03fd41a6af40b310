package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-dispatch/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	default:
	}
}

type fakeMessageStore struct {
	mu       sync.Mutex
	messages []*store.Message
	touched  []string
	seq      int
	err      error
	touchErr error
}

func (f *fakeMessageStore) CreateMessage(_ context.Context, msg *store.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.seq++
	msg.ID = int64(f.seq)
	msg.MessageID = fmt.Sprintf("msg-%d", f.seq)
	msg.CreatedAt = time.Unix(1700000000, 0).UTC()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeMessageStore) TouchChannel(_ context.Context, channelID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, channelID)
	return f.touchErr
}

func (f *fakeMessageStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeMessageStore) touches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.touched...)
}

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[string]*store.User
	queries [][]string
}

func newFakeUsers(users ...*store.User) *fakeUsers {
	f := &fakeUsers{byID: make(map[string]*store.User)}
	for _, u := range users {
		f.byID[u.UniqueID] = u
	}
	return f
}

func (f *fakeUsers) FindUsersByUniqueIDs(_ context.Context, ids []string) ([]*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, append([]string(nil), ids...))

	var out []*store.User
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	requests []NotifyRequest
	members  []string // notified set for server context
	err      error
}

func (f *fakeNotifier) Notify(_ context.Context, req NotifyRequest) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if req.RecipientID != "" {
		return []string{req.RecipientID}, nil
	}
	return f.members, nil
}

func (f *fakeNotifier) calls() []NotifyRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]NotifyRequest(nil), f.requests...)
}

type fakePusher struct {
	mu       sync.Mutex
	requests []PushRequest
	err      error
}

func (f *fakePusher) Push(_ context.Context, req PushRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.err
}

func (f *fakePusher) calls() []PushRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PushRequest(nil), f.requests...)
}

var errBoom = errors.New("boom")

type dispatchFixture struct {
	hub      *Hub
	store    *fakeMessageStore
	users    *fakeUsers
	notifier *fakeNotifier
	pusher   *fakePusher
	d        *Dispatcher
}

func newDispatchFixture(users ...*store.User) *dispatchFixture {
	f := &dispatchFixture{
		hub:      NewHub(nil),
		store:    &fakeMessageStore{},
		users:    newFakeUsers(users...),
		notifier: &fakeNotifier{},
		pusher:   &fakePusher{},
	}
	f.d = NewDispatcher(f.store, NewMentionResolver(f.users), f.hub, f.notifier, f.pusher, nil)
	return f
}

func (f *dispatchFixture) connect(id SessionID, user *store.User) *Session {
	s := NewSession(id, user.UniqueID)
	f.hub.Register(s)
	return s
}

func testUser(id int64, uniqueID, name string) *store.User {
	return &store.User{ID: id, UniqueID: uniqueID, Username: name, Tag: "abcd"}
}

func serverChannel() *store.Channel {
	return &store.Channel{
		ChannelID: "c-1",
		Kind:      store.ChannelKindServer,
		Server:    &store.Server{ID: 10, ServerID: "s-1", DefaultChannelID: "c-1"},
	}
}

func directChannel(recipient *store.User) *store.Channel {
	return &store.Channel{
		ChannelID:  "dm-1",
		Kind:       store.ChannelKindDirect,
		Recipients: []*store.User{recipient},
	}
}
