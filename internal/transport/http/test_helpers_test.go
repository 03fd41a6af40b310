package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-dispatch/internal/auth"
	"github.com/vovakirdan/wirechat-dispatch/internal/config"
	"github.com/vovakirdan/wirechat-dispatch/internal/core"
	"github.com/vovakirdan/wirechat-dispatch/internal/notify"
	"github.com/vovakirdan/wirechat-dispatch/internal/presence"
	"github.com/vovakirdan/wirechat-dispatch/internal/proto"
	"github.com/vovakirdan/wirechat-dispatch/internal/service/servers"
	"github.com/vovakirdan/wirechat-dispatch/internal/store"
	"github.com/vovakirdan/wirechat-dispatch/internal/store/sqlite"
)

type testEnv struct {
	ts         *httptest.Server
	store      *sqlite.SQLiteStore
	auth       *auth.Service
	hub        *core.Hub
	dispatcher *core.Dispatcher
	presence   *presence.MemoryStore
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.JWTSecret = "test-secret"
	cfg.JWTIssuer = "test"
	cfg.JWTAudience = "test"
	cfg.MessageRateLimit = 0
	return cfg
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	disabledLogger := zerolog.New(nil)

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	})
	hub := core.NewHub(&disabledLogger)
	presences := presence.NewMemoryStore()
	dispatcher := core.NewDispatcher(st, core.NewMentionResolver(st), hub,
		notify.NewService(st, &disabledLogger), notify.NopPusher{}, &disabledLogger)

	server := NewServer(&cfg, Deps{
		Auth:       authService,
		Store:      st,
		Hub:        hub,
		Dispatcher: dispatcher,
		Servers:    servers.New(st, hub, presences, dispatcher, &disabledLogger),
		Presence:   presences,
	}, &disabledLogger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{
		ts:         ts,
		store:      st,
		auth:       authService,
		hub:        hub,
		dispatcher: dispatcher,
		presence:   presences,
	}
}

func (e *testEnv) register(t *testing.T, username string) (string, *store.User) {
	t.Helper()
	token, user, err := e.auth.Register(context.Background(), username, "password123")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return token, user
}

// do sends a JSON request and decodes the response into out when out is non-nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.dispatcher.Wait(ctx); err != nil {
		t.Fatalf("dispatcher wait: %v", err)
	}
}

type envelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// dial opens a socket and returns it with the session id from the hello event.
func (e *testEnv) dial(t *testing.T, ctx context.Context, token string) (*websocket.Conn, string) {
	t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	hello := readEvent(t, ctx, conn, proto.EventHello)
	var data proto.HelloData
	if err := json.Unmarshal(hello.Data, &data); err != nil {
		t.Fatalf("decode hello: %v", err)
	}
	if data.SocketID == "" {
		t.Fatal("hello without socket id")
	}
	return conn, data.SocketID
}

// readEvent reads until an event with the given name arrives.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, name string) envelope {
	t.Helper()

	for {
		var env envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			t.Fatalf("waiting for %s: %v", name, err)
		}
		if env.Event == name {
			return env
		}
	}
}
