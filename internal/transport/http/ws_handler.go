package http

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"io"
	stdhttp "net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-dispatch/internal/auth"
	"github.com/vovakirdan/wirechat-dispatch/internal/core"
	"github.com/vovakirdan/wirechat-dispatch/internal/presence"
	"github.com/vovakirdan/wirechat-dispatch/internal/proto"
	"github.com/vovakirdan/wirechat-dispatch/internal/store"
)

// WSHandler upgrades HTTP connections and bridges them to core sessions.
type WSHandler struct {
	hub      *core.Hub
	auth     *auth.Service
	store    store.ServerStore
	presence presence.Store
	log      *zerolog.Logger

	// Register+SetPresence and Unregister+ClearPresence are each atomic per user,
	// so a stale clear can never land after a reconnect.
	presenceLocks [64]sync.Mutex
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, st store.ServerStore, presences presence.Store, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, auth: authService, store: st, presence: presences, log: logger}
}

// ServeHTTP authenticates the token query parameter (or bearer header) and serves the socket.
// Must be mounted outside gin: gin's writer refuses the hijack after the 101 is written.
// GET /ws?token=
func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws token rejected")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(stdhttp.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid token"})
		return
	}

	h.serve(w, r, claims)
}

func (h *WSHandler) serve(w stdhttp.ResponseWriter, r *stdhttp.Request, claims *auth.Claims) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := core.NewSession(core.SessionID(uuid.NewString()), claims.UniqueID)
	h.connect(ctx, session)
	defer h.disconnect(session)

	h.joinServerRooms(ctx, session, claims.UserID)
	h.hub.Emit(session.ID, &core.Event{Kind: core.EventHello, Session: session.ID})

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("session_id", string(session.ID)).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) joinServerRooms(ctx context.Context, session *core.Session, userID int64) {
	servers, err := h.store.ListUserServers(ctx, userID)
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", string(session.ID)).Msg("failed to list user servers")
		return
	}
	for _, s := range servers {
		h.hub.JoinRoom(session.ID, core.ServerRoom(s.ServerID))
	}
}

func (h *WSHandler) presenceLock(userID string) *sync.Mutex {
	f := fnv.New32a()
	_, _ = f.Write([]byte(userID))
	return &h.presenceLocks[f.Sum32()%uint32(len(h.presenceLocks))]
}

func (h *WSHandler) connect(ctx context.Context, session *core.Session) {
	mu := h.presenceLock(session.UserID)
	mu.Lock()
	defer mu.Unlock()

	h.hub.Register(session)
	if err := h.presence.SetPresence(ctx, session.UserID, presence.Online); err != nil {
		h.log.Warn().Err(err).Str("user_id", session.UserID).Msg("failed to set presence")
	}
}

func (h *WSHandler) disconnect(session *core.Session) {
	mu := h.presenceLock(session.UserID)
	mu.Lock()
	defer mu.Unlock()

	if !h.hub.Unregister(session) {
		return
	}
	// Last device gone.
	if err := h.presence.ClearPresence(context.Background(), session.UserID); err != nil {
		h.log.Warn().Err(err).Str("user_id", session.UserID).Msg("failed to clear presence")
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		out := proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventPong}
		if inbound.Type != proto.InboundTypePing {
			out = proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: &proto.Error{Code: "invalid_message", Msg: "unknown message type"},
			}
		}
		if err := wsjson.Write(ctx, conn, out); err != nil {
			h.log.Warn().Err(err).Str("session_id", string(session.ID)).Msg("write ws reply")
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		select {
		case event, ok := <-session.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("session_id", string(session.ID)).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
