package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-dispatch/internal/service/servers"
	"github.com/vovakirdan/wirechat-dispatch/internal/store"
)

// ServerHandlers provides HTTP handlers for server membership.
type ServerHandlers struct {
	store   store.Store
	servers *servers.Service
	log     *zerolog.Logger
}

// NewServerHandlers creates a new server handlers instance.
func NewServerHandlers(st store.Store, svc *servers.Service, logger *zerolog.Logger) *ServerHandlers {
	return &ServerHandlers{
		store:   st,
		servers: svc,
		log:     logger,
	}
}

// CreateServerRequest represents the create server request body.
type CreateServerRequest struct {
	Name   string `json:"name" binding:"required"`
	Public bool   `json:"public"`
}

// JoinRequest carries the session that asked to join, so it can skip the echo.
type JoinRequest struct {
	SocketID string `json:"socketID"`
}

// InviteResponse represents a created invite.
type InviteResponse struct {
	InviteCode string `json:"invite_code"`
}

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateServer handles server creation.
// POST /api/servers
func (h *ServerHandlers) CreateServer(c *gin.Context) {
	user, ok := currentUser(c, h.store, h.log)
	if !ok {
		return
	}

	var req CreateServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	joined, err := h.servers.Create(c.Request.Context(), user, req.Name, req.Public)
	if err != nil {
		if errors.Is(err, servers.ErrInvalidName) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("failed to create server")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("server_id", joined.Server.ServerID).Str("user_id", user.UniqueID).Msg("server created")
	c.JSON(http.StatusCreated, servers.WireServer(joined))
}

// CreateInvite issues an invite code.
// POST /api/servers/:server_id/invites
func (h *ServerHandlers) CreateInvite(c *gin.Context) {
	user, ok := currentUser(c, h.store, h.log)
	if !ok {
		return
	}

	code, err := h.servers.CreateInvite(c.Request.Context(), user, c.Param("server_id"))
	if err != nil {
		h.writeError(c, err, "failed to create invite")
		return
	}
	c.JSON(http.StatusCreated, InviteResponse{InviteCode: code})
}

// JoinByInvite joins the server behind an invite code.
// POST /api/servers/invite/:invite_code
func (h *ServerHandlers) JoinByInvite(c *gin.Context) {
	user, ok := currentUser(c, h.store, h.log)
	if !ok {
		return
	}

	var req JoinRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	err := h.servers.JoinByInvite(c.Request.Context(), user, c.Param("invite_code"), req.SocketID, func(j *servers.Joined) {
		c.JSON(http.StatusOK, servers.WireServer(j))
	})
	if err != nil {
		h.writeError(c, err, "failed to join server")
	}
}

// JoinPublic joins a public server.
// POST /api/servers/:server_id/join
func (h *ServerHandlers) JoinPublic(c *gin.Context) {
	user, ok := currentUser(c, h.store, h.log)
	if !ok {
		return
	}

	var req JoinRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	err := h.servers.JoinPublic(c.Request.Context(), user, c.Param("server_id"), req.SocketID, func(j *servers.Joined) {
		c.JSON(http.StatusOK, servers.WireServer(j))
	})
	if err != nil {
		h.writeError(c, err, "failed to join server")
	}
}

// MuteChannel mutes a server channel for the caller.
// PUT /api/servers/:server_id/channels/:channel_id/mute
func (h *ServerHandlers) MuteChannel(c *gin.Context) {
	h.setMuted(c, true)
}

// UnmuteChannel unmutes a server channel for the caller.
// DELETE /api/servers/:server_id/channels/:channel_id/mute
func (h *ServerHandlers) UnmuteChannel(c *gin.Context) {
	h.setMuted(c, false)
}

func (h *ServerHandlers) setMuted(c *gin.Context, muted bool) {
	user, ok := currentUser(c, h.store, h.log)
	if !ok {
		return
	}

	if err := h.servers.SetMuted(c.Request.Context(), user, c.Param("server_id"), c.Param("channel_id"), muted); err != nil {
		h.writeError(c, err, "failed to update muted channel")
		return
	}

	msg := "Channel unmuted."
	if muted {
		msg = "Channel muted."
	}
	c.JSON(http.StatusOK, MessageResponse{Message: msg})
}

func (h *ServerHandlers) writeError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, servers.ErrServerNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Invalid server."})
	case errors.Is(err, servers.ErrNotPublic):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Server is not public."})
	case errors.Is(err, servers.ErrAlreadyJoined):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Already joined!"})
	case errors.Is(err, servers.ErrNotMember), errors.Is(err, servers.ErrChannelNotFound):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Msg(logMsg)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
