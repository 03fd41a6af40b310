package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-dispatch/internal/presence"
	"github.com/vovakirdan/wirechat-dispatch/internal/proto"
	"github.com/vovakirdan/wirechat-dispatch/internal/service/servers"
	"github.com/vovakirdan/wirechat-dispatch/internal/store"
)

// UserHandlers provides HTTP handlers for the caller's own account.
type UserHandlers struct {
	store    store.Store
	presence presence.Store
	log      *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, presences presence.Store, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store:    st,
		presence: presences,
		log:      logger,
	}
}

// NotificationResponse is one unread counter.
type NotificationResponse struct {
	ChannelID     string `json:"channelID"`
	LastMessageID string `json:"lastMessageID"`
	Count         int    `json:"count"`
}

// MeResponse describes the caller with unread counters.
type MeResponse struct {
	User          proto.User             `json:"user"`
	Notifications []NotificationResponse `json:"notifications"`
}

// CustomStatusRequest sets or clears the custom status line.
type CustomStatusRequest struct {
	CustomStatus string `json:"custom_status" binding:"max=100"`
}

// DeviceRequest registers a push token.
type DeviceRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

// Me returns the caller and their unread notifications.
// GET /api/me
func (h *UserHandlers) Me(c *gin.Context) {
	user, ok := currentUser(c, h.store, h.log)
	if !ok {
		return
	}

	notifications, err := h.store.ListNotifications(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list notifications")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := MeResponse{User: servers.WireUser(user), Notifications: make([]NotificationResponse, 0, len(notifications))}
	for _, n := range notifications {
		resp.Notifications = append(resp.Notifications, NotificationResponse{
			ChannelID:     n.ChannelID,
			LastMessageID: n.LastMessageID,
			Count:         n.Count,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// SetCustomStatus updates the caller's custom status line.
// PUT /api/me/status
func (h *UserHandlers) SetCustomStatus(c *gin.Context) {
	user, ok := currentUser(c, h.store, h.log)
	if !ok {
		return
	}

	var req CustomStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.presence.SetCustomStatus(c.Request.Context(), user.UniqueID, strings.TrimSpace(req.CustomStatus)); err != nil {
		h.log.Error().Err(err).Msg("failed to set custom status")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Custom status updated."})
}

// RegisterDevice stores a push token for the caller.
// POST /api/devices
func (h *UserHandlers) RegisterDevice(c *gin.Context) {
	user, ok := currentUser(c, h.store, h.log)
	if !ok {
		return
	}

	var req DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Platform == "" {
		req.Platform = "unknown"
	}

	if err := h.store.AddDevice(c.Request.Context(), user.ID, req.Token, req.Platform); err != nil {
		h.log.Error().Err(err).Msg("failed to register device")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, MessageResponse{Message: "Device registered."})
}
