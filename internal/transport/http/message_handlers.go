package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-dispatch/internal/core"
	"github.com/vovakirdan/wirechat-dispatch/internal/proto"
	"github.com/vovakirdan/wirechat-dispatch/internal/service/servers"
	"github.com/vovakirdan/wirechat-dispatch/internal/store"
)

// MessageHandlers provides HTTP handlers for channels and messages.
type MessageHandlers struct {
	store      store.Store
	dispatcher *core.Dispatcher
	log        *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, dispatcher *core.Dispatcher, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store:      st,
		dispatcher: dispatcher,
		log:        logger,
	}
}

// SendMessageRequest is the body of a send. Color is loosely typed; anything
// that is not a string is ignored.
type SendMessageRequest struct {
	TempID   string `json:"tempID"`
	Message  string `json:"message"`
	SocketID string `json:"socketID"`
	Color    any    `json:"color"`
}

// SendMessageResponse is returned once the message is persisted.
type SendMessageResponse struct {
	Status         bool          `json:"status"`
	TempID         string        `json:"tempID"`
	MessageCreated proto.Message `json:"messageCreated"`
}

// StatusResponse is a status flag with a user-facing message.
type StatusResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// ChannelResponse represents a direct channel in API responses.
type ChannelResponse struct {
	ChannelID  string       `json:"channelID"`
	Recipients []proto.User `json:"recipients"`
}

// SendMessage persists a message and fans it out.
// POST /api/channels/:channel_id/messages
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	user, ok := currentUser(c, h.store, h.log)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	channel, err := h.store.GetChannel(ctx, c.Param("channel_id"), user.ID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrChannelNotFound.Error()})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("channel_id", c.Param("channel_id")).Msg("failed to load channel")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if channel.Kind == store.ChannelKindServer {
		member, err := h.store.IsServerMember(ctx, channel.Server.ID, user.ID)
		if err != nil {
			h.log.Error().Err(err).Msg("failed to check membership")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		if !member {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrChannelNotFound.Error()})
			return
		}
	}

	color, _ := req.Color.(string)
	_, err = h.dispatcher.Send(ctx, core.SendRequest{
		Channel:   channel,
		Sender:    user,
		Body:      req.Message,
		TempID:    req.TempID,
		SessionID: core.SessionID(req.SocketID),
		Color:     color,
	}, func(sent *core.Sent) {
		c.JSON(http.StatusOK, SendMessageResponse{
			Status:         true,
			TempID:         sent.TempID,
			MessageCreated: wireMessage(sent.Message),
		})
	})
	if err == nil {
		return
	}

	var coreErr *core.CoreError
	switch {
	case errors.Is(err, core.ErrEmptyMessage):
		c.Status(http.StatusNoContent)
	case errors.As(err, &coreErr) && coreErr.Code == core.ErrCodeMessageTooLong:
		c.JSON(http.StatusForbidden, StatusResponse{Status: false, Message: coreErr.Message})
	case errors.As(err, &coreErr), errors.Is(err, core.ErrBadRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Str("channel_id", channel.ChannelID).Msg("failed to send message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// OpenDirect opens a direct channel with another user, or the notes channel with oneself.
// POST /api/channels/dm/:unique_id
func (h *MessageHandlers) OpenDirect(c *gin.Context) {
	user, ok := currentUser(c, h.store, h.log)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	recipient, err := h.store.GetUserByUniqueID(ctx, c.Param("unique_id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load recipient")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	channel, err := h.store.CreateDirectChannel(ctx, user.ID, recipient.ID)
	if err != nil {
		h.log.Error().Err(err).Str("recipient", recipient.UniqueID).Msg("failed to open direct channel")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	recipients := make([]proto.User, 0, len(channel.Recipients))
	for _, r := range channel.Recipients {
		recipients = append(recipients, servers.WireUser(r))
	}
	c.JSON(http.StatusOK, ChannelResponse{ChannelID: channel.ChannelID, Recipients: recipients})
}
