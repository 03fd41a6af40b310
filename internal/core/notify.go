package core

import (
	"context"
	"time"

	"github.com/vovakirdan/wirechat-dispatch/internal/store"
)

// NotifyRequest describes who should get an in-app notification for a message.
// Exactly one of ServerID (room context) or RecipientID (direct context) is set.
type NotifyRequest struct {
	Message     *PublicMessage
	ChannelID   string
	ServerID    int64
	RecipientID string
	Sender      *store.User
}

// Notifier writes in-app notification records and reports who was notified.
// An empty recipient set is a no-op that returns an empty result.
type Notifier interface {
	Notify(ctx context.Context, req NotifyRequest) ([]string, error)
}

// PushRequest carries the notified subset of a message to the push layer.
type PushRequest struct {
	Message    *PublicMessage
	Channel    *store.Channel
	Sender     *store.User
	Recipients []string // unique ids returned by Notifier.Notify
	Text       string   // overrides Message.Body in the push payload when set
}

// Pusher delivers push notifications. It is called after Notify and its
// failure never unwinds the notification records.
type Pusher interface {
	Push(ctx context.Context, req PushRequest) error
}

// MessageStore is the persistence the dispatcher needs.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *store.Message) error
	TouchChannel(ctx context.Context, channelID string, at time.Time) error
}
