// Package notify writes in-app notification records and delivers push notifications.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-dispatch/internal/core"
	"github.com/vovakirdan/wirechat-dispatch/internal/metrics"
	"github.com/vovakirdan/wirechat-dispatch/internal/store"
)

// Store is the persistence the notifier needs.
type Store interface {
	GetUserByUniqueID(ctx context.Context, uniqueID string) (*store.User, error)
	ListServerMembers(ctx context.Context, serverID int64) ([]*store.ServerMember, error)
	UpsertNotifications(ctx context.Context, n store.NotificationUpsert) error
}

// Service implements core.Notifier on top of the durable store.
type Service struct {
	store Store
	log   *zerolog.Logger
}

func NewService(st Store, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{store: st, log: logger}
}

// Notify bumps the unread counter of every recipient and returns their unique ids.
// In server context every member except the sender and members that muted the
// channel is a recipient; in direct context only the explicit recipient is.
func (s *Service) Notify(ctx context.Context, req core.NotifyRequest) ([]string, error) {
	if req.Sender == nil || req.Message == nil {
		return nil, core.ErrBadRequest
	}

	var (
		ids       []int64
		uniqueIDs []string
		serverID  *int64
	)

	switch {
	case req.ServerID != 0:
		members, err := s.store.ListServerMembers(ctx, req.ServerID)
		if err != nil {
			return nil, fmt.Errorf("list server members: %w", err)
		}
		for _, m := range members {
			if m.Member == nil || m.Member.ID == req.Sender.ID || muted(m, req.ChannelID) {
				continue
			}
			ids = append(ids, m.Member.ID)
			uniqueIDs = append(uniqueIDs, m.Member.UniqueID)
		}
		sid := req.ServerID
		serverID = &sid
	case req.RecipientID != "":
		if req.RecipientID == req.Sender.UniqueID {
			return []string{}, nil
		}
		recipient, err := s.store.GetUserByUniqueID(ctx, req.RecipientID)
		if errors.Is(err, store.ErrNotFound) {
			return []string{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get recipient: %w", err)
		}
		ids = []int64{recipient.ID}
		uniqueIDs = []string{recipient.UniqueID}
	default:
		return nil, fmt.Errorf("notify %s: no server or recipient: %w", req.ChannelID, core.ErrBadRequest)
	}

	if len(ids) == 0 {
		return []string{}, nil
	}

	if err := s.store.UpsertNotifications(ctx, store.NotificationUpsert{
		ChannelID:     req.ChannelID,
		ServerID:      serverID,
		SenderID:      req.Sender.ID,
		LastMessageID: req.Message.MessageID,
		RecipientIDs:  ids,
	}); err != nil {
		return nil, fmt.Errorf("upsert notifications: %w", err)
	}

	metrics.NotificationsWritten.Add(float64(len(ids)))
	s.log.Debug().
		Str("channel_id", req.ChannelID).
		Int("recipients", len(ids)).
		Msg("notifications written")

	return uniqueIDs, nil
}

func muted(m *store.ServerMember, channelID string) bool {
	for _, id := range m.MutedChannels {
		if id == channelID {
			return true
		}
	}
	return false
}

var _ core.Notifier = (*Service)(nil)
