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

// Payload is what a push transport delivers to one device.
type Payload struct {
	Title     string
	Body      string
	ChannelID string
	ServerID  string
	MessageID string
}

// Transport sends one payload to one device.
type Transport interface {
	Send(ctx context.Context, device *store.Device, payload Payload) error
}

// DeviceStore is the persistence the push sender needs.
type DeviceStore interface {
	FindUsersByUniqueIDs(ctx context.Context, uniqueIDs []string) ([]*store.User, error)
	ListDevices(ctx context.Context, userIDs []int64) ([]*store.Device, error)
}

// Presence reports live sessions of a user.
type Presence interface {
	SessionsOf(userID string) []core.SessionID
}

// PushSender implements core.Pusher. Recipients with a live session already
// saw the message in real time and are skipped.
type PushSender struct {
	store     DeviceStore
	presence  Presence
	transport Transport
	log       *zerolog.Logger
}

func NewPushSender(st DeviceStore, presence Presence, transport Transport, logger *zerolog.Logger) *PushSender {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &PushSender{store: st, presence: presence, transport: transport, log: logger}
}

// Push delivers the message to every registered device of offline recipients.
// Per-device failures are collected; the remaining devices are still tried.
func (p *PushSender) Push(ctx context.Context, req core.PushRequest) error {
	offline := make([]string, 0, len(req.Recipients))
	for _, id := range req.Recipients {
		if len(p.presence.SessionsOf(id)) == 0 {
			offline = append(offline, id)
		}
	}
	if len(offline) == 0 {
		return nil
	}

	users, err := p.store.FindUsersByUniqueIDs(ctx, offline)
	if err != nil {
		return fmt.Errorf("find push recipients: %w", err)
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	devices, err := p.store.ListDevices(ctx, ids)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		return nil
	}

	payload := payloadFor(req)
	var errs []error
	for _, d := range devices {
		if err := p.transport.Send(ctx, d, payload); err != nil {
			errs = append(errs, fmt.Errorf("device %d/%s: %w", d.UserID, d.Platform, err))
			continue
		}
		metrics.PushesSent.Inc()
	}
	return errors.Join(errs...)
}

func payloadFor(req core.PushRequest) Payload {
	p := Payload{
		Body:      req.Text,
		MessageID: req.Message.MessageID,
		ChannelID: req.Message.ChannelID,
	}
	if p.Body == "" {
		p.Body = req.Message.Body
	}
	if req.Sender != nil {
		p.Title = req.Sender.Username
	}
	if req.Channel != nil && req.Channel.Server != nil {
		p.ServerID = req.Channel.Server.ServerID
		p.Title = req.Channel.Server.Name
	}
	return p
}

// LogTransport writes pushes to the log instead of a push gateway.
type LogTransport struct {
	Log *zerolog.Logger
}

func (t LogTransport) Send(_ context.Context, device *store.Device, payload Payload) error {
	t.Log.Info().
		Int64("user_id", device.UserID).
		Str("platform", device.Platform).
		Str("title", payload.Title).
		Str("channel_id", payload.ChannelID).
		Str("message_id", payload.MessageID).
		Msg("push sent")
	return nil
}

// NopPusher discards every push.
type NopPusher struct{}

func (NopPusher) Push(context.Context, core.PushRequest) error { return nil }

var (
	_ core.Pusher = (*PushSender)(nil)
	_ core.Pusher = NopPusher{}
)
