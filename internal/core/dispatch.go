package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat-dispatch/internal/metrics"
	"github.com/vovakirdan/wirechat-dispatch/internal/store"
)

// SendRequest is one authored message.
type SendRequest struct {
	Channel   *store.Channel
	Sender    *store.User
	Body      string
	TempID    string    // client-local id echoed back for reconciliation
	SessionID SessionID // originating session; never receives its own echo
	Color     string
}

// Sent is the canonical record returned to the sender.
type Sent struct {
	TempID  string
	Message *PublicMessage
}

// Delivery tracks the background phase of one dispatched message.
// Its result is for observability only; the sender already has its response.
type Delivery struct {
	Sent *Sent

	done chan struct{}
	err  error
}

// Done is closed once every background step has finished.
func (d *Delivery) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the background phase ends and returns its joined errors.
func (d *Delivery) Wait() error {
	<-d.done
	return d.err
}

// Dispatcher persists messages and fans them out to live sessions,
// in-app notifications and push.
type Dispatcher struct {
	store    MessageStore
	mentions *MentionResolver
	registry Registry
	notifier Notifier
	pusher   Pusher
	log      *zerolog.Logger

	inflight sync.WaitGroup
}

// NewDispatcher wires the dispatcher to its collaborators.
func NewDispatcher(st MessageStore, mentions *MentionResolver, registry Registry, notifier Notifier, pusher Pusher, logger *zerolog.Logger) *Dispatcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{
		store:    st,
		mentions: mentions,
		registry: registry,
		notifier: notifier,
		pusher:   pusher,
		log:      logger,
	}
}

// Send validates, resolves mentions and persists a message, then calls respond
// with the created record before any fan-out begins. Fan-out, notification and
// push run in the background and cannot fail the send.
//
// A blank body returns ErrEmptyMessage without side effects; an oversized body
// returns a *CoreError with code ErrCodeMessageTooLong.
func (d *Dispatcher) Send(ctx context.Context, req SendRequest, respond func(*Sent)) (*Delivery, error) {
	if strings.TrimSpace(req.Body) == "" {
		return nil, ErrEmptyMessage
	}
	if store.TextLength(req.Body) > store.MaxMessageLength {
		return nil, errMessageTooLong
	}
	if req.Channel == nil || req.Sender == nil {
		return nil, ErrBadRequest
	}
	if req.Channel.Kind == store.ChannelKindDirect && len(req.Channel.Recipients) == 0 {
		return nil, fmt.Errorf("direct channel %s has no recipients: %w", req.Channel.ChannelID, ErrBadRequest)
	}
	if req.Channel.Kind == store.ChannelKindServer && req.Channel.Server == nil {
		return nil, fmt.Errorf("server channel %s has no server: %w", req.Channel.ChannelID, ErrBadRequest)
	}

	mentioned, summaries, err := d.mentions.Resolve(ctx, req.Body)
	if err != nil {
		return nil, err
	}

	msg := &store.Message{
		ChannelID: req.Channel.ChannelID,
		CreatorID: req.Sender.ID,
		Body:      req.Body,
		Color:     NormalizeColor(req.Color),
		Kind:      store.MessageKindOrdinary,
	}
	for _, u := range mentioned {
		msg.Mentions = append(msg.Mentions, u.ID)
	}

	if err := d.store.CreateMessage(ctx, msg); err != nil {
		if errors.Is(err, store.ErrValidation) {
			return nil, coreError(ErrCodeBadRequest, err.Error())
		}
		return nil, fmt.Errorf("persist message: %w", err)
	}

	sent := &Sent{TempID: req.TempID, Message: newPublicMessage(msg, req.Sender, summaries)}
	metrics.MessagesSent.WithLabelValues(route(req.Channel, req.Sender)).Inc()

	if respond != nil {
		respond(sent)
	}

	return d.background(ctx, sent, func(ctx context.Context) error {
		if req.Channel.Kind == store.ChannelKindServer {
			return d.fanoutServer(ctx, req.Channel, req.Sender, sent, req.SessionID, "")
		}
		return d.fanoutDirect(ctx, req, sent)
	}), nil
}

// SendJoin persists the system message announcing that user joined the
// server owning channel and broadcasts it to every session of the server room.
func (d *Dispatcher) SendJoin(ctx context.Context, channel *store.Channel, user *store.User) (*Delivery, error) {
	if channel == nil || channel.Kind != store.ChannelKindServer || channel.Server == nil {
		return nil, ErrNotServerChannel
	}
	if user == nil {
		return nil, ErrBadRequest
	}

	msg := &store.Message{
		ChannelID: channel.ChannelID,
		CreatorID: user.ID,
		Kind:      store.MessageKindJoin,
	}
	if err := d.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist join message: %w", err)
	}

	sent := &Sent{Message: newPublicMessage(msg, user, nil)}
	metrics.MessagesSent.WithLabelValues("join").Inc()

	return d.background(ctx, sent, func(ctx context.Context) error {
		return d.fanoutServer(ctx, channel, user, sent, "", user.Username+" joined the server")
	}), nil
}

// Wait blocks until every background phase started so far has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) background(ctx context.Context, sent *Sent, work func(context.Context) error) *Delivery {
	delivery := &Delivery{Sent: sent, done: make(chan struct{})}
	// The response is already committed: a client disconnect must not abort fan-out.
	bg := context.WithoutCancel(ctx)

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		defer close(delivery.done)
		defer func() {
			if r := recover(); r != nil {
				delivery.err = fmt.Errorf("fan-out panic: %v", r)
				d.log.Error().Interface("panic", r).Str("message_id", sent.Message.MessageID).Msg("fan-out panicked")
			}
		}()

		start := time.Now()
		delivery.err = work(bg)
		metrics.FanoutDuration.Observe(time.Since(start).Seconds())

		if delivery.err != nil {
			d.log.Warn().Err(delivery.err).
				Str("message_id", sent.Message.MessageID).
				Str("channel_id", sent.Message.ChannelID).
				Msg("fan-out finished with errors")
		}
	}()

	return delivery
}

func (d *Dispatcher) fanoutServer(ctx context.Context, channel *store.Channel, sender *store.User, sent *Sent, origin SessionID, pushText string) error {
	event := &Event{Kind: EventReceiveMessage, Message: sent.Message}
	for _, id := range d.registry.SessionsOfRoom(ServerRoom(channel.Server.ServerID)) {
		if id == origin {
			continue
		}
		d.registry.Emit(id, event)
	}

	notified, err := d.notifier.Notify(ctx, NotifyRequest{
		Message:   sent.Message,
		ChannelID: channel.ChannelID,
		ServerID:  channel.Server.ID,
		Sender:    sender,
	})
	if err != nil {
		metrics.FanoutErrors.WithLabelValues("notify").Inc()
		return fmt.Errorf("notify server members: %w", err)
	}

	return d.push(ctx, PushRequest{
		Message:    sent.Message,
		Channel:    channel,
		Sender:     sender,
		Recipients: notified,
		Text:       pushText,
	})
}

func (d *Dispatcher) fanoutDirect(ctx context.Context, req SendRequest, sent *Sent) error {
	recipient := req.Channel.Recipients[0]
	notes := recipient.UniqueID == req.Sender.UniqueID

	if !notes {
		event := &Event{Kind: EventReceiveMessage, Message: sent.Message}
		for _, id := range d.registry.SessionsOf(recipient.UniqueID) {
			d.registry.Emit(id, event)
		}
	}

	echo := &Event{Kind: EventReceiveMessage, Message: sent.Message, TempID: sent.TempID}
	for _, id := range d.registry.SessionsOf(req.Sender.UniqueID) {
		if id == req.SessionID {
			continue
		}
		d.registry.Emit(id, echo)
	}

	if notes {
		return nil
	}

	// Touch and notify run to completion independently. Each error is kept
	// per step for its own metric label, so g.Wait only joins.
	var (
		g         errgroup.Group
		touchErr  error
		notifyErr error
		notified  []string
	)
	g.Go(func() error {
		touchErr = d.store.TouchChannel(ctx, req.Channel.ChannelID, sent.Message.CreatedAt)
		return nil
	})
	g.Go(func() error {
		notified, notifyErr = d.notifier.Notify(ctx, NotifyRequest{
			Message:     sent.Message,
			ChannelID:   req.Channel.ChannelID,
			RecipientID: recipient.UniqueID,
			Sender:      req.Sender,
		})
		return nil
	})
	_ = g.Wait()

	var errs []error
	if touchErr != nil {
		metrics.FanoutErrors.WithLabelValues("touch").Inc()
		errs = append(errs, fmt.Errorf("touch channel: %w", touchErr))
	}
	if notifyErr != nil {
		metrics.FanoutErrors.WithLabelValues("notify").Inc()
		errs = append(errs, fmt.Errorf("notify recipient: %w", notifyErr))
	} else if err := d.push(ctx, PushRequest{
		Message:    sent.Message,
		Channel:    req.Channel,
		Sender:     req.Sender,
		Recipients: notified,
	}); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) push(ctx context.Context, req PushRequest) error {
	if len(req.Recipients) == 0 {
		return nil
	}
	if err := d.pusher.Push(ctx, req); err != nil {
		metrics.FanoutErrors.WithLabelValues("push").Inc()
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

func route(channel *store.Channel, sender *store.User) string {
	if channel.Kind == store.ChannelKindServer {
		return "server"
	}
	if channel.Recipients[0].UniqueID == sender.UniqueID {
		return "notes"
	}
	return "direct"
}
