package servers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-dispatch/internal/core"
	"github.com/vovakirdan/wirechat-dispatch/internal/presence"
	"github.com/vovakirdan/wirechat-dispatch/internal/proto"
	"github.com/vovakirdan/wirechat-dispatch/internal/store"
)

// Common errors for server operations.
var (
	ErrServerNotFound  = errors.New("invalid server")
	ErrNotPublic       = errors.New("server is not public")
	ErrAlreadyJoined   = errors.New("already joined")
	ErrNotMember       = errors.New("not a member of this server")
	ErrChannelNotFound = errors.New("channel not found")
	ErrInvalidName     = errors.New("server name must be 1-30 characters")
)

const maxServerName = 30

// Joined is what a caller gets back after creating or joining a server.
type Joined struct {
	Server   *store.Server
	Creator  *store.User
	Channels []*store.Channel
}

// Service provides server membership logic.
type Service struct {
	store      store.Store
	registry   core.Registry
	presence   presence.Store
	dispatcher *core.Dispatcher
	log        *zerolog.Logger
}

// New creates a new server Service.
func New(st store.Store, registry core.Registry, presences presence.Store, dispatcher *core.Dispatcher, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:      st,
		registry:   registry,
		presence:   presences,
		dispatcher: dispatcher,
		log:        logger,
	}
}

// Create makes a new server owned by user and subscribes the user's sessions to it.
func (s *Service) Create(ctx context.Context, user *store.User, name string, public bool) (*Joined, error) {
	name = strings.TrimSpace(name)
	if name == "" || store.TextLength(name) > maxServerName {
		return nil, ErrInvalidName
	}

	server, err := s.store.CreateServer(ctx, name, user.ID, public)
	if err != nil {
		return nil, fmt.Errorf("create server: %w", err)
	}
	joined, err := s.load(ctx, server)
	if err != nil {
		return nil, err
	}

	s.subscribe(user, server)
	s.emitToUser(user.UniqueID, core.EventServerJoined, proto.ServerJoined{Server: WireServer(joined)})
	return joined, nil
}

// CreateInvite issues a new invite code. Only members may invite.
func (s *Service) CreateInvite(ctx context.Context, user *store.User, serverID string) (string, error) {
	server, err := s.memberServer(ctx, user, serverID)
	if err != nil {
		return "", err
	}

	code := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	if err := s.store.CreateInvite(ctx, server.ID, user.ID, code); err != nil {
		return "", fmt.Errorf("create invite: %w", err)
	}
	return code, nil
}

// JoinByInvite adds user to the server behind an invite code.
// respond is called once membership is durable and before anyone is told about it.
func (s *Service) JoinByInvite(ctx context.Context, user *store.User, code, socketID string, respond func(*Joined)) error {
	server, err := s.store.GetServerByInvite(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return ErrServerNotFound
	}
	if err != nil {
		return fmt.Errorf("resolve invite: %w", err)
	}
	return s.join(ctx, user, server, socketID, respond)
}

// JoinPublic adds user to a server listed as public.
func (s *Service) JoinPublic(ctx context.Context, user *store.User, serverID, socketID string, respond func(*Joined)) error {
	server, err := s.store.GetServerByServerID(ctx, serverID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrServerNotFound
	}
	if err != nil {
		return fmt.Errorf("get server: %w", err)
	}
	if !server.Public {
		banned, err := s.store.IsBanned(ctx, server.ID, user.ID)
		if err != nil {
			return fmt.Errorf("check ban: %w", err)
		}
		if banned {
			return ErrServerNotFound
		}
		return ErrNotPublic
	}
	return s.join(ctx, user, server, socketID, respond)
}

func (s *Service) join(ctx context.Context, user *store.User, server *store.Server, socketID string, respond func(*Joined)) error {
	banned, err := s.store.IsBanned(ctx, server.ID, user.ID)
	if err != nil {
		return fmt.Errorf("check ban: %w", err)
	}
	if banned {
		return ErrServerNotFound
	}

	if err := s.store.AddServerMember(ctx, server.ID, user.ID); err != nil {
		if errors.Is(err, store.ErrAlreadyMember) {
			return ErrAlreadyJoined
		}
		return fmt.Errorf("add member: %w", err)
	}

	joined, err := s.load(ctx, server)
	if err != nil {
		return err
	}
	if respond != nil {
		respond(joined)
	}

	// Membership is committed; announce it even if the caller disconnects.
	ctx = context.WithoutCancel(ctx)
	room := core.ServerRoom(server.ServerID)

	member := s.wireMember(ctx, user)
	for _, id := range s.registry.SessionsOfRoom(room) {
		s.registry.Emit(id, &core.Event{
			Kind:    core.EventMemberAdd,
			Payload: proto.MemberAdd{ServerID: server.ServerID, Member: member},
		})
	}

	s.emitToUser(user.UniqueID, core.EventServerJoined, proto.ServerJoined{
		Server:   WireServer(joined),
		SocketID: socketID,
	})
	s.subscribe(user, server)

	if channel := joined.defaultChannel(); channel != nil {
		if _, err := s.dispatcher.SendJoin(ctx, channel, user); err != nil {
			s.log.Warn().Err(err).Str("server_id", server.ServerID).Msg("failed to send join message")
		}
	}

	if err := s.sendRoles(ctx, user, server); err != nil {
		s.log.Warn().Err(err).Str("server_id", server.ServerID).Msg("failed to send roles")
	}
	if err := s.sendMembers(ctx, user, server); err != nil {
		s.log.Warn().Err(err).Str("server_id", server.ServerID).Msg("failed to send members")
	}

	s.log.Info().Str("user_id", user.UniqueID).Str("server_id", server.ServerID).Msg("user joined server")
	return nil
}

// SetMuted mutes or unmutes a channel of a server for user and tells the user's sessions.
func (s *Service) SetMuted(ctx context.Context, user *store.User, serverID, channelID string, muted bool) error {
	server, err := s.memberServer(ctx, user, serverID)
	if err != nil {
		return err
	}

	channel, err := s.store.GetChannel(ctx, channelID, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrChannelNotFound
	}
	if err != nil {
		return fmt.Errorf("get channel: %w", err)
	}
	if channel.Server == nil || channel.Server.ID != server.ID {
		return ErrChannelNotFound
	}

	if err := s.store.SetChannelMuted(ctx, server.ID, user.ID, channelID, muted); err != nil {
		return fmt.Errorf("set muted: %w", err)
	}

	kind := core.EventChannelUnmute
	if muted {
		kind = core.EventChannelMute
	}
	s.emitToUser(user.UniqueID, kind, proto.ChannelMute{ServerID: server.ServerID, ChannelID: channelID})
	return nil
}

func (s *Service) memberServer(ctx context.Context, user *store.User, serverID string) (*store.Server, error) {
	server, err := s.store.GetServerByServerID(ctx, serverID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrServerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get server: %w", err)
	}
	member, err := s.store.IsServerMember(ctx, server.ID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return nil, ErrNotMember
	}
	return server, nil
}

func (s *Service) load(ctx context.Context, server *store.Server) (*Joined, error) {
	channels, err := s.store.ListServerChannels(ctx, server.ID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	creator, err := s.store.GetUserByID(ctx, server.CreatorID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get creator: %w", err)
	}
	return &Joined{Server: server, Creator: creator, Channels: channels}, nil
}

// subscribe joins every live session of user to the server room.
func (s *Service) subscribe(user *store.User, server *store.Server) {
	room := core.ServerRoom(server.ServerID)
	for _, id := range s.registry.SessionsOf(user.UniqueID) {
		s.registry.JoinRoom(id, room)
	}
}

func (s *Service) emitToUser(userID string, kind core.EventKind, payload any) {
	event := &core.Event{Kind: kind, Payload: payload}
	for _, id := range s.registry.SessionsOf(userID) {
		s.registry.Emit(id, event)
	}
}

func (s *Service) sendRoles(ctx context.Context, user *store.User, server *store.Server) error {
	roles, err := s.store.ListRoles(ctx, server.ID)
	if err != nil {
		return err
	}
	out := make([]proto.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, proto.Role{
			ID:          r.ID,
			Name:        r.Name,
			Color:       r.Color,
			Permissions: r.Permissions,
			Order:       r.Order,
			Default:     r.Default,
		})
	}
	s.emitToUser(user.UniqueID, core.EventServerRoles, proto.ServerRoles{ServerID: server.ServerID, Roles: out})
	return nil
}

func (s *Service) sendMembers(ctx context.Context, user *store.User, server *store.Server) error {
	members, err := s.store.ListServerMembers(ctx, server.ID)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.Member.UniqueID)
	}
	presences, statuses := s.lookupPresence(ctx, ids)

	out := make([]proto.Member, 0, len(members))
	for _, m := range members {
		out = append(out, proto.Member{
			User:         WireUser(m.Member),
			Presence:     int(presences[m.Member.UniqueID]),
			CustomStatus: statuses[m.Member.UniqueID],
		})
	}
	s.emitToUser(user.UniqueID, core.EventServerMembers, proto.ServerMembers{ServerID: server.ServerID, Members: out})
	return nil
}

func (s *Service) wireMember(ctx context.Context, user *store.User) proto.Member {
	presences, statuses := s.lookupPresence(ctx, []string{user.UniqueID})
	return proto.Member{
		User:         WireUser(user),
		Presence:     int(presences[user.UniqueID]),
		CustomStatus: statuses[user.UniqueID],
	}
}

// lookupPresence tolerates a failing presence store: members are still listed, as offline.
func (s *Service) lookupPresence(ctx context.Context, ids []string) (map[string]presence.Status, map[string]string) {
	presences, err := s.presence.Presences(ctx, ids)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read presences")
		presences = map[string]presence.Status{}
	}
	statuses, err := s.presence.CustomStatuses(ctx, ids)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read custom statuses")
		statuses = map[string]string{}
	}
	return presences, statuses
}

func (j *Joined) defaultChannel() *store.Channel {
	for _, c := range j.Channels {
		if c.ChannelID == j.Server.DefaultChannelID {
			return c
		}
	}
	return nil
}
