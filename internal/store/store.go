package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when a record violates a storage constraint.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyMember is returned when a user joins a server twice.
	ErrAlreadyMember = errors.New("already a member")
)

// MaxMessageLength is the upper bound on a message body, counted in UTF-16 units.
const MaxMessageLength = 5000

// User represents a registered account.
type User struct {
	ID           int64
	UniqueID     string // public numeric identity used in mentions and rooms
	Username     string
	Tag          string
	Avatar       string
	Admin        int
	PasswordHash string
	CreatedAt    time.Time
}

// ChannelKind distinguishes direct channels from server channels.
type ChannelKind string

const (
	ChannelKindDirect ChannelKind = "direct"
	ChannelKindServer ChannelKind = "server"
)

// Channel is a message destination.
// Direct channels are stored once per participant; Recipients holds the
// participants as seen by the viewing user, so a notes channel has the viewer
// itself at index 0.
type Channel struct {
	ID           int64
	ChannelID    string
	Name         string
	Kind         ChannelKind
	Server       *Server // nil for direct channels
	Recipients   []*User // empty for server channels
	LastMessaged *time.Time
	CreatedAt    time.Time
}

// Server is a community with its own channels, roles and members.
type Server struct {
	ID               int64
	ServerID         string
	Name             string
	CreatorID        int64
	DefaultChannelID string
	Public           bool
	CreatedAt        time.Time
}

// ServerMember is a user's membership in a server.
type ServerMember struct {
	ServerID      int64
	Member        *User
	MutedChannels []string
	JoinedAt      time.Time
}

// Role is a named permission set in a server.
type Role struct {
	ID          string
	ServerID    int64
	Name        string
	Color       string
	Permissions int64
	Order       int
	Default     bool
	Deletable   bool
}

// MessageKind distinguishes ordinary messages from system events.
type MessageKind int

const (
	MessageKindOrdinary MessageKind = 0
	MessageKindJoin     MessageKind = 1
)

// Message represents a persisted chat message.
type Message struct {
	ID        int64
	MessageID string // server-assigned sequence identifier
	ChannelID string
	CreatorID int64
	Body      string
	Color     string // empty when unset
	Mentions  []int64
	Kind      MessageKind
	CreatedAt time.Time
}

// Notification is an unread counter for one recipient in one channel.
type Notification struct {
	RecipientID   int64
	ChannelID     string
	ServerID      *int64
	SenderID      int64
	LastMessageID string
	Count         int
	UpdatedAt     time.Time
}

// NotificationUpsert bumps unread counters for a set of recipients.
type NotificationUpsert struct {
	ChannelID     string
	ServerID      *int64
	SenderID      int64
	LastMessageID string
	RecipientIDs  []int64
}

// Device is a push notification target registered by a user.
type Device struct {
	UserID    int64
	Token     string
	Platform  string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user. UniqueID and Tag must be pre-generated.
	CreateUser(ctx context.Context, user *User) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUniqueID retrieves a user by its public identity.
	GetUserByUniqueID(ctx context.Context, uniqueID string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// FindUsersByUniqueIDs looks up many users in one query. Unknown ids are skipped.
	FindUsersByUniqueIDs(ctx context.Context, uniqueIDs []string) ([]*User, error)
}

// ChannelStore handles channel persistence.
type ChannelStore interface {
	// CreateDirectChannel opens (or returns the existing) direct channel from
	// owner to recipient. Passing the same id twice creates a notes channel.
	CreateDirectChannel(ctx context.Context, ownerID, recipientID int64) (*Channel, error)

	// CreateServerChannel adds a channel to a server.
	CreateServerChannel(ctx context.Context, serverID int64, name string) (*Channel, error)

	// GetChannel retrieves a channel as seen by viewerID.
	// Direct channels the viewer does not participate in are reported as ErrNotFound.
	GetChannel(ctx context.Context, channelID string, viewerID int64) (*Channel, error)

	// ListServerChannels lists all channels of a server.
	ListServerChannels(ctx context.Context, serverID int64) ([]*Channel, error)

	// TouchChannel updates the last-message timestamp of every copy of a channel.
	TouchChannel(ctx context.Context, channelID string, at time.Time) error
}

// ServerStore handles servers, memberships, invites and roles.
type ServerStore interface {
	// CreateServer creates a server with a default channel and default role,
	// and adds the creator as the first member.
	CreateServer(ctx context.Context, name string, creatorID int64, public bool) (*Server, error)

	// GetServerByServerID retrieves a server by its public id.
	GetServerByServerID(ctx context.Context, serverID string) (*Server, error)

	// GetServerByInvite resolves an invite code to its server.
	GetServerByInvite(ctx context.Context, inviteCode string) (*Server, error)

	// CreateInvite stores a new invite code for a server.
	CreateInvite(ctx context.Context, serverID, creatorID int64, inviteCode string) error

	// BanUser bans a user from a server.
	BanUser(ctx context.Context, serverID, userID int64) error

	// IsBanned reports whether a user is banned from a server.
	IsBanned(ctx context.Context, serverID, userID int64) (bool, error)

	// AddServerMember adds a member. Returns ErrAlreadyMember on duplicates.
	AddServerMember(ctx context.Context, serverID, userID int64) error

	// ListUserServers lists every server a user is a member of.
	ListUserServers(ctx context.Context, userID int64) ([]*Server, error)

	// IsServerMember checks membership.
	IsServerMember(ctx context.Context, serverID, userID int64) (bool, error)

	// ListServerMembers lists members with their user records and muted channels.
	ListServerMembers(ctx context.Context, serverID int64) ([]*ServerMember, error)

	// SetChannelMuted mutes or unmutes a server channel for a member.
	SetChannelMuted(ctx context.Context, serverID, userID int64, channelID string, muted bool) error

	// ListRoles lists roles of a server ordered by position.
	ListRoles(ctx context.Context, serverID int64) ([]*Role, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage validates and persists a message, assigning MessageID and CreatedAt.
	CreateMessage(ctx context.Context, msg *Message) error

	// ListMessages returns the newest messages of a channel, newest first.
	ListMessages(ctx context.Context, channelID string, limit int) ([]*Message, error)
}

// NotificationStore handles unread notification counters.
type NotificationStore interface {
	// UpsertNotifications increments counters for every recipient.
	UpsertNotifications(ctx context.Context, n NotificationUpsert) error

	// ListNotifications lists a user's unread counters.
	ListNotifications(ctx context.Context, recipientID int64) ([]*Notification, error)
}

// DeviceStore handles push device registration.
type DeviceStore interface {
	// AddDevice registers a push token for a user. Re-registering is a no-op.
	AddDevice(ctx context.Context, userID int64, token, platform string) error

	// ListDevices lists devices of the given users.
	ListDevices(ctx context.Context, userIDs []int64) ([]*Device, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ChannelStore
	ServerStore
	MessageStore
	NotificationStore
	DeviceStore

	// Close closes the underlying database connection.
	Close() error
}
