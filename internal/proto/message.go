package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	ProtocolVersion = 1

	InboundTypePing = "ping"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Event names sent to clients.
const (
	EventHello          = "hello"
	EventPong           = "pong"
	EventReceiveMessage = "receiveMessage"
	EventMemberAdd      = "server:member_add"
	EventServerJoined   = "server:joined"
	EventServerRoles    = "server:roles"
	EventServerMembers  = "server:members"
	EventChannelMute    = "channel:mute"
	EventChannelUnmute  = "channel:unmute"
)

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// HelloData tells the client which session it is. The id is echoed back as socketID on sends.
type HelloData struct {
	SocketID string `json:"socketID"`
	Protocol int    `json:"protocol"`
}

// User is the public projection of a user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Tag      string `json:"tag"`
	Avatar   string `json:"avatar,omitempty"`
	Admin    int    `json:"admin,omitempty"`
}

// Message is a created message as clients see it.
type Message struct {
	MessageID string `json:"messageID"`
	ChannelID string `json:"channelID"`
	Message   string `json:"message,omitempty"`
	Color     string `json:"color,omitempty"`
	Creator   User   `json:"creator"`
	Mentions  []User `json:"mentions"`
	Type      int    `json:"type"`
	Created   int64  `json:"created"`
}

// ReceiveMessage is the payload of the receiveMessage event.
type ReceiveMessage struct {
	Message Message `json:"message"`
	TempID  string  `json:"tempID,omitempty"`
}

// Role is one server role.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Permissions int64  `json:"permissions"`
	Order       int    `json:"order"`
	Default     bool   `json:"default"`
}

// Member is a server member with its live presence.
type Member struct {
	User         User     `json:"member"`
	Presence     int      `json:"presence"`
	CustomStatus string   `json:"customStatus,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// Channel is a channel as listed in server:joined.
type Channel struct {
	ChannelID string `json:"channelID"`
	Name      string `json:"name"`
	ServerID  string `json:"server_id,omitempty"`
}

// Server is the server object returned on create and join.
type Server struct {
	ServerID         string    `json:"server_id"`
	Name             string    `json:"name"`
	CreatorID        string    `json:"creator_id,omitempty"`
	DefaultChannelID string    `json:"default_channel_id"`
	Public           bool      `json:"public"`
	Channels         []Channel `json:"channels,omitempty"`
}

// MemberAdd announces a new member to a server room.
type MemberAdd struct {
	ServerID string `json:"server_id"`
	Member   Member `json:"serverMember"`
}

// ServerJoined confirms a join to the joining user's sessions.
type ServerJoined struct {
	Server   Server `json:"server"`
	SocketID string `json:"socketID,omitempty"`
}

// ServerRoles delivers the role list of a server.
type ServerRoles struct {
	ServerID string `json:"server_id"`
	Roles    []Role `json:"roles"`
}

// ServerMembers delivers the member list of a server.
type ServerMembers struct {
	ServerID string   `json:"server_id"`
	Members  []Member `json:"serverMembers"`
}

// ChannelMute tells a user's sessions that a channel was muted or unmuted.
type ChannelMute struct {
	ServerID  string `json:"server_id"`
	ChannelID string `json:"channelID"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
