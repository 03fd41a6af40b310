package core

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventHello tells a freshly connected session its own id.
	EventHello EventKind = iota
	// EventReceiveMessage delivers a created message.
	EventReceiveMessage
	// EventMemberAdd notifies a server room that a member joined.
	EventMemberAdd
	// EventServerJoined confirms a join to every session of the joining user.
	EventServerJoined
	// EventServerRoles delivers the role list of a server.
	EventServerRoles
	// EventServerMembers delivers the member list of a server.
	EventServerMembers
	// EventChannelMute tells a user's sessions a channel was muted.
	EventChannelMute
	// EventChannelUnmute tells a user's sessions a channel was unmuted.
	EventChannelUnmute
	// EventError notifies a session about a domain error.
	EventError
)

// Event is sent to sessions to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Session SessionID      // EventHello
	Message *PublicMessage // EventReceiveMessage
	TempID  string         // multi-device echo of EventReceiveMessage
	Payload any            // membership and mute events, already shaped for the wire
	Error   *CoreError
}
