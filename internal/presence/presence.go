// Package presence tracks which users are online and their custom status line.
package presence

import "context"

// Status is a user's presence as shown to other members.
type Status int

const (
	Offline Status = iota
	Online
	Away
	Busy
)

// Store keeps presence and custom status per user unique id.
// Unknown users report Offline and an empty status.
type Store interface {
	SetPresence(ctx context.Context, userID string, status Status) error
	ClearPresence(ctx context.Context, userID string) error
	Presences(ctx context.Context, userIDs []string) (map[string]Status, error)
	SetCustomStatus(ctx context.Context, userID, text string) error
	CustomStatuses(ctx context.Context, userIDs []string) (map[string]string, error)
	Close() error
}
