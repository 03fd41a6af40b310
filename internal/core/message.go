package core

import (
	"strings"
	"time"

	"github.com/vovakirdan/wirechat-dispatch/internal/store"
)

// UserSummary is the public projection of a user attached to messages and events.
type UserSummary struct {
	UniqueID string
	Username string
	Tag      string
	Avatar   string
	Admin    int
}

// SummaryOf projects a stored user to its public fields.
func SummaryOf(u *store.User) UserSummary {
	if u == nil {
		return UserSummary{}
	}
	return UserSummary{
		UniqueID: u.UniqueID,
		Username: u.Username,
		Tag:      u.Tag,
		Avatar:   u.Avatar,
		Admin:    u.Admin,
	}
}

// PublicMessage is the outbound shape of a created message.
// It is built once after persistence and shared by the response, every
// real-time emit and the notification layer; nothing mutates it afterwards.
type PublicMessage struct {
	MessageID string
	ChannelID string
	Body      string
	Color     string
	Creator   UserSummary
	Mentions  []UserSummary
	Kind      store.MessageKind
	CreatedAt time.Time
}

func newPublicMessage(msg *store.Message, creator *store.User, mentions []UserSummary) *PublicMessage {
	if mentions == nil {
		mentions = []UserSummary{}
	}
	return &PublicMessage{
		MessageID: msg.MessageID,
		ChannelID: msg.ChannelID,
		Body:      msg.Body,
		Color:     msg.Color,
		Creator:   SummaryOf(creator),
		Mentions:  mentions,
		Kind:      msg.Kind,
		CreatedAt: msg.CreatedAt,
	}
}

// NormalizeColor keeps a color only when it is "#" followed by six hex digits.
// Longer values are cut to seven characters first; anything else yields "".
func NormalizeColor(color string) string {
	if !strings.HasPrefix(color, "#") {
		return ""
	}
	if len(color) > 7 {
		color = color[:7]
	}
	if len(color) != 7 {
		return ""
	}
	for _, c := range color[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return ""
		}
	}
	return color
}
