package core

import (
	"context"
	"fmt"
	"regexp"

	"github.com/vovakirdan/wirechat-dispatch/internal/store"
)

var mentionPattern = regexp.MustCompile(`<@(\d+)>`)

// UserLookup is the subset of the user store the resolver needs.
type UserLookup interface {
	FindUsersByUniqueIDs(ctx context.Context, uniqueIDs []string) ([]*store.User, error)
}

// MentionResolver turns mention tokens in a message body into user summaries.
type MentionResolver struct {
	users UserLookup
}

// NewMentionResolver creates a resolver backed by users.
func NewMentionResolver(users UserLookup) *MentionResolver {
	return &MentionResolver{users: users}
}

// MentionIDs extracts the distinct identities referenced by text, in order of first appearance.
func MentionIDs(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		id := m[1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Resolve looks up every mentioned identity with a single query.
// Unknown identities are dropped. The returned users carry internal ids so the
// caller can persist them; the summaries are what clients see.
func (r *MentionResolver) Resolve(ctx context.Context, text string) ([]*store.User, []UserSummary, error) {
	ids := MentionIDs(text)
	if len(ids) == 0 {
		return nil, nil, nil
	}

	users, err := r.users.FindUsersByUniqueIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve mentions: %w", err)
	}

	seen := make(map[int64]struct{}, len(users))
	found := make([]*store.User, 0, len(users))
	summaries := make([]UserSummary, 0, len(users))
	for _, u := range users {
		if _, ok := seen[u.ID]; ok {
			continue
		}
		seen[u.ID] = struct{}{}
		found = append(found, u)
		summaries = append(summaries, SummaryOf(u))
	}
	return found, summaries, nil
}
