package domain

import (
	"context"
	"fmt"
)

// Resolver computes the set of users to notify for a channel event.
type Resolver struct {
	store ProfileStore
}

// NewResolver creates a new recipient resolver.
func NewResolver(store ProfileStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the ids of all channel members except the sender, minus
// any user who has muted the event's channel. Output order is not
// significant. A member list that is empty or contains only the sender
// resolves to an empty set without error.
func (r *Resolver) Resolve(ctx context.Context, event *ChannelEvent) ([]string, error) {
	candidates := make([]string, 0, len(event.Channel.Members))
	for _, member := range event.Channel.Members {
		if member.UserID == "" || member.UserID == event.Sender.ID {
			continue
		}
		candidates = append(candidates, member.UserID)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	profiles, err := r.store.GetProfiles(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("fetch notification profiles: %w", err)
	}

	recipients := make([]string, 0, len(profiles))
	for _, profile := range profiles {
		if profile.IsMuted(event.Channel.ID) {
			continue
		}
		recipients = append(recipients, profile.UserID)
	}
	return recipients, nil
}
