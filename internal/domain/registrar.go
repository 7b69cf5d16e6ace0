package domain

import (
	"context"
	"fmt"
	"time"
)

// Registrar handles client-initiated add/remove of push subscriptions and
// channel mute flags.
type Registrar struct {
	store ProfileStore
}

// NewRegistrar creates a new subscription registrar.
func NewRegistrar(store ProfileStore) *Registrar {
	return &Registrar{store: store}
}

// Register stores a push subscription for the user, tagged with the session
// that created it. Re-registering an endpoint replaces the existing entry,
// so a user's collection never holds two subscriptions for one endpoint.
func (r *Registrar) Register(ctx context.Context, userID, sessionID string, sub PushSubscription) error {
	if userID == "" || sessionID == "" {
		return ErrAuthenticationRequired
	}
	if sub.Endpoint == "" {
		return ErrMalformedRequest
	}

	profile, err := r.store.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetch notification profile: %w", err)
	}

	updated := make([]PushSubscription, 0, len(profile.Subscriptions)+1)
	for _, existing := range profile.Subscriptions {
		if existing.Endpoint == sub.Endpoint {
			continue
		}
		updated = append(updated, existing)
	}

	sub.SessionID = sessionID
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	updated = append(updated, sub)

	return r.store.PutSubscriptions(ctx, userID, updated)
}

// Unregister removes the subscription matching the given endpoint from the
// user's collection. Removing an unknown endpoint is a no-op success.
func (r *Registrar) Unregister(ctx context.Context, userID string, sub PushSubscription) error {
	if userID == "" {
		return ErrAuthenticationRequired
	}
	if sub.Endpoint == "" {
		return ErrMalformedRequest
	}

	profile, err := r.store.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetch notification profile: %w", err)
	}

	updated := make([]PushSubscription, 0, len(profile.Subscriptions))
	for _, existing := range profile.Subscriptions {
		if existing.Endpoint == sub.Endpoint {
			continue
		}
		updated = append(updated, existing)
	}

	return r.store.PutSubscriptions(ctx, userID, updated)
}

// SetChannelMuted flips the user's mute flag for a channel. Muted channels
// are skipped by recipient resolution.
func (r *Registrar) SetChannelMuted(ctx context.Context, userID, channelID string, muted bool) error {
	if userID == "" {
		return ErrAuthenticationRequired
	}
	if channelID == "" {
		return ErrMalformedRequest
	}
	return r.store.SetChannelMuted(ctx, userID, channelID, muted)
}
