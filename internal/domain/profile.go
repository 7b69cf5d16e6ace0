package domain

import (
	"context"
	"time"
)

// SubscriptionKeys are the client keys required for encrypted Web Push
// delivery to a single endpoint.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription is a browser push endpoint registered by one of a user's
// sessions. The endpoint is the unique key within a user's collection.
type PushSubscription struct {
	Endpoint  string           `json:"endpoint"`
	Keys      SubscriptionKeys `json:"keys"`
	SessionID string           `json:"sessionId,omitempty"`
	CreatedAt time.Time        `json:"createdAt,omitempty"`
}

// NotificationProfile is the per-user notification state held in the
// profile store: the channels the user muted and their push subscriptions.
type NotificationProfile struct {
	UserID        string
	MutedChannels []string
	Subscriptions []PushSubscription
}

// IsMuted reports whether the user muted the given channel.
func (p *NotificationProfile) IsMuted(channelID string) bool {
	for _, id := range p.MutedChannels {
		if id == channelID {
			return true
		}
	}
	return false
}

// ProfileStore is the narrow interface over the externally owned profile
// data. Updates are fetch-then-replace without optimistic concurrency:
// concurrent writers for the same user are last-writer-wins. Unknown users
// yield an empty profile rather than an error.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*NotificationProfile, error)
	GetProfiles(ctx context.Context, userIDs []string) ([]*NotificationProfile, error)
	PutSubscriptions(ctx context.Context, userID string, subs []PushSubscription) error
	SetChannelMuted(ctx context.Context, userID, channelID string, muted bool) error
	CleanupExpiredSubscriptions(ctx context.Context, olderThan time.Time) (int64, error)
}

// PushSender dispatches one payload to one subscription and reports the
// transport status code of the attempt.
type PushSender interface {
	Send(ctx context.Context, sub PushSubscription, payload []byte) (int, error)
}
