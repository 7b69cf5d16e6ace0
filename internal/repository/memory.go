package repository

import (
	"context"
	"sync"
	"time"

	"github.com/chatpush/relay/internal/domain"
)

// MemoryStore is an in-memory domain.ProfileStore. It backs the service
// when no database is configured and the unit tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*domain.NotificationProfile
}

// NewMemoryStore creates an empty in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*domain.NotificationProfile),
	}
}

// GetProfile retrieves one user's notification profile. Unknown users get
// an empty profile.
func (s *MemoryStore) GetProfile(ctx context.Context, userID string) (*domain.NotificationProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyProfile(userID), nil
}

// GetProfiles retrieves notification profiles for a batch of users.
func (s *MemoryStore) GetProfiles(ctx context.Context, userIDs []string) ([]*domain.NotificationProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]*domain.NotificationProfile, 0, len(userIDs))
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		profiles = append(profiles, s.copyProfile(id))
	}
	return profiles, nil
}

// PutSubscriptions replaces the user's subscription collection.
func (s *MemoryStore) PutSubscriptions(ctx context.Context, userID string, subs []domain.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.profiles[userID]
	if profile == nil {
		profile = &domain.NotificationProfile{UserID: userID}
		s.profiles[userID] = profile
	}
	profile.Subscriptions = append([]domain.PushSubscription(nil), subs...)
	return nil
}

// SetChannelMuted flips the mute flag for one (user, channel) pair.
func (s *MemoryStore) SetChannelMuted(ctx context.Context, userID, channelID string, muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.profiles[userID]
	if profile == nil {
		profile = &domain.NotificationProfile{UserID: userID}
		s.profiles[userID] = profile
	}

	kept := make([]string, 0, len(profile.MutedChannels))
	for _, id := range profile.MutedChannels {
		if id == channelID {
			continue
		}
		kept = append(kept, id)
	}
	if muted {
		kept = append(kept, channelID)
	}
	profile.MutedChannels = kept
	return nil
}

// CleanupExpiredSubscriptions drops subscriptions created before the cutoff.
func (s *MemoryStore) CleanupExpiredSubscriptions(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for _, profile := range s.profiles {
		kept := profile.Subscriptions[:0]
		for _, sub := range profile.Subscriptions {
			if !sub.CreatedAt.IsZero() && sub.CreatedAt.Before(olderThan) {
				removed++
				continue
			}
			kept = append(kept, sub)
		}
		profile.Subscriptions = kept
	}
	return removed, nil
}

// copyProfile returns a detached copy so callers never alias store state.
// Callers must hold at least the read lock.
func (s *MemoryStore) copyProfile(userID string) *domain.NotificationProfile {
	profile := s.profiles[userID]
	if profile == nil {
		return &domain.NotificationProfile{UserID: userID}
	}
	return &domain.NotificationProfile{
		UserID:        userID,
		MutedChannels: append([]string(nil), profile.MutedChannels...),
		Subscriptions: append([]domain.PushSubscription(nil), profile.Subscriptions...),
	}
}
