package domain

import (
	"context"
	"sync"
	"time"
)

// fakeStore is an in-test ProfileStore that records mutations.
type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]*NotificationProfile
	getErr   error
	putCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[string]*NotificationProfile)}
}

func (s *fakeStore) seed(profile *NotificationProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
}

func (s *fakeStore) GetProfile(ctx context.Context, userID string) (*NotificationProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	if p, ok := s.profiles[userID]; ok {
		return p, nil
	}
	return &NotificationProfile{UserID: userID}, nil
}

func (s *fakeStore) GetProfiles(ctx context.Context, userIDs []string) ([]*NotificationProfile, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	profiles := make([]*NotificationProfile, 0, len(userIDs))
	for _, id := range userIDs {
		p, _ := s.GetProfile(ctx, id)
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (s *fakeStore) PutSubscriptions(ctx context.Context, userID string, subs []PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	profile, ok := s.profiles[userID]
	if !ok {
		profile = &NotificationProfile{UserID: userID}
		s.profiles[userID] = profile
	}
	profile.Subscriptions = subs
	return nil
}

func (s *fakeStore) SetChannelMuted(ctx context.Context, userID, channelID string, muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		profile = &NotificationProfile{UserID: userID}
		s.profiles[userID] = profile
	}
	kept := make([]string, 0, len(profile.MutedChannels))
	for _, id := range profile.MutedChannels {
		if id != channelID {
			kept = append(kept, id)
		}
	}
	if muted {
		kept = append(kept, channelID)
	}
	profile.MutedChannels = kept
	return nil
}

func (s *fakeStore) CleanupExpiredSubscriptions(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

func (s *fakeStore) subscriptions(userID string) []PushSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[userID]; ok {
		return p.Subscriptions
	}
	return nil
}

// fakeSender records dispatched endpoints and answers with a configurable
// status per endpoint (201 by default).
type fakeSender struct {
	mu       sync.Mutex
	statuses map[string]int
	errs     map[string]error
	sent     []string
	payloads [][]byte
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		statuses: make(map[string]int),
		errs:     make(map[string]error),
	}
}

func (f *fakeSender) Send(ctx context.Context, sub PushSubscription, payload []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sub.Endpoint)
	f.payloads = append(f.payloads, payload)
	if err := f.errs[sub.Endpoint]; err != nil {
		return 0, err
	}
	if status, ok := f.statuses[sub.Endpoint]; ok {
		return status, nil
	}
	return 201, nil
}

func (f *fakeSender) sentEndpoints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}
