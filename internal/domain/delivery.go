package domain

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// Deliverer fans a channel event out to every push subscription of every
// resolved recipient.
type Deliverer struct {
	store  ProfileStore
	sender PushSender
	logger *zap.Logger
}

// NewDeliverer creates a new delivery fan-out engine.
func NewDeliverer(store ProfileStore, sender PushSender, logger *zap.Logger) *Deliverer {
	return &Deliverer{
		store:  store,
		sender: sender,
		logger: logger,
	}
}

// dispatch is one (recipient, subscription) delivery task. The goroutine
// that owns it is the only writer of gone until the join completes.
type dispatch struct {
	userID string
	sub    PushSubscription
	gone   bool
}

// Deliver sends the event's notification payload to every subscription of
// every recipient. Dispatches run concurrently and independently; a failed
// dispatch never affects its siblings and never fails the overall request.
// Endpoints reported as permanently expired by the push service are removed
// from the owning recipient's profile after all dispatches have settled.
func (d *Deliverer) Deliver(ctx context.Context, recipients []string, event *ChannelEvent) {
	if len(recipients) == 0 {
		return
	}

	payload, err := json.Marshal(BuildPayload(event))
	if err != nil {
		d.logger.Error("marshal notification payload", zap.Error(err))
		return
	}

	var tasks []*dispatch
	subsByUser := make(map[string][]PushSubscription, len(recipients))
	for _, userID := range recipients {
		profile, err := d.store.GetProfile(ctx, userID)
		if err != nil {
			d.logger.Error("fetch subscriptions",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		subsByUser[userID] = profile.Subscriptions
		for _, sub := range profile.Subscriptions {
			tasks = append(tasks, &dispatch{userID: userID, sub: sub})
		}
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(t *dispatch) {
			defer wg.Done()
			status, err := d.sender.Send(ctx, t.sub, payload)
			if err != nil {
				d.logger.Error("push delivery failed",
					zap.String("user_id", t.userID),
					zap.Error(err),
				)
				return
			}
			if isSubscriptionGone(status) {
				d.logger.Info("push subscription expired, deleting",
					zap.String("user_id", t.userID),
					zap.Int("status", status),
				)
				t.gone = true
				return
			}
			if status >= http.StatusMultipleChoices {
				d.logger.Warn("unexpected push status",
					zap.String("user_id", t.userID),
					zap.Int("status", status),
				)
			}
		}(task)
	}
	wg.Wait()

	d.cleanupExpired(ctx, tasks, subsByUser)
}

// cleanupExpired drops endpoints that came back gone, with a single profile
// write per affected recipient.
func (d *Deliverer) cleanupExpired(ctx context.Context, tasks []*dispatch, subsByUser map[string][]PushSubscription) {
	goneByUser := make(map[string]map[string]bool)
	for _, t := range tasks {
		if !t.gone {
			continue
		}
		if goneByUser[t.userID] == nil {
			goneByUser[t.userID] = make(map[string]bool)
		}
		goneByUser[t.userID][t.sub.Endpoint] = true
	}

	for userID, gone := range goneByUser {
		subs := subsByUser[userID]
		kept := make([]PushSubscription, 0, len(subs))
		for _, sub := range subs {
			if gone[sub.Endpoint] {
				continue
			}
			kept = append(kept, sub)
		}
		if err := d.store.PutSubscriptions(ctx, userID, kept); err != nil {
			d.logger.Error("remove expired subscriptions",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}
}

// isSubscriptionGone reports whether a push service status marks the
// endpoint as permanently invalid. Push services answer 410 for expired
// registrations and some answer 404.
func isSubscriptionGone(status int) bool {
	return status == http.StatusGone || status == http.StatusNotFound
}
