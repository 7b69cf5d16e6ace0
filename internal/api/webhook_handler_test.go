package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/chatpush/relay/internal/domain"
)

func eventBody(t *testing.T, senderID, channelID string, memberIDs ...string) []byte {
	t.Helper()

	members := make([]domain.ChannelMember, 0, len(memberIDs))
	for _, id := range memberIDs {
		members = append(members, domain.ChannelMember{UserID: id})
	}
	body, err := json.Marshal(domain.ChannelEvent{
		Type:    "message.new",
		Sender:  domain.EventUser{ID: senderID, Name: "Alice", Image: "https://cdn.example.com/alice.png"},
		Channel: domain.EventChannel{ID: channelID, Members: members},
		Message: domain.EventMessage{Text: "hi there"},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return body
}

func registerSub(t *testing.T, ts *testServer, userID, endpoint string) {
	t.Helper()
	err := ts.memory.PutSubscriptions(context.Background(), userID, append(
		mustSubs(t, ts, userID),
		domain.PushSubscription{
			Endpoint:  endpoint,
			Keys:      domain.SubscriptionKeys{P256dh: "p", Auth: "a"},
			CreatedAt: time.Now(),
		},
	))
	if err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
}

func mustSubs(t *testing.T, ts *testServer, userID string) []domain.PushSubscription {
	t.Helper()
	profile, err := ts.memory.GetProfile(context.Background(), userID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	return profile.Subscriptions
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	ts := setupTestServer(t)
	body := eventBody(t, "alice", "general", "alice", "bob")

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"missing signature", nil},
		{"wrong signature", map[string]string{"X-Signature": "deadbeef"}},
		{"signature over other body", map[string]string{"X-Signature": signBody([]byte("other"))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, ts.router, http.MethodPost, "/webhook", body, tt.headers)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}

	// Rejected webhooks must never reach the resolver or the fan-out.
	reads, writes := ts.store.counts()
	if reads != 0 || writes != 0 {
		t.Fatalf("store touched by unauthenticated webhook: %d reads, %d writes", reads, writes)
	}
	if len(ts.sender.sentEndpoints()) != 0 {
		t.Fatal("push dispatched for unauthenticated webhook")
	}
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	ts := setupTestServer(t)
	body := []byte(`{not json`)

	w := doRequest(t, ts.router, http.MethodPost, "/webhook", body, map[string]string{"X-Signature": signBody(body)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestWebhookDeliversToRecipients(t *testing.T) {
	ts := setupTestServer(t)
	registerSub(t, ts, "bob", "bob-endpoint")
	registerSub(t, ts, "carol", "carol-endpoint")

	body := eventBody(t, "alice", "general", "alice", "bob", "carol")
	w := doRequest(t, ts.router, http.MethodPost, "/webhook", body, map[string]string{"X-Signature": signBody(body)})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if envelope := decodeEnvelope(t, w); !envelope.Success {
		t.Fatal("expected success envelope")
	}

	sent := ts.sender.sentEndpoints()
	if len(sent) != 2 {
		t.Fatalf("expected 2 dispatches, got %v", sent)
	}
	for _, endpoint := range sent {
		if endpoint == "alice-endpoint" {
			t.Fatal("sender must not be notified")
		}
	}
}

func TestWebhookSkipsMutedMember(t *testing.T) {
	ts := setupTestServer(t)
	registerSub(t, ts, "bob", "bob-endpoint")
	registerSub(t, ts, "carol", "carol-endpoint")
	if err := ts.memory.SetChannelMuted(context.Background(), "bob", "general", true); err != nil {
		t.Fatalf("mute: %v", err)
	}

	// Three members: the sender plus two others, one of whom muted the channel.
	body := eventBody(t, "alice", "general", "alice", "bob", "carol")
	w := doRequest(t, ts.router, http.MethodPost, "/webhook", body, map[string]string{"X-Signature": signBody(body)})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	sent := ts.sender.sentEndpoints()
	if len(sent) != 1 || sent[0] != "carol-endpoint" {
		t.Fatalf("expected delivery to carol only, got %v", sent)
	}
}

func TestWebhookPartialDeliveryFailureStillSucceeds(t *testing.T) {
	ts := setupTestServer(t)
	registerSub(t, ts, "bob", "dead-endpoint")
	registerSub(t, ts, "bob", "live-endpoint")
	ts.sender.statuses["dead-endpoint"] = http.StatusGone

	body := eventBody(t, "alice", "general", "alice", "bob")
	w := doRequest(t, ts.router, http.MethodPost, "/webhook", body, map[string]string{"X-Signature": signBody(body)})

	if w.Code != http.StatusOK {
		t.Fatalf("delivery outcomes must not affect the response, got %d", w.Code)
	}

	subs := mustSubs(t, ts, "bob")
	if len(subs) != 1 || subs[0].Endpoint != "live-endpoint" {
		t.Fatalf("expected expired endpoint removed, got %+v", subs)
	}
}

func TestWebhookNoRecipients(t *testing.T) {
	ts := setupTestServer(t)

	body := eventBody(t, "alice", "general", "alice")
	w := doRequest(t, ts.router, http.MethodPost, "/webhook", body, map[string]string{"X-Signature": signBody(body)})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for a sender-only channel, got %d", w.Code)
	}
	if len(ts.sender.sentEndpoints()) != 0 {
		t.Fatal("expected no dispatches")
	}
}
