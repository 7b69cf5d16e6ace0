package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chatpush/relay/internal/domain"
	"github.com/chatpush/relay/internal/repository"
	"github.com/chatpush/relay/internal/stream"
	"github.com/chatpush/relay/pkg/response"
)

const testStreamSecret = "webhook-test-secret"

// countingStore wraps a ProfileStore and counts reads and writes, so tests
// can assert that rejected requests never reach the store.
type countingStore struct {
	inner  domain.ProfileStore
	mu     sync.Mutex
	reads  int
	writes int
}

func (s *countingStore) GetProfile(ctx context.Context, userID string) (*domain.NotificationProfile, error) {
	s.count(&s.reads)
	return s.inner.GetProfile(ctx, userID)
}

func (s *countingStore) GetProfiles(ctx context.Context, userIDs []string) ([]*domain.NotificationProfile, error) {
	s.count(&s.reads)
	return s.inner.GetProfiles(ctx, userIDs)
}

func (s *countingStore) PutSubscriptions(ctx context.Context, userID string, subs []domain.PushSubscription) error {
	s.count(&s.writes)
	return s.inner.PutSubscriptions(ctx, userID, subs)
}

func (s *countingStore) SetChannelMuted(ctx context.Context, userID, channelID string, muted bool) error {
	s.count(&s.writes)
	return s.inner.SetChannelMuted(ctx, userID, channelID, muted)
}

func (s *countingStore) CleanupExpiredSubscriptions(ctx context.Context, olderThan time.Time) (int64, error) {
	s.count(&s.writes)
	return s.inner.CleanupExpiredSubscriptions(ctx, olderThan)
}

func (s *countingStore) count(counter *int) {
	s.mu.Lock()
	*counter++
	s.mu.Unlock()
}

func (s *countingStore) counts() (reads, writes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.writes
}

// fakePushSender records dispatches and answers a configurable status per
// endpoint, 201 by default.
type fakePushSender struct {
	mu       sync.Mutex
	statuses map[string]int
	sent     []string
}

func newFakePushSender() *fakePushSender {
	return &fakePushSender{statuses: make(map[string]int)}
}

func (f *fakePushSender) Send(ctx context.Context, sub domain.PushSubscription, payload []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sub.Endpoint)
	if status, ok := f.statuses[sub.Endpoint]; ok {
		return status, nil
	}
	return 201, nil
}

func (f *fakePushSender) sentEndpoints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type testServer struct {
	router *chi.Mux
	store  *countingStore
	memory *repository.MemoryStore
	sender *fakePushSender
}

// setupTestServer wires the full router against an in-memory store and a
// fake push sender.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	memory := repository.NewMemoryStore()
	store := &countingStore{inner: memory}
	sender := newFakePushSender()
	logger := zap.NewNop()

	streamClient := stream.NewClient("test-key", testStreamSecret)
	resolver := domain.NewResolver(store)
	deliverer := domain.NewDeliverer(store, sender, logger)
	registrar := domain.NewRegistrar(store)

	router := NewRouter(
		NewWebhookHandler(streamClient, resolver, deliverer, logger),
		NewSubscriptionHandler(registrar, logger),
		NewTokenHandler(streamClient, logger),
		NewHealthHandler(),
		logger,
	)

	return &testServer{
		router: router.Setup(),
		store:  store,
		memory: memory,
		sender: sender,
	}
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testStreamSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func doRequest(t *testing.T, router http.Handler, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()

	var envelope response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("response is not valid JSON: %v (%s)", err, w.Body.String())
	}
	return envelope
}
