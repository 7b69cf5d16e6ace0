package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chatpush/relay/internal/domain"
	"github.com/chatpush/relay/pkg/response"
)

// SubscriptionHandler handles push subscription registration and channel
// mute flags.
type SubscriptionHandler struct {
	registrar *domain.Registrar
	logger    *zap.Logger
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(registrar *domain.Registrar, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		registrar: registrar,
		logger:    logger,
	}
}

type subscriptionRequest struct {
	UserID    string                  `json:"userId"`
	SessionID string                  `json:"sessionId"`
	Endpoint  string                  `json:"endpoint"`
	Keys      domain.SubscriptionKeys `json:"keys"`
}

func (req *subscriptionRequest) subscription() domain.PushSubscription {
	return domain.PushSubscription{
		Endpoint: req.Endpoint,
		Keys:     req.Keys,
	}
}

// Register stores a push subscription for the calling user's session.
func (h *SubscriptionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "missing push subscription in body")
		return
	}

	err := h.registrar.Register(r.Context(), req.UserID, req.SessionID, req.subscription())
	if err != nil {
		h.writeRegistrarError(w, err, "failed to save subscription")
		return
	}

	response.OK(w, map[string]string{"message": "push subscription saved"})
}

// Unregister removes the subscription matching the endpoint in the body.
func (h *SubscriptionHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "missing push subscription in body")
		return
	}

	err := h.registrar.Unregister(r.Context(), req.UserID, req.subscription())
	if err != nil {
		h.writeRegistrarError(w, err, "failed to delete subscription")
		return
	}

	response.OK(w, map[string]string{"message": "push subscription deleted"})
}

type muteRequest struct {
	UserID string `json:"userId"`
}

// Mute marks the channel as muted for the user in the body.
func (h *SubscriptionHandler) Mute(w http.ResponseWriter, r *http.Request) {
	h.setMuted(w, r, true)
}

// Unmute clears the channel's mute flag for the user in the body.
func (h *SubscriptionHandler) Unmute(w http.ResponseWriter, r *http.Request) {
	h.setMuted(w, r, false)
}

func (h *SubscriptionHandler) setMuted(w http.ResponseWriter, r *http.Request, muted bool) {
	var req muteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "missing user in body")
		return
	}

	channelID := chi.URLParam(r, "channelID")
	err := h.registrar.SetChannelMuted(r.Context(), req.UserID, channelID, muted)
	if err != nil {
		h.writeRegistrarError(w, err, "failed to update channel mute")
		return
	}

	response.OK(w, map[string]bool{"muted": muted})
}

func (h *SubscriptionHandler) writeRegistrarError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrAuthenticationRequired):
		response.Unauthorized(w, "user not authenticated")
	case errors.Is(err, domain.ErrMalformedRequest):
		response.BadRequest(w, "missing push subscription in body")
	default:
		h.logger.Error(fallback, zap.Error(err))
		response.InternalError(w, fallback)
	}
}
