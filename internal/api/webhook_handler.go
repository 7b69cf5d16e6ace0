package api

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/chatpush/relay/internal/domain"
	"github.com/chatpush/relay/internal/stream"
	"github.com/chatpush/relay/pkg/response"
)

// signatureHeader carries the chat backend's HMAC over the raw body.
const signatureHeader = "X-Signature"

// WebhookHandler receives message events from the chat backend and triggers
// the notification fan-out.
type WebhookHandler struct {
	stream    *stream.Client
	resolver  *domain.Resolver
	deliverer *domain.Deliverer
	logger    *zap.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(streamClient *stream.Client, resolver *domain.Resolver, deliverer *domain.Deliverer, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		stream:    streamClient,
		resolver:  resolver,
		deliverer: deliverer,
		logger:    logger,
	}
}

// HandleEvent authenticates the webhook, resolves recipients and delivers
// push notifications. The response reflects authentication and parsing
// only; individual delivery failures never fail the request.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("read webhook body", zap.Error(err))
		response.InternalError(w, "internal server error")
		return
	}

	if !h.stream.VerifyWebhook(body, r.Header.Get(signatureHeader)) {
		response.Unauthorized(w, "webhook signature invalid")
		return
	}

	var event domain.ChannelEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.BadRequest(w, "invalid event payload")
		return
	}

	h.logger.Debug("push webhook received",
		zap.String("type", event.Type),
		zap.String("channel_id", event.Channel.ID),
		zap.String("sender_id", event.Sender.ID),
	)

	recipients, err := h.resolver.Resolve(r.Context(), &event)
	if err != nil {
		h.logger.Error("resolve recipients", zap.Error(err))
		response.InternalError(w, "internal server error")
		return
	}

	h.deliverer.Deliver(r.Context(), recipients, &event)

	response.OK(w, nil)
}
