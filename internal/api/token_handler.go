package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/chatpush/relay/internal/stream"
	"github.com/chatpush/relay/pkg/response"
)

// TokenHandler mints short-lived chat tokens for authenticated clients.
type TokenHandler struct {
	stream *stream.Client
	logger *zap.Logger
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(streamClient *stream.Client, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{
		stream: streamClient,
		logger: logger,
	}
}

// GetToken answers with a signed chat token for the userId query parameter.
func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		response.Unauthorized(w, "user not authenticated")
		return
	}

	h.logger.Debug("minting chat token", zap.String("user_id", userID))

	token, err := h.stream.CreateUserToken(userID)
	if err != nil {
		h.logger.Error("create user token", zap.String("user_id", userID), zap.Error(err))
		response.InternalError(w, "internal server error")
		return
	}

	response.OK(w, map[string]string{"token": token})
}
