package stream

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingUserID is returned when a token is requested without a user id.
var ErrMissingUserID = errors.New("user id is required")

const (
	// tokenExpiry is how long a minted chat token stays valid.
	tokenExpiry = time.Hour

	// issuedAtBackdate shifts the issued-at claim into the past so the
	// backend accepts tokens despite clock skew.
	issuedAtBackdate = time.Minute
)

// Client talks to the hosted chat backend: it mints user tokens and
// authenticates the backend's webhook calls. Both operations are local
// signing/verification against the shared API secret.
type Client struct {
	apiKey string
	secret []byte
}

// NewClient creates a chat backend client for the given key/secret pair.
func NewClient(apiKey, apiSecret string) *Client {
	return &Client{
		apiKey: apiKey,
		secret: []byte(apiSecret),
	}
}

// CreateUserToken mints a short-lived HS256 chat token for the given user.
func (c *Client) CreateUserToken(userID string) (string, error) {
	if userID == "" {
		return "", ErrMissingUserID
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(tokenExpiry).Unix(),
		"iat":     now.Add(-issuedAtBackdate).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// VerifyWebhook reports whether the signature header matches the
// HMAC-SHA256 of the raw request body under the API secret. A missing or
// empty header never verifies.
func (c *Client) VerifyWebhook(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, c.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
