package push

import (
	"context"
	"io"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/chatpush/relay/internal/domain"
)

// Client sends Web Push messages signed with the service VAPID key pair.
// It implements domain.PushSender.
type Client struct {
	subscriber string
	publicKey  string
	privateKey string
	ttl        int
}

// NewClient creates a Web Push client. subscriber is the contact address
// advertised to push services (webpush-go prepends mailto: itself).
func NewClient(subscriber, vapidPublicKey, vapidPrivateKey string) *Client {
	return &Client{
		subscriber: subscriber,
		publicKey:  vapidPublicKey,
		privateKey: vapidPrivateKey,
		ttl:        60 * 60 * 24,
	}
}

// Send delivers one encrypted payload to one subscription endpoint and
// returns the push service's status code. Timeouts and retries are left to
// the underlying HTTP transport; one call is one attempt.
func (c *Client) Send(ctx context.Context, sub domain.PushSubscription, payload []byte) (int, error) {
	s := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, s, &webpush.Options{
		Subscriber:      c.subscriber,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
		TTL:             c.ttl,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
