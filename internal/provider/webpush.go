package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/sadhef/notify/internal/domain"
)

const (
	defaultPushTimeout = 10 * time.Second
	defaultPushTTL     = 60 * 60 * 24
	maxResponseBody    = 4 << 10
)

// WebPushProvider delivers payloads through the Web Push protocol using VAPID
// authentication. Payload encryption against the subscription's key material
// is handled by the webpush library.
type WebPushProvider struct {
	client     *http.Client
	subscriber string
	publicKey  string
	privateKey string
}

func NewWebPushProvider(subscriber string, publicKey string, privateKey string) (*WebPushProvider, error) {
	if strings.TrimSpace(publicKey) == "" || strings.TrimSpace(privateKey) == "" {
		return nil, fmt.Errorf("vapid key pair is required")
	}

	return &WebPushProvider{
		client:     &http.Client{Timeout: defaultPushTimeout},
		subscriber: strings.TrimSpace(subscriber),
		publicKey:  strings.TrimSpace(publicKey),
		privateKey: strings.TrimSpace(privateKey),
	}, nil
}

func (p *WebPushProvider) Send(ctx context.Context, subscription domain.Subscription, payload Payload) (*ProviderResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := subscription.Validate(); err != nil {
		return nil, fmt.Errorf("invalid subscription: %w", err)
	}

	message, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode push payload: %w", err)
	}

	target := &webpush.Subscription{
		Endpoint: subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: subscription.P256DH,
			Auth:   subscription.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, message, target, &webpush.Options{
		HTTPClient:      p.client,
		Subscriber:      p.subscriber,
		VAPIDPublicKey:  p.publicKey,
		VAPIDPrivateKey: p.privateKey,
		TTL:             defaultPushTTL,
	})
	if err != nil {
		return nil, &ProviderError{
			Message:   "push request failed",
			Permanent: false,
			Cause:     err,
		}
	}
	if resp == nil {
		return nil, &ProviderError{
			Message:   "push service returned empty response",
			Permanent: false,
		}
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	responseBody := strings.TrimSpace(string(bodyBytes))

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return &ProviderResponse{
			StatusCode: resp.StatusCode,
			Body:       responseBody,
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: resp.StatusCode,
		Message:    pushErrorMessage(resp.StatusCode, responseBody),
		Permanent:  isGoneStatus(resp.StatusCode),
	}
}

// isGoneStatus reports the push service status codes that mean the endpoint
// is unregistered and will never accept a delivery again.
func isGoneStatus(statusCode int) bool {
	return statusCode == http.StatusGone || statusCode == http.StatusNotFound
}

func pushErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("push service returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
