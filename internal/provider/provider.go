package provider

import (
	"context"

	"github.com/sadhef/notify/internal/domain"
)

// PushProvider is the outbound push delivery port. Implementations make
// exactly one delivery attempt per call; retrying is the caller's concern.
type PushProvider interface {
	Send(ctx context.Context, subscription domain.Subscription, payload Payload) (*ProviderResponse, error)
}

// Payload is the notification body handed to the provider. The browser
// service worker expects the JSON shape {title, body, icon, url}.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	URL   string `json:"url,omitempty"`
}

// ProviderResponse stores provider call metadata for audit and persistence.
type ProviderResponse struct {
	StatusCode int
	Body       string
}
