package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sadhef/notify/internal/domain"
)

const defaultWebhookTimeout = 10 * time.Second

type webhookRequest struct {
	Endpoint string `json:"endpoint"`
	Account  string `json:"account"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Icon     string `json:"icon,omitempty"`
	URL      string `json:"url,omitempty"`
}

// WebhookProvider posts the plain payload to the subscription endpoint
// without Web Push encryption. It exists for dev and test environments where
// endpoints are plain HTTP sinks rather than browser push services.
type WebhookProvider struct {
	client *resty.Client
}

func NewWebhookProvider() *WebhookProvider {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return NewWebhookProviderWithClient(client)
}

func NewWebhookProviderWithClient(client *resty.Client) *WebhookProvider {
	if client == nil {
		client = resty.New()
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookProvider{client: client}
}

func (p *WebhookProvider) Send(ctx context.Context, subscription domain.Subscription, payload Payload) (*ProviderResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := subscription.Validate(); err != nil {
		return nil, fmt.Errorf("invalid subscription: %w", err)
	}
	if _, err := url.ParseRequestURI(subscription.Endpoint); err != nil {
		return nil, &ProviderError{
			Message:   "invalid endpoint url",
			Permanent: true,
			Cause:     err,
		}
	}

	reqBody := webhookRequest{
		Endpoint: subscription.Endpoint,
		Account:  subscription.AccountID,
		Title:    payload.Title,
		Body:     payload.Body,
		Icon:     payload.Icon,
		URL:      payload.URL,
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(subscription.Endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "provider request failed",
			Permanent: false,
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "provider returned empty response",
			Permanent: false,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &ProviderResponse{
			StatusCode: statusCode,
			Body:       responseBody,
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    pushErrorMessage(statusCode, responseBody),
		Permanent:  isGoneStatus(statusCode),
	}
}
