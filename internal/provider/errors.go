package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ProviderError classifies delivery failures. Permanent means the endpoint
// will never accept another delivery (the provider's "gone" class) and the
// subscription should be retired.
type ProviderError struct {
	StatusCode int
	Message    string
	Permanent  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "provider error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsPermanent reports whether a delivery failure warrants deactivating the
// subscription. Unknown failures are treated as transient so an endpoint is
// never retired on ambiguous evidence.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Permanent
	}

	return false
}
