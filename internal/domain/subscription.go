package domain

import (
	"fmt"
	"strings"
	"time"
)

// Subscription binds one provider-assigned push endpoint to one account.
// The (AccountID, Endpoint) pair is unique; re-registration upserts in place.
type Subscription struct {
	ID               string
	AccountID        string
	Endpoint         string
	P256DH           string
	Auth             string
	ClientDescriptor string
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (s *Subscription) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: subscription is required", ErrValidation)
	}
	if strings.TrimSpace(s.AccountID) == "" {
		return fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if strings.TrimSpace(s.Endpoint) == "" {
		return fmt.Errorf("%w: endpoint is required", ErrValidation)
	}
	if strings.TrimSpace(s.P256DH) == "" {
		return fmt.Errorf("%w: p256dh key is required", ErrValidation)
	}
	if strings.TrimSpace(s.Auth) == "" {
		return fmt.Errorf("%w: auth key is required", ErrValidation)
	}
	return nil
}
