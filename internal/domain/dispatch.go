package domain

import (
	"fmt"
	"strings"
	"time"
)

// OutcomeStatus represents the terminal state of one delivery attempt.
type OutcomeStatus string

const (
	OutcomeDelivered OutcomeStatus = "DELIVERED"
	OutcomeFailed    OutcomeStatus = "FAILED"
)

func (s OutcomeStatus) String() string { return string(s) }

func (s OutcomeStatus) IsValid() bool {
	switch s {
	case OutcomeDelivered, OutcomeFailed:
		return true
	}
	return false
}

// Content limits for a dispatch payload (in characters).
const (
	MaxTitleLength = 100
	MaxBodyLength  = 500
)

// DeliveryOutcome is the per-endpoint result embedded in a DispatchRecord.
type DeliveryOutcome struct {
	SubscriptionID string
	AccountID      string
	Status         OutcomeStatus
	DeliveredAt    *time.Time
	Error          *string
}

// DispatchRecord is the audit record of one send operation. It is mutated only
// by the dispatch that owns it and becomes immutable once finalized.
type DispatchRecord struct {
	ID             string
	Title          string
	Body           string
	Icon           string
	URL            string
	SentBy         string
	SentTo         []string
	Outcomes       []DeliveryOutcome
	TotalSent      int
	TotalDelivered int
	TotalFailed    int
	CreatedAt      time.Time
}

func (r *DispatchRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: dispatch record is required", ErrValidation)
	}
	if strings.TrimSpace(r.SentBy) == "" {
		return fmt.Errorf("%w: sender account id is required", ErrValidation)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(r.Body) == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}

	if titleLen := len([]rune(r.Title)); titleLen > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters (got %d)", ErrValidation, MaxTitleLength, titleLen)
	}
	if bodyLen := len([]rune(r.Body)); bodyLen > MaxBodyLength {
		return fmt.Errorf("%w: body exceeds %d characters (got %d)", ErrValidation, MaxBodyLength, bodyLen)
	}

	return nil
}

// Finalize writes the outcome list and aggregate counters. It is called
// exactly once, after every delivery attempt has completed.
func (r *DispatchRecord) Finalize(outcomes []DeliveryOutcome) {
	r.Outcomes = outcomes
	r.TotalSent = len(outcomes)
	r.TotalDelivered = 0
	r.TotalFailed = 0

	for i := range outcomes {
		switch outcomes[i].Status {
		case OutcomeDelivered:
			r.TotalDelivered++
		default:
			r.TotalFailed++
		}
	}
}
