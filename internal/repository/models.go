package repository

import (
	"encoding/json"
	"time"

	"github.com/sadhef/notify/internal/domain"
)

// SubscriptionModel is the persistence model for the subscriptions table.
// Uniqueness of (account_id, endpoint) is enforced by a migration index.
type SubscriptionModel struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	AccountID        string `gorm:"type:uuid;not null"`
	Endpoint         string `gorm:"type:text;not null"`
	P256DH           string `gorm:"column:p256dh;type:text;not null"`
	Auth             string `gorm:"type:text;not null"`
	ClientDescriptor string `gorm:"type:text"`
	Active           bool   `gorm:"not null;default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// DispatchRecordModel is the persistence model for dispatch_records.
type DispatchRecordModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	Title          string `gorm:"type:varchar(100);not null"`
	Body           string `gorm:"type:varchar(500);not null"`
	Icon           string `gorm:"type:text"`
	URL            string `gorm:"type:text"`
	SentBy         string `gorm:"type:uuid;not null"`
	SentTo         []byte `gorm:"type:jsonb"`
	TotalSent      int    `gorm:"not null;default:0"`
	TotalDelivered int    `gorm:"not null;default:0"`
	TotalFailed    int    `gorm:"not null;default:0"`
	CreatedAt      time.Time
}

func (DispatchRecordModel) TableName() string {
	return "dispatch_records"
}

// DeliveryOutcomeModel is the persistence model for delivery_outcomes.
type DeliveryOutcomeModel struct {
	ID             string  `gorm:"type:uuid;primaryKey"`
	DispatchID     string  `gorm:"type:uuid;not null"`
	SubscriptionID string  `gorm:"type:uuid;not null"`
	AccountID      string  `gorm:"type:uuid;not null"`
	Status         string  `gorm:"type:varchar(20);not null"`
	DeliveredAt    *time.Time
	Error          *string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (DeliveryOutcomeModel) TableName() string {
	return "delivery_outcomes"
}

func subscriptionModelFromDomain(s *domain.Subscription) *SubscriptionModel {
	if s == nil {
		return nil
	}

	return &SubscriptionModel{
		ID:               s.ID,
		AccountID:        s.AccountID,
		Endpoint:         s.Endpoint,
		P256DH:           s.P256DH,
		Auth:             s.Auth,
		ClientDescriptor: s.ClientDescriptor,
		Active:           s.Active,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func subscriptionModelToDomain(m *SubscriptionModel) *domain.Subscription {
	if m == nil {
		return nil
	}

	return &domain.Subscription{
		ID:               m.ID,
		AccountID:        m.AccountID,
		Endpoint:         m.Endpoint,
		P256DH:           m.P256DH,
		Auth:             m.Auth,
		ClientDescriptor: m.ClientDescriptor,
		Active:           m.Active,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func dispatchRecordModelFromDomain(r *domain.DispatchRecord) (*DispatchRecordModel, error) {
	if r == nil {
		return nil, nil
	}

	sentTo := r.SentTo
	if sentTo == nil {
		sentTo = []string{}
	}
	encoded, err := json.Marshal(sentTo)
	if err != nil {
		return nil, err
	}

	return &DispatchRecordModel{
		ID:             r.ID,
		Title:          r.Title,
		Body:           r.Body,
		Icon:           r.Icon,
		URL:            r.URL,
		SentBy:         r.SentBy,
		SentTo:         encoded,
		TotalSent:      r.TotalSent,
		TotalDelivered: r.TotalDelivered,
		TotalFailed:    r.TotalFailed,
		CreatedAt:      r.CreatedAt,
	}, nil
}

func dispatchRecordModelToDomain(m *DispatchRecordModel, outcomes []DeliveryOutcomeModel) (*domain.DispatchRecord, error) {
	if m == nil {
		return nil, nil
	}

	var sentTo []string
	if len(m.SentTo) > 0 {
		if err := json.Unmarshal(m.SentTo, &sentTo); err != nil {
			return nil, err
		}
	}

	record := &domain.DispatchRecord{
		ID:             m.ID,
		Title:          m.Title,
		Body:           m.Body,
		Icon:           m.Icon,
		URL:            m.URL,
		SentBy:         m.SentBy,
		SentTo:         sentTo,
		TotalSent:      m.TotalSent,
		TotalDelivered: m.TotalDelivered,
		TotalFailed:    m.TotalFailed,
		CreatedAt:      m.CreatedAt,
	}

	record.Outcomes = make([]domain.DeliveryOutcome, 0, len(outcomes))
	for i := range outcomes {
		record.Outcomes = append(record.Outcomes, *outcomeModelToDomain(&outcomes[i]))
	}

	return record, nil
}

func outcomeModelFromDomain(dispatchID string, o *domain.DeliveryOutcome) *DeliveryOutcomeModel {
	if o == nil {
		return nil
	}

	return &DeliveryOutcomeModel{
		DispatchID:     dispatchID,
		SubscriptionID: o.SubscriptionID,
		AccountID:      o.AccountID,
		Status:         o.Status.String(),
		DeliveredAt:    o.DeliveredAt,
		Error:          o.Error,
	}
}

func outcomeModelToDomain(m *DeliveryOutcomeModel) *domain.DeliveryOutcome {
	if m == nil {
		return nil
	}

	return &domain.DeliveryOutcome{
		SubscriptionID: m.SubscriptionID,
		AccountID:      m.AccountID,
		Status:         domain.OutcomeStatus(m.Status),
		DeliveredAt:    m.DeliveredAt,
		Error:          m.Error,
	}
}
