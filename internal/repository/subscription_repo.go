package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sadhef/notify/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountSubscriptionCount is the group-by row behind the admin user listing.
type AccountSubscriptionCount struct {
	AccountID string `gorm:"column:account_id"`
	Count     int64  `gorm:"column:count"`
}

type SubscriptionRepository interface {
	Upsert(ctx context.Context, s *domain.Subscription) error
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	ListActive(ctx context.Context, accountIDs []string) ([]domain.Subscription, error)
	Deactivate(ctx context.Context, id string) error
	DeactivateAllForAccount(ctx context.Context, accountID string) (int64, error)
	ActiveCountForAccount(ctx context.Context, accountID string) (int64, error)
	ActiveCountsByAccount(ctx context.Context) ([]AccountSubscriptionCount, error)
}

type GormSubscriptionRepo struct {
	db *gorm.DB
}

func NewGormSubscriptionRepo(db *gorm.DB) *GormSubscriptionRepo {
	return &GormSubscriptionRepo{db: db}
}

// Upsert inserts a subscription or, when the (account, endpoint) pair already
// exists, overwrites its key material and descriptor and reactivates the row.
func (r *GormSubscriptionRepo) Upsert(ctx context.Context, s *domain.Subscription) error {
	model := subscriptionModelFromDomain(s)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "endpoint"}},
			DoUpdates: clause.Assignments(map[string]any{
				"p256dh":            model.P256DH,
				"auth":              model.Auth,
				"client_descriptor": model.ClientDescriptor,
				"active":            true,
				"updated_at":        time.Now().UTC(),
			}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}

	// The conflict path keeps the original row id, so reload the canonical row.
	var stored SubscriptionModel
	err = r.db.WithContext(ctx).
		Where("account_id = ? AND endpoint = ?", model.AccountID, model.Endpoint).
		First(&stored).Error
	if err != nil {
		return err
	}

	if s != nil {
		*s = *subscriptionModelToDomain(&stored)
	}
	return nil
}

func (r *GormSubscriptionRepo) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	var model SubscriptionModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return subscriptionModelToDomain(&model), nil
}

// ListActive returns active subscriptions for the given accounts, or every
// active subscription when accountIDs is empty. Row order is unspecified.
func (r *GormSubscriptionRepo) ListActive(ctx context.Context, accountIDs []string) ([]domain.Subscription, error) {
	query := r.db.WithContext(ctx).Where("active = ?", true)
	if len(accountIDs) > 0 {
		query = query.Where("account_id IN ?", accountIDs)
	}

	var models []SubscriptionModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	subscriptions := make([]domain.Subscription, 0, len(models))
	for i := range models {
		subscriptions = append(subscriptions, *subscriptionModelToDomain(&models[i]))
	}
	return subscriptions, nil
}

// Deactivate clears the active flag. Already-inactive rows are left as-is
// without error; an unknown id is ErrNotFound.
func (r *GormSubscriptionRepo) Deactivate(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&SubscriptionModel{}).
		Where("id = ?", id).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormSubscriptionRepo) DeactivateAllForAccount(ctx context.Context, accountID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&SubscriptionModel{}).
		Where("account_id = ? AND active = ?", accountID, true).
		Update("active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *GormSubscriptionRepo) ActiveCountForAccount(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&SubscriptionModel{}).
		Where("account_id = ? AND active = ?", accountID, true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormSubscriptionRepo) ActiveCountsByAccount(ctx context.Context) ([]AccountSubscriptionCount, error) {
	var counts []AccountSubscriptionCount
	err := r.db.WithContext(ctx).
		Model(&SubscriptionModel{}).
		Select("account_id, COUNT(*) AS count").
		Where("active = ?", true).
		Group("account_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}
