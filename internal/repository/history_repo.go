package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sadhef/notify/internal/domain"
	"gorm.io/gorm"
)

type HistoryRepository interface {
	Append(ctx context.Context, record *domain.DispatchRecord) error
	Page(ctx context.Context, page int, pageSize int) ([]domain.DispatchRecord, int64, error)
}

type GormHistoryRepo struct {
	db *gorm.DB
}

func NewGormHistoryRepo(db *gorm.DB) *GormHistoryRepo {
	return &GormHistoryRepo{db: db}
}

// Append persists a finalized record and its outcome rows in one transaction,
// so readers never observe a partial record.
func (r *GormHistoryRepo) Append(ctx context.Context, record *domain.DispatchRecord) error {
	model, err := dispatchRecordModelFromDomain(record)
	if err != nil {
		return fmt.Errorf("failed to encode dispatch record: %w", err)
	}
	if model == nil {
		return fmt.Errorf("%w: dispatch record is required", domain.ErrValidation)
	}

	outcomeModels := make([]DeliveryOutcomeModel, 0, len(record.Outcomes))
	for i := range record.Outcomes {
		outcome := outcomeModelFromDomain(model.ID, &record.Outcomes[i])
		outcome.ID = uuid.NewString()
		outcomeModels = append(outcomeModels, *outcome)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		if len(outcomeModels) == 0 {
			return nil
		}
		return tx.CreateInBatches(&outcomeModels, 100).Error
	})
	if err != nil {
		return err
	}

	record.CreatedAt = model.CreatedAt
	return nil
}

// Page returns records newest-first. A page past the end yields an empty
// slice with the true total, not an error.
func (r *GormHistoryRepo) Page(ctx context.Context, page int, pageSize int) ([]domain.DispatchRecord, int64, error) {
	if page < 1 {
		return nil, 0, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if pageSize < 1 {
		return nil, 0, fmt.Errorf("%w: page size must be >= 1", domain.ErrValidation)
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&DispatchRecordModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []DispatchRecordModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	if len(models) == 0 {
		return []domain.DispatchRecord{}, total, nil
	}

	recordIDs := make([]string, 0, len(models))
	for i := range models {
		recordIDs = append(recordIDs, models[i].ID)
	}

	var outcomeModels []DeliveryOutcomeModel
	err = r.db.WithContext(ctx).
		Where("dispatch_id IN ?", recordIDs).
		Find(&outcomeModels).Error
	if err != nil {
		return nil, 0, err
	}

	outcomesByDispatch := make(map[string][]DeliveryOutcomeModel, len(models))
	for i := range outcomeModels {
		outcomesByDispatch[outcomeModels[i].DispatchID] = append(
			outcomesByDispatch[outcomeModels[i].DispatchID], outcomeModels[i])
	}

	records := make([]domain.DispatchRecord, 0, len(models))
	for i := range models {
		record, err := dispatchRecordModelToDomain(&models[i], outcomesByDispatch[models[i].ID])
		if err != nil {
			return nil, 0, fmt.Errorf("failed to decode dispatch record %s: %w", models[i].ID, err)
		}
		records = append(records, *record)
	}

	return records, total, nil
}
