package directory

import (
	"context"
	"errors"
	"time"

	"github.com/sadhef/notify/internal/domain"
	"gorm.io/gorm"
)

// AccountModel is the read-only persistence model for the accounts table,
// which the external identity service owns and migrates.
type AccountModel struct {
	ID          string      `gorm:"type:uuid;primaryKey"`
	DisplayName string      `gorm:"type:varchar(100);not null"`
	Role        domain.Role `gorm:"type:varchar(20);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (AccountModel) TableName() string {
	return "accounts"
}

var _ AccountDirectory = (*GormAccountDirectory)(nil)

type GormAccountDirectory struct {
	db *gorm.DB
}

func NewGormAccountDirectory(db *gorm.DB) *GormAccountDirectory {
	return &GormAccountDirectory{db: db}
}

func (d *GormAccountDirectory) ResolveAccounts(ctx context.Context, ids []string) ([]domain.Account, error) {
	query := d.db.WithContext(ctx).Model(&AccountModel{})
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	var models []AccountModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(models))
	for i := range models {
		accounts = append(accounts, domain.Account{
			ID:          models[i].ID,
			DisplayName: models[i].DisplayName,
			Role:        models[i].Role,
			CreatedAt:   models[i].CreatedAt,
		})
	}
	return accounts, nil
}

func (d *GormAccountDirectory) ListAllAccountIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).
		Model(&AccountModel{}).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (d *GormAccountDirectory) RoleOf(ctx context.Context, accountID string) (domain.Role, error) {
	var model AccountModel
	err := d.db.WithContext(ctx).First(&model, "id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return model.Role, nil
}
