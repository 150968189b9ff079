package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/sadhef/notify/internal/directory"
	"github.com/sadhef/notify/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_accounts",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&directory.AccountModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&directory.AccountModel{})
			},
		},
		{
			ID: "000002_create_subscriptions",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.SubscriptionModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_account_endpoint ON subscriptions (account_id, endpoint)`,
					`CREATE INDEX IF NOT EXISTS idx_subscriptions_account_active ON subscriptions (account_id) WHERE active`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.SubscriptionModel{})
			},
		},
		{
			ID: "000003_create_dispatch_records",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DispatchRecordModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_dispatch_records_created_at ON dispatch_records (created_at DESC)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DispatchRecordModel{})
			},
		},
		{
			ID: "000004_create_delivery_outcomes",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DeliveryOutcomeModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_delivery_outcomes_dispatch_id ON delivery_outcomes (dispatch_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DeliveryOutcomeModel{})
			},
		},
	})

	return m.Migrate()
}
