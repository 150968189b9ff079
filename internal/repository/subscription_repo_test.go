package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/sadhef/notify/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSubscriptionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "notify.sqlite")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&SubscriptionModel{}); err != nil {
		t.Fatalf("failed to migrate subscriptions: %v", err)
	}
	err = db.Exec(`CREATE UNIQUE INDEX idx_subscriptions_account_endpoint ON subscriptions (account_id, endpoint)`).Error
	if err != nil {
		t.Fatalf("failed to create unique index: %v", err)
	}

	return db
}

func testSubscription(accountID string, endpoint string) *domain.Subscription {
	return &domain.Subscription{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Endpoint:  endpoint,
		P256DH:    "p256dh-1",
		Auth:      "auth-1",
		Active:    true,
	}
}

func TestUpsertDuplicateEndpointKeepsOneActiveRow(t *testing.T) {
	t.Parallel()

	db := newSubscriptionTestDB(t)
	repo := NewGormSubscriptionRepo(db)
	ctx := context.Background()

	endpoint := "https://push.example.com/abc"
	first := testSubscription("acc-1", endpoint)
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	second := testSubscription("acc-1", endpoint)
	second.P256DH = "p256dh-2"
	second.Auth = "auth-2"
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert() second error = %v", err)
	}

	var count int64
	if err := db.Model(&SubscriptionModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count error = %v", err)
	}
	if count != 1 {
		t.Fatalf("rows = %d, want exactly 1 for duplicate (account, endpoint)", count)
	}

	if second.ID != first.ID {
		t.Fatalf("canonical id = %q, want original row id %q", second.ID, first.ID)
	}
	if second.P256DH != "p256dh-2" || second.Auth != "auth-2" {
		t.Fatalf("keys = %q/%q, want refreshed key material", second.P256DH, second.Auth)
	}
	if !second.Active {
		t.Fatal("upserted subscription must be active")
	}
}

func TestUpsertReactivatesDeactivatedRow(t *testing.T) {
	t.Parallel()

	db := newSubscriptionTestDB(t)
	repo := NewGormSubscriptionRepo(db)
	ctx := context.Background()

	endpoint := "https://push.example.com/stale"
	first := testSubscription("acc-1", endpoint)
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Deactivate(ctx, first.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	again := testSubscription("acc-1", endpoint)
	again.P256DH = "p256dh-rotated"
	if err := repo.Upsert(ctx, again); err != nil {
		t.Fatalf("Upsert() after deactivate error = %v", err)
	}

	stored, err := repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !stored.Active {
		t.Fatal("re-registered subscription must be active again")
	}
	if stored.P256DH != "p256dh-rotated" {
		t.Fatalf("P256DH = %q, want rotated key", stored.P256DH)
	}

	active, err := repo.ListActive(ctx, []string{"acc-1"})
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active rows = %d, want 1", len(active))
	}
}

func TestUpsertDistinctEndpointsCreateSeparateRows(t *testing.T) {
	t.Parallel()

	db := newSubscriptionTestDB(t)
	repo := NewGormSubscriptionRepo(db)
	ctx := context.Background()

	if err := repo.Upsert(ctx, testSubscription("acc-1", "https://push.example.com/a")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, testSubscription("acc-1", "https://push.example.com/b")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	// Same endpoint registered by another account stays a separate subscription.
	if err := repo.Upsert(ctx, testSubscription("acc-2", "https://push.example.com/a")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	count, err := repo.ActiveCountForAccount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("ActiveCountForAccount() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("acc-1 active count = %d, want 2", count)
	}

	counts, err := repo.ActiveCountsByAccount(ctx)
	if err != nil {
		t.Fatalf("ActiveCountsByAccount() error = %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("grouped accounts = %d, want 2", len(counts))
	}
}

func TestDeactivateIdempotence(t *testing.T) {
	t.Parallel()

	db := newSubscriptionTestDB(t)
	repo := NewGormSubscriptionRepo(db)
	ctx := context.Background()

	s := testSubscription("acc-1", "https://push.example.com/abc")
	if err := repo.Upsert(ctx, s); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := repo.Deactivate(ctx, s.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if err := repo.Deactivate(ctx, s.ID); err != nil {
		t.Fatalf("Deactivate() repeat error = %v, want idempotent nil", err)
	}

	if err := repo.Deactivate(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Deactivate(unknown) error = %v, want ErrNotFound", err)
	}

	active, err := repo.ListActive(ctx, nil)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active rows = %d, want 0", len(active))
	}
}

func TestDeactivateAllForAccount(t *testing.T) {
	t.Parallel()

	db := newSubscriptionTestDB(t)
	repo := NewGormSubscriptionRepo(db)
	ctx := context.Background()

	if err := repo.Upsert(ctx, testSubscription("acc-1", "https://push.example.com/a")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, testSubscription("acc-1", "https://push.example.com/b")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, testSubscription("acc-2", "https://push.example.com/c")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	affected, err := repo.DeactivateAllForAccount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("DeactivateAllForAccount() error = %v", err)
	}
	if affected != 2 {
		t.Fatalf("affected = %d, want 2", affected)
	}

	remaining, err := repo.ListActive(ctx, nil)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(remaining) != 1 || remaining[0].AccountID != "acc-2" {
		t.Fatalf("remaining active = %+v, want only acc-2", remaining)
	}
}
