package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sadhef/notify/internal/directory"
	"github.com/sadhef/notify/internal/domain"
	"github.com/sadhef/notify/internal/observability"
	"github.com/sadhef/notify/internal/repository"
	"go.uber.org/zap"
)

// SubscriptionStatus is the per-account registration summary.
type SubscriptionStatus struct {
	HasActiveSubscription bool
	SubscriptionCount     int64
}

// AccountSummary is one row of the admin account listing: directory identity
// joined with the registry's active-subscription aggregation.
type AccountSummary struct {
	Account               domain.Account
	HasActiveSubscription bool
	SubscriptionCount     int64
}

type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
	accounts      directory.AccountDirectory
	logger        *zap.Logger
	metrics       *observability.Metrics
}

func NewSubscriptionService(
	subscriptions repository.SubscriptionRepository,
	accounts directory.AccountDirectory,
	logger *zap.Logger,
) (*SubscriptionService, error) {
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription repository is required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SubscriptionService{
		subscriptions: subscriptions,
		accounts:      accounts,
		logger:        logger,
	}, nil
}

func (s *SubscriptionService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Register stores a push endpoint for an account. Re-registering an existing
// (account, endpoint) pair refreshes the key material and reactivates the row
// instead of duplicating it.
func (s *SubscriptionService) Register(
	ctx context.Context,
	accountID string,
	endpoint string,
	p256dh string,
	auth string,
	clientDescriptor string,
) (*domain.Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	subscription := &domain.Subscription{
		ID:               uuid.NewString(),
		AccountID:        strings.TrimSpace(accountID),
		Endpoint:         strings.TrimSpace(endpoint),
		P256DH:           strings.TrimSpace(p256dh),
		Auth:             strings.TrimSpace(auth),
		ClientDescriptor: strings.TrimSpace(clientDescriptor),
		Active:           true,
	}
	if err := subscription.Validate(); err != nil {
		return nil, err
	}

	if err := s.subscriptions.Upsert(ctx, subscription); err != nil {
		return nil, fmt.Errorf("failed to store subscription: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncSubscriptionRegistered()
	}
	s.logger.Info("subscription registered",
		zap.String("subscriptionId", subscription.ID),
		zap.String("accountId", subscription.AccountID),
	)

	return subscription, nil
}

// Unsubscribe deactivates every active subscription the account holds and
// returns how many rows were affected. Rows are kept for audit, not deleted.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, accountID string) (int64, error) {
	trimmed := strings.TrimSpace(accountID)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: account id is required", domain.ErrValidation)
	}

	affected, err := s.subscriptions.DeactivateAllForAccount(ctx, trimmed)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate subscriptions: %w", err)
	}

	s.logger.Info("subscriptions deactivated on opt-out",
		zap.String("accountId", trimmed),
		zap.Int64("count", affected),
	)

	return affected, nil
}

func (s *SubscriptionService) Status(ctx context.Context, accountID string) (*SubscriptionStatus, error) {
	trimmed := strings.TrimSpace(accountID)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: account id is required", domain.ErrValidation)
	}

	count, err := s.subscriptions.ActiveCountForAccount(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	return &SubscriptionStatus{
		HasActiveSubscription: count > 0,
		SubscriptionCount:     count,
	}, nil
}

// ListAccounts joins the directory's account list with the registry's active
// subscription counts. The two reads are not transactionally consistent;
// counts may trail registrations by a beat.
func (s *SubscriptionService) ListAccounts(ctx context.Context) ([]AccountSummary, error) {
	accounts, err := s.accounts.ResolveAccounts(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve accounts: %w", err)
	}

	counts, err := s.subscriptions.ActiveCountsByAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate subscription counts: %w", err)
	}

	countByAccount := make(map[string]int64, len(counts))
	for _, row := range counts {
		countByAccount[row.AccountID] = row.Count
	}

	summaries := make([]AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		count := countByAccount[account.ID]
		summaries = append(summaries, AccountSummary{
			Account:               account,
			HasActiveSubscription: count > 0,
			SubscriptionCount:     count,
		})
	}

	return summaries, nil
}
