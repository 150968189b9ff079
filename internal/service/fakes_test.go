package service

import (
	"context"
	"errors"

	"github.com/sadhef/notify/internal/domain"
	"github.com/sadhef/notify/internal/provider"
	"github.com/sadhef/notify/internal/queue"
	"github.com/sadhef/notify/internal/repository"
)

type fakeSubscriptionRepo struct {
	upsertFn                  func(ctx context.Context, s *domain.Subscription) error
	getByIDFn                 func(ctx context.Context, id string) (*domain.Subscription, error)
	listActiveFn              func(ctx context.Context, accountIDs []string) ([]domain.Subscription, error)
	deactivateFn              func(ctx context.Context, id string) error
	deactivateAllForAccountFn func(ctx context.Context, accountID string) (int64, error)
	activeCountForAccountFn   func(ctx context.Context, accountID string) (int64, error)
	activeCountsByAccountFn   func(ctx context.Context) ([]repository.AccountSubscriptionCount, error)
}

func (f *fakeSubscriptionRepo) Upsert(ctx context.Context, s *domain.Subscription) error {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, s)
	}
	return nil
}

func (f *fakeSubscriptionRepo) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSubscriptionRepo) ListActive(ctx context.Context, accountIDs []string) ([]domain.Subscription, error) {
	if f.listActiveFn != nil {
		return f.listActiveFn(ctx, accountIDs)
	}
	return nil, nil
}

func (f *fakeSubscriptionRepo) Deactivate(ctx context.Context, id string) error {
	if f.deactivateFn != nil {
		return f.deactivateFn(ctx, id)
	}
	return nil
}

func (f *fakeSubscriptionRepo) DeactivateAllForAccount(ctx context.Context, accountID string) (int64, error) {
	if f.deactivateAllForAccountFn != nil {
		return f.deactivateAllForAccountFn(ctx, accountID)
	}
	return 0, nil
}

func (f *fakeSubscriptionRepo) ActiveCountForAccount(ctx context.Context, accountID string) (int64, error) {
	if f.activeCountForAccountFn != nil {
		return f.activeCountForAccountFn(ctx, accountID)
	}
	return 0, nil
}

func (f *fakeSubscriptionRepo) ActiveCountsByAccount(ctx context.Context) ([]repository.AccountSubscriptionCount, error) {
	if f.activeCountsByAccountFn != nil {
		return f.activeCountsByAccountFn(ctx)
	}
	return nil, nil
}

type fakeHistoryRepo struct {
	appendFn func(ctx context.Context, record *domain.DispatchRecord) error
	pageFn   func(ctx context.Context, page int, pageSize int) ([]domain.DispatchRecord, int64, error)
}

func (f *fakeHistoryRepo) Append(ctx context.Context, record *domain.DispatchRecord) error {
	if f.appendFn != nil {
		return f.appendFn(ctx, record)
	}
	return nil
}

func (f *fakeHistoryRepo) Page(ctx context.Context, page int, pageSize int) ([]domain.DispatchRecord, int64, error) {
	if f.pageFn != nil {
		return f.pageFn(ctx, page, pageSize)
	}
	return nil, 0, nil
}

type fakeDirectory struct {
	resolveAccountsFn   func(ctx context.Context, ids []string) ([]domain.Account, error)
	listAllAccountIDsFn func(ctx context.Context) ([]string, error)
	roleOfFn            func(ctx context.Context, accountID string) (domain.Role, error)
}

func (f *fakeDirectory) ResolveAccounts(ctx context.Context, ids []string) ([]domain.Account, error) {
	if f.resolveAccountsFn != nil {
		return f.resolveAccountsFn(ctx, ids)
	}
	return nil, nil
}

func (f *fakeDirectory) ListAllAccountIDs(ctx context.Context) ([]string, error) {
	if f.listAllAccountIDsFn != nil {
		return f.listAllAccountIDsFn(ctx)
	}
	return nil, nil
}

func (f *fakeDirectory) RoleOf(ctx context.Context, accountID string) (domain.Role, error) {
	if f.roleOfFn != nil {
		return f.roleOfFn(ctx, accountID)
	}
	return "", domain.ErrNotFound
}

type fakePushProvider struct {
	sendFn func(ctx context.Context, subscription domain.Subscription, payload provider.Payload) (*provider.ProviderResponse, error)
}

func (f *fakePushProvider) Send(
	ctx context.Context,
	subscription domain.Subscription,
	payload provider.Payload,
) (*provider.ProviderResponse, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, subscription, payload)
	}
	return nil, errors.New("not implemented")
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, scope string) (bool, error)
	waitFn  func(ctx context.Context, scope string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, scope string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, scope)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, scope string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, scope)
	}
	return nil
}

type fakePublisher struct {
	publishFn func(ctx context.Context, event queue.DispatchEvent) error
}

func (f *fakePublisher) Publish(ctx context.Context, event queue.DispatchEvent) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, event)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }
