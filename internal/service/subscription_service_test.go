package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sadhef/notify/internal/domain"
	"github.com/sadhef/notify/internal/repository"
)

func newTestSubscriptionService(t *testing.T, subs *fakeSubscriptionRepo, accounts *fakeDirectory) *SubscriptionService {
	t.Helper()

	if subs == nil {
		subs = &fakeSubscriptionRepo{}
	}
	if accounts == nil {
		accounts = &fakeDirectory{}
	}
	svc, err := NewSubscriptionService(subs, accounts, nil)
	if err != nil {
		t.Fatalf("NewSubscriptionService() error = %v", err)
	}
	return svc
}

func TestRegisterUpsertsSubscription(t *testing.T) {
	t.Parallel()

	var stored *domain.Subscription
	svc := newTestSubscriptionService(t, &fakeSubscriptionRepo{
		upsertFn: func(_ context.Context, s *domain.Subscription) error {
			stored = s
			return nil
		},
	}, nil)

	subscription, err := svc.Register(
		context.Background(),
		"  acc-1  ",
		" https://push.example.com/abc ",
		"p256dh-key",
		"auth-secret",
		"Mozilla/5.0",
	)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if stored == nil {
		t.Fatal("subscription was not persisted")
	}
	if subscription.AccountID != "acc-1" {
		t.Errorf("AccountID = %q, want trimmed %q", subscription.AccountID, "acc-1")
	}
	if subscription.Endpoint != "https://push.example.com/abc" {
		t.Errorf("Endpoint = %q, want trimmed value", subscription.Endpoint)
	}
	if subscription.ID == "" {
		t.Error("expected a generated subscription id")
	}
	if !subscription.Active {
		t.Error("registered subscription must be active")
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	svc := newTestSubscriptionService(t, nil, nil)

	tests := []struct {
		name     string
		account  string
		endpoint string
		p256dh   string
		auth     string
	}{
		{name: "missing account", endpoint: "https://e", p256dh: "k", auth: "a"},
		{name: "missing endpoint", account: "acc-1", p256dh: "k", auth: "a"},
		{name: "missing p256dh", account: "acc-1", endpoint: "https://e", auth: "a"},
		{name: "missing auth", account: "acc-1", endpoint: "https://e", p256dh: "k"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.Register(context.Background(), tt.account, tt.endpoint, tt.p256dh, tt.auth, "")
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Register() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	svc := newTestSubscriptionService(t, &fakeSubscriptionRepo{
		deactivateAllForAccountFn: func(_ context.Context, accountID string) (int64, error) {
			if accountID != "acc-1" {
				t.Errorf("accountID = %q, want acc-1", accountID)
			}
			return 2, nil
		},
	}, nil)

	affected, err := svc.Unsubscribe(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if affected != 2 {
		t.Fatalf("affected = %d, want 2", affected)
	}

	if _, err := svc.Unsubscribe(context.Background(), "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Unsubscribe(blank) error = %v, want ErrValidation", err)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		count int64
		want  bool
	}{
		{name: "active subscriptions", count: 3, want: true},
		{name: "no subscriptions", count: 0, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := newTestSubscriptionService(t, &fakeSubscriptionRepo{
				activeCountForAccountFn: func(_ context.Context, _ string) (int64, error) {
					return tt.count, nil
				},
			}, nil)

			status, err := svc.Status(context.Background(), "acc-1")
			if err != nil {
				t.Fatalf("Status() error = %v", err)
			}
			if status.HasActiveSubscription != tt.want || status.SubscriptionCount != tt.count {
				t.Fatalf("status = %+v, want active=%v count=%d", status, tt.want, tt.count)
			}
		})
	}
}

func TestListAccountsMergesCounts(t *testing.T) {
	t.Parallel()

	svc := newTestSubscriptionService(t,
		&fakeSubscriptionRepo{
			activeCountsByAccountFn: func(_ context.Context) ([]repository.AccountSubscriptionCount, error) {
				return []repository.AccountSubscriptionCount{
					{AccountID: "acc-1", Count: 2},
				}, nil
			},
		},
		&fakeDirectory{
			resolveAccountsFn: func(_ context.Context, ids []string) ([]domain.Account, error) {
				if ids != nil {
					t.Errorf("expected nil filter, got %v", ids)
				}
				return []domain.Account{
					{ID: "acc-1", DisplayName: "Ada", Role: domain.RoleAdministrator},
					{ID: "acc-2", DisplayName: "Grace", Role: domain.RoleStandard},
				}, nil
			},
		},
	)

	summaries, err := svc.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}
	if !summaries[0].HasActiveSubscription || summaries[0].SubscriptionCount != 2 {
		t.Errorf("acc-1 summary = %+v, want 2 active subscriptions", summaries[0])
	}
	if summaries[1].HasActiveSubscription || summaries[1].SubscriptionCount != 0 {
		t.Errorf("acc-2 summary = %+v, want no subscriptions", summaries[1])
	}
}
