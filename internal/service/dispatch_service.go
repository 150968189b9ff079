package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sadhef/notify/internal/directory"
	"github.com/sadhef/notify/internal/domain"
	"github.com/sadhef/notify/internal/observability"
	"github.com/sadhef/notify/internal/provider"
	"github.com/sadhef/notify/internal/queue"
	"github.com/sadhef/notify/internal/ratelimit"
	"github.com/sadhef/notify/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minDispatchConcurrency = 1
	defaultConcurrency     = 50
	deactivateTimeout      = 5 * time.Second
	rateLimitScope         = "webpush"
)

// DispatchRequest describes one send operation. Targeted distinguishes an
// explicit target list from "everyone": an explicit empty list is invalid,
// while an untargeted request resolves to all active subscriptions.
type DispatchRequest struct {
	SenderID         string
	Title            string
	Body             string
	TargetAccountIDs []string
	Targeted         bool
}

// DispatchService fans a payload out to every resolved endpoint, records the
// per-endpoint outcomes, retires permanently gone endpoints, and appends one
// immutable history record per call.
type DispatchService struct {
	subscriptions repository.SubscriptionRepository
	history       repository.HistoryRepository
	accounts      directory.AccountDirectory
	provider      provider.PushProvider
	rateLimiter   ratelimit.RateLimiter
	publisher     queue.EventPublisher
	logger        *zap.Logger
	metrics       *observability.Metrics
	concurrency   int
	defaultIcon   string
	defaultURL    string
	now           func() time.Time
}

func NewDispatchService(
	subscriptions repository.SubscriptionRepository,
	history repository.HistoryRepository,
	accounts directory.AccountDirectory,
	pushProvider provider.PushProvider,
	rateLimiter ratelimit.RateLimiter,
	publisher queue.EventPublisher,
	concurrency int,
	defaultIcon string,
	defaultURL string,
	logger *zap.Logger,
) (*DispatchService, error) {
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription repository is required")
	}
	if history == nil {
		return nil, fmt.Errorf("history repository is required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account directory is required")
	}
	if pushProvider == nil {
		return nil, fmt.Errorf("push provider is required")
	}
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if concurrency < minDispatchConcurrency {
		concurrency = minDispatchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchService{
		subscriptions: subscriptions,
		history:       history,
		accounts:      accounts,
		provider:      pushProvider,
		rateLimiter:   rateLimiter,
		publisher:     publisher,
		logger:        logger,
		concurrency:   concurrency,
		defaultIcon:   defaultIcon,
		defaultURL:    defaultURL,
		now:           time.Now,
	}, nil
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Dispatch runs one send operation to completion. It either returns a
// finalized, persisted record or a structured error raised before any
// provider call was made; per-endpoint failures never surface as call errors.
func (s *DispatchService) Dispatch(ctx context.Context, req DispatchRequest) (*domain.DispatchRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	senderID := strings.TrimSpace(req.SenderID)
	if senderID == "" {
		return nil, fmt.Errorf("%w: sender account id is required", domain.ErrUnauthorized)
	}

	// The HTTP layer already gates these routes, but the sender role is
	// re-validated here so the engine never trusts its callers.
	role, err := s.accounts.RoleOf(ctx, senderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown sender account %s", domain.ErrUnauthorized, senderID)
		}
		return nil, fmt.Errorf("failed to resolve sender role: %w", err)
	}
	if !role.IsAdministrator() {
		return nil, fmt.Errorf("%w: account %s is not an administrator", domain.ErrUnauthorized, senderID)
	}

	record := &domain.DispatchRecord{
		ID:     uuid.NewString(),
		Title:  strings.TrimSpace(req.Title),
		Body:   strings.TrimSpace(req.Body),
		Icon:   s.defaultIcon,
		URL:    s.defaultURL,
		SentBy: senderID,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	targets, err := s.resolveTargets(ctx, req)
	if err != nil {
		return nil, err
	}
	record.SentTo = targets

	var listFilter []string
	if req.Targeted {
		listFilter = targets
	}
	subscriptions, err := s.subscriptions.ListActive(ctx, listFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active subscriptions: %w", err)
	}

	payload := provider.Payload{
		Title: record.Title,
		Body:  record.Body,
		Icon:  record.Icon,
		URL:   record.URL,
	}

	outcomes := s.fanOut(ctx, subscriptions, payload)
	record.Finalize(outcomes)
	record.CreatedAt = s.now().UTC()

	if err := s.history.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: failed to persist dispatch record: %v", domain.ErrPersistence, err)
	}

	if s.metrics != nil {
		s.metrics.IncDispatch(record.TotalSent)
	}

	s.publishEvent(ctx, record)

	observability.WithContextLogger(s.logger, ctx).Info("dispatch finalized",
		zap.String("dispatchId", record.ID),
		zap.Int("totalSent", record.TotalSent),
		zap.Int("totalDelivered", record.TotalDelivered),
		zap.Int("totalFailed", record.TotalFailed),
	)

	return record, nil
}

func (s *DispatchService) resolveTargets(ctx context.Context, req DispatchRequest) ([]string, error) {
	if !req.Targeted {
		ids, err := s.accounts.ListAllAccountIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list account ids: %w", err)
		}
		return ids, nil
	}

	seen := make(map[string]struct{}, len(req.TargetAccountIDs))
	targets := make([]string, 0, len(req.TargetAccountIDs))
	for _, id := range req.TargetAccountIDs {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		targets = append(targets, trimmed)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: target account list must not be empty", domain.ErrValidation)
	}

	return targets, nil
}

// fanOut issues exactly one delivery attempt per subscription on a bounded
// worker pool. Attempts are fail-independent: an endpoint's error is recorded
// and never cancels a sibling attempt.
func (s *DispatchService) fanOut(
	ctx context.Context,
	subscriptions []domain.Subscription,
	payload provider.Payload,
) []domain.DeliveryOutcome {
	if len(subscriptions) == 0 {
		return nil
	}

	outcomes := make([]domain.DeliveryOutcome, len(subscriptions))

	var deactivations sync.WaitGroup
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for i := range subscriptions {
		i := i
		subscription := subscriptions[i]
		g.Go(func() error {
			outcomes[i] = s.attemptDelivery(ctx, subscription, payload, &deactivations)
			return nil
		})
	}

	_ = g.Wait()
	deactivations.Wait()

	return outcomes
}

func (s *DispatchService) attemptDelivery(
	ctx context.Context,
	subscription domain.Subscription,
	payload provider.Payload,
	deactivations *sync.WaitGroup,
) domain.DeliveryOutcome {
	outcome := domain.DeliveryOutcome{
		SubscriptionID: subscription.ID,
		AccountID:      subscription.AccountID,
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, rateLimitScope); err != nil {
			// No provider call was made for this recipient; the message
			// keeps that visible in the stored outcome.
			message := fmt.Sprintf("delivery not attempted: rate limiter wait failed: %v", err)
			outcome.Status = domain.OutcomeFailed
			outcome.Error = &message
			if s.metrics != nil {
				s.metrics.IncDelivery(domain.OutcomeFailed.String())
			}
			return outcome
		}
	}

	if s.metrics != nil {
		s.metrics.IncDispatchInFlight()
		defer s.metrics.DecDispatchInFlight()
	}

	sendStart := s.now()
	_, sendErr := s.provider.Send(ctx, subscription, payload)
	if s.metrics != nil {
		s.metrics.ObserveDeliveryDuration(s.now().Sub(sendStart))
	}

	if sendErr == nil {
		deliveredAt := s.now().UTC()
		outcome.Status = domain.OutcomeDelivered
		outcome.DeliveredAt = &deliveredAt
		if s.metrics != nil {
			s.metrics.IncDelivery(domain.OutcomeDelivered.String())
		}
		return outcome
	}

	message := sendErr.Error()
	outcome.Status = domain.OutcomeFailed
	outcome.Error = &message
	if s.metrics != nil {
		s.metrics.IncDelivery(domain.OutcomeFailed.String())
	}

	if provider.IsPermanent(sendErr) {
		s.retireSubscription(subscription, deactivations)
	}

	return outcome
}

// retireSubscription deactivates a permanently gone endpoint off the delivery
// path. Failures are logged only; the recipient's outcome stays FAILED either
// way.
func (s *DispatchService) retireSubscription(subscription domain.Subscription, deactivations *sync.WaitGroup) {
	deactivations.Add(1)
	go func() {
		defer deactivations.Done()

		ctx, cancel := context.WithTimeout(context.Background(), deactivateTimeout)
		defer cancel()

		if err := s.subscriptions.Deactivate(ctx, subscription.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("failed to deactivate gone subscription",
				zap.String("subscriptionId", subscription.ID),
				zap.String("accountId", subscription.AccountID),
				zap.Error(err),
			)
			return
		}

		if s.metrics != nil {
			s.metrics.IncSubscriptionDeactivated()
		}
		s.logger.Info("subscription retired after permanent provider rejection",
			zap.String("subscriptionId", subscription.ID),
			zap.String("accountId", subscription.AccountID),
		)
	}()
}

func (s *DispatchService) publishEvent(ctx context.Context, record *domain.DispatchRecord) {
	event := queue.DispatchEvent{
		DispatchID:     record.ID,
		SentBy:         record.SentBy,
		TotalSent:      record.TotalSent,
		TotalDelivered: record.TotalDelivered,
		TotalFailed:    record.TotalFailed,
		CreatedAt:      record.CreatedAt,
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish dispatch event",
			zap.String("dispatchId", record.ID),
			zap.Error(err),
		)
	}
}
