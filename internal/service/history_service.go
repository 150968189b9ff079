package service

import (
	"context"
	"fmt"

	"github.com/sadhef/notify/internal/directory"
	"github.com/sadhef/notify/internal/domain"
	"github.com/sadhef/notify/internal/repository"
	"go.uber.org/zap"
)

const maxHistoryPageSize = 100

// HistoryEntry pairs a dispatch record with the sender's display name,
// resolved at read time so history survives account renames.
type HistoryEntry struct {
	Record     domain.DispatchRecord
	SenderName string
}

// HistoryPage is one page of the delivery audit trail, newest first.
type HistoryPage struct {
	Entries      []HistoryEntry
	CurrentPage  int
	TotalPages   int
	TotalRecords int64
	HasNext      bool
	HasPrev      bool
}

type HistoryService struct {
	history  repository.HistoryRepository
	accounts directory.AccountDirectory
	logger   *zap.Logger
}

func NewHistoryService(
	history repository.HistoryRepository,
	accounts directory.AccountDirectory,
	logger *zap.Logger,
) (*HistoryService, error) {
	if history == nil {
		return nil, fmt.Errorf("history repository is required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HistoryService{
		history:  history,
		accounts: accounts,
		logger:   logger,
	}, nil
}

// Page returns the requested page with full pagination metadata. Pages past
// the end are valid requests and come back empty with the true totals.
func (s *HistoryService) Page(ctx context.Context, page int, pageSize int) (*HistoryPage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if pageSize < 1 || pageSize > maxHistoryPageSize {
		return nil, fmt.Errorf("%w: page size must be between 1 and %d", domain.ErrValidation, maxHistoryPageSize)
	}

	records, total, err := s.history.Page(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read dispatch history: %v", domain.ErrPersistence, err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	senderNames, err := s.resolveSenderNames(ctx, records)
	if err != nil {
		// History stays readable even when the directory is unavailable.
		s.logger.Warn("failed to resolve sender names for history page", zap.Error(err))
		senderNames = map[string]string{}
	}

	entries := make([]HistoryEntry, 0, len(records))
	for i := range records {
		entries = append(entries, HistoryEntry{
			Record:     records[i],
			SenderName: senderNames[records[i].SentBy],
		})
	}

	return &HistoryPage{
		Entries:      entries,
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalRecords: total,
		HasNext:      page < totalPages,
		HasPrev:      page > 1,
	}, nil
}

func (s *HistoryService) resolveSenderNames(ctx context.Context, records []domain.DispatchRecord) (map[string]string, error) {
	if len(records) == 0 {
		return map[string]string{}, nil
	}

	seen := make(map[string]struct{}, len(records))
	senderIDs := make([]string, 0, len(records))
	for i := range records {
		if _, ok := seen[records[i].SentBy]; ok {
			continue
		}
		seen[records[i].SentBy] = struct{}{}
		senderIDs = append(senderIDs, records[i].SentBy)
	}

	accounts, err := s.accounts.ResolveAccounts(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(accounts))
	for _, account := range accounts {
		names[account.ID] = account.DisplayName
	}
	return names, nil
}
