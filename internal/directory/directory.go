// Package directory exposes the account identities and roles the dispatch
// engine consumes. The engine never writes through this package.
package directory

import (
	"context"

	"github.com/sadhef/notify/internal/domain"
)

type AccountDirectory interface {
	ResolveAccounts(ctx context.Context, ids []string) ([]domain.Account, error)
	ListAllAccountIDs(ctx context.Context) ([]string, error)
	RoleOf(ctx context.Context, accountID string) (domain.Role, error)
}
