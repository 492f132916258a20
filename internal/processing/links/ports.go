package links

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("link not found")
	ErrCodeConflict = errors.New("code already in use")
	ErrInvalidURL   = errors.New("invalid url")
	ErrInvalidCode  = errors.New("invalid code")

	// ErrTransactionFailure covers lock timeouts, serialization failures and
	// connections lost mid-transaction. Nothing was committed; callers may retry.
	ErrTransactionFailure = errors.New("transaction failed")
	// ErrStorageUnavailable means no connection could be obtained.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

type LinkRepository interface {
	// Insert stores a new active link and fails with ErrCodeConflict when a
	// row with the same code exists in any state.
	Insert(ctx context.Context, link *Link) (*Link, error)
	// CreateOrReactivate inserts the link, or revives an inactive row with
	// the same code. An active row yields ErrCodeConflict.
	CreateOrReactivate(ctx context.Context, link *Link) (*Link, CreateStatus, error)
	FindActive(ctx context.Context, code string) (*Link, error)
	ListActive(ctx context.Context) ([]Link, error)
	SoftDelete(ctx context.Context, code string, at time.Time) error
	// ExistingCodes returns the subset of codes that already have a row.
	ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error)
}

type ClickLedger interface {
	// ResolveAndRecord returns the target URL of an active link after
	// counting the click, all in one transaction.
	ResolveAndRecord(ctx context.Context, code string, click ClickInput, at time.Time) (string, error)
}

type CodeGenerator interface {
	Generate(length int) (string, error)
	GenerateBatch(count, length int) ([]string, error)
}
