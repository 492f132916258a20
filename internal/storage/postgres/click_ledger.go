package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/tinylink/internal/infrastructure/db"
	"github.com/IgorGrieder/tinylink/internal/processing/links"
	"github.com/IgorGrieder/tinylink/internal/storage/postgres/sqlc"
	"github.com/jackc/pgx/v5"
)

// ClickLedger owns the clicks table and the redirect transaction.
type ClickLedger struct {
	store   *db.Postgres
	queries *sqlc.Queries
	outbox  *ClickOutboxRepository
}

// NewClickLedger builds the ledger. When outbox is non-nil every recorded
// click also enqueues a click.recorded event in the same transaction.
func NewClickLedger(p *db.Postgres, outbox *ClickOutboxRepository) (*ClickLedger, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	return &ClickLedger{store: p, queries: sqlc.New(p.Pool), outbox: outbox}, nil
}

// ResolveAndRecord locks the active link row, bumps its counters and appends
// the click. Nothing is written when the code is unknown or inactive.
func (l *ClickLedger) ResolveAndRecord(ctx context.Context, code string, click links.ClickInput, at time.Time) (string, error) {
	at = at.UTC()

	var target string
	err := l.store.InTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		q := l.queries.WithTx(tx)

		link, err := q.LockActiveLink(ctx, code)
		if err != nil {
			return err
		}

		if err := q.IncrementLinkClicks(ctx, sqlc.IncrementLinkClicksParams{
			Code:        link.Code,
			LastClicked: toTimestamptz(at),
		}); err != nil {
			return err
		}

		clickID, err := q.InsertClick(ctx, sqlc.InsertClickParams{
			Code:      link.Code,
			ClickedAt: toTimestamptz(at),
			Referrer:  toNullableText(click.Referrer),
			UserAgent: toNullableText(click.UserAgent),
			IpAddress: toNullableText(click.IPAddress),
		})
		if err != nil {
			return err
		}

		if l.outbox != nil {
			if err := l.outbox.enqueue(ctx, q, outboxClick{
				code:       link.Code,
				clickID:    clickID,
				occurredAt: at,
				referrer:   click.Referrer,
				userAgent:  click.UserAgent,
			}); err != nil {
				return err
			}
		}

		target = link.TargetUrl
		return nil
	})
	if err != nil {
		return "", mapError(err)
	}
	return target, nil
}
