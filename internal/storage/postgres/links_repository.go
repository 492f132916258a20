package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/IgorGrieder/tinylink/internal/infrastructure/db"
	"github.com/IgorGrieder/tinylink/internal/processing/links"
	"github.com/IgorGrieder/tinylink/internal/storage/postgres/sqlc"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type LinksRepository struct {
	store   *db.Postgres
	queries *sqlc.Queries
}

func NewLinksRepository(p *db.Postgres) (*LinksRepository, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	return &LinksRepository{store: p, queries: sqlc.New(p.Pool)}, nil
}

func (r *LinksRepository) Insert(ctx context.Context, link *links.Link) (*links.Link, error) {
	if link == nil {
		return nil, errors.New("link is nil")
	}

	row, err := r.queries.InsertLink(ctx, insertParams(link))
	if err != nil {
		return nil, mapError(err)
	}
	return mapLinkRow(row), nil
}

// CreateOrReactivate locks the existing row for the code, if any, and decides
// between insert, reactivation and conflict inside the same transaction. A
// concurrent insert of the same fresh code loses on the primary key and is
// reported as ErrCodeConflict.
func (r *LinksRepository) CreateOrReactivate(ctx context.Context, link *links.Link) (*links.Link, links.CreateStatus, error) {
	if link == nil {
		return nil, "", errors.New("link is nil")
	}

	var (
		out    *links.Link
		status links.CreateStatus
	)
	err := r.store.InTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		q := r.queries.WithTx(tx)

		existing, err := q.GetLinkForUpdate(ctx, link.Code)
		if errors.Is(err, pgx.ErrNoRows) {
			row, err := q.InsertLink(ctx, insertParams(link))
			if err != nil {
				return err
			}
			out, status = mapLinkRow(row), links.StatusCreated
			return nil
		}
		if err != nil {
			return err
		}
		if existing.IsActive {
			return links.ErrCodeConflict
		}

		row, err := q.ReactivateLink(ctx, sqlc.ReactivateLinkParams{
			Code:      link.Code,
			TargetUrl: link.TargetURL,
			OwnerID:   toNullableText(link.OwnerID),
		})
		if err != nil {
			return err
		}
		out, status = mapLinkRow(row), links.StatusReactivated
		return nil
	})
	if err != nil {
		return nil, "", mapError(err)
	}
	return out, status, nil
}

func (r *LinksRepository) FindActive(ctx context.Context, code string) (*links.Link, error) {
	row, err := r.queries.GetActiveLink(ctx, code)
	if err != nil {
		return nil, mapError(err)
	}
	return mapLinkRow(row), nil
}

func (r *LinksRepository) ListActive(ctx context.Context) ([]links.Link, error) {
	rows, err := r.queries.ListActiveLinks(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]links.Link, 0, len(rows))
	for _, row := range rows {
		out = append(out, *mapLinkRow(row))
	}
	return out, nil
}

func (r *LinksRepository) SoftDelete(ctx context.Context, code string, at time.Time) error {
	rows, err := r.queries.SoftDeleteLink(ctx, sqlc.SoftDeleteLinkParams{
		Code:      code,
		DeletedAt: toTimestamptz(at),
	})
	if err != nil {
		return mapError(err)
	}
	if rows == 0 {
		return links.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(codes))
	if len(codes) == 0 {
		return out, nil
	}

	found, err := r.queries.ListExistingCodes(ctx, codes)
	if err != nil {
		return nil, mapError(err)
	}
	for _, c := range found {
		out[c] = struct{}{}
	}
	return out, nil
}

func insertParams(link *links.Link) sqlc.InsertLinkParams {
	createdAt := link.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return sqlc.InsertLinkParams{
		Code:      link.Code,
		TargetUrl: link.TargetURL,
		CreatedAt: toTimestamptz(createdAt),
		OwnerID:   toNullableText(link.OwnerID),
	}
}

func mapLinkRow(row sqlc.Link) *links.Link {
	return &links.Link{
		Code:        row.Code,
		TargetURL:   row.TargetUrl,
		CreatedAt:   row.CreatedAt.Time.UTC(),
		DeletedAt:   nullableTimeValue(row.DeletedAt),
		TotalClicks: row.TotalClicks,
		LastClicked: nullableTimeValue(row.LastClicked),
		OwnerID:     nullableTextValue(row.OwnerID),
		IsActive:    row.IsActive,
	}
}

func toNullableText(v string) pgtype.Text {
	v = strings.TrimSpace(v)
	if v == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{
		String: v,
		Valid:  true,
	}
}

func nullableTextValue(v pgtype.Text) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func toTimestamptz(v time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  v.UTC(),
		Valid: true,
	}
}

func nullableTimeValue(v pgtype.Timestamptz) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
