package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/tinylink/internal/infrastructure/db"
	"github.com/IgorGrieder/tinylink/internal/processing/analytics"
	"github.com/IgorGrieder/tinylink/internal/storage/postgres/sqlc"
)

// AnalyticsRepository runs plain reads against the pool. Results may lag
// concurrent redirects slightly.
type AnalyticsRepository struct {
	queries *sqlc.Queries
}

func NewAnalyticsRepository(p *db.Postgres) (*AnalyticsRepository, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	return &AnalyticsRepository{queries: sqlc.New(p.Pool)}, nil
}

func (r *AnalyticsRepository) DailyClicks(ctx context.Context, code string, since time.Time) ([]analytics.DailyCount, error) {
	rows, err := r.queries.DailyClicks(ctx, sqlc.DailyClicksParams{
		Code:      code,
		ClickedAt: toTimestamptz(since),
	})
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]analytics.DailyCount, 0, len(rows))
	for _, row := range rows {
		day := ""
		if row.Day.Valid {
			day = row.Day.Time.Format(time.DateOnly)
		}
		out = append(out, analytics.DailyCount{
			Date:  day,
			Count: row.Clicks,
		})
	}
	return out, nil
}

func (r *AnalyticsRepository) TopReferrers(ctx context.Context, code string, limit int) ([]analytics.ReferrerCount, error) {
	rows, err := r.queries.TopReferrers(ctx, sqlc.TopReferrersParams{
		Code:  code,
		Limit: int32(limit),
	})
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]analytics.ReferrerCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, analytics.ReferrerCount{
			Referrer: nullableTextValue(row.Referrer),
			Count:    row.Clicks,
		})
	}
	return out, nil
}

func (r *AnalyticsRepository) UserAgentCounts(ctx context.Context, code string) ([]analytics.UserAgentCount, error) {
	rows, err := r.queries.UserAgentCounts(ctx, code)
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]analytics.UserAgentCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, analytics.UserAgentCount{
			UserAgent: nullableTextValue(row.UserAgent),
			Count:     row.Clicks,
		})
	}
	return out, nil
}

func (r *AnalyticsRepository) ClicksNewestFirst(ctx context.Context, code string) ([]analytics.ClickRecord, error) {
	rows, err := r.queries.ListClicksNewestFirst(ctx, code)
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]analytics.ClickRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, analytics.ClickRecord{
			ClickedAt: row.ClickedAt.Time.UTC(),
			Referrer:  nullableTextValue(row.Referrer),
			UserAgent: nullableTextValue(row.UserAgent),
		})
	}
	return out, nil
}

func (r *AnalyticsRepository) ActiveTotals(ctx context.Context) (int64, int64, error) {
	row, err := r.queries.ActiveTotals(ctx)
	if err != nil {
		return 0, 0, mapError(err)
	}
	return row.LinkCount, row.ClickCount, nil
}

func (r *AnalyticsRepository) TopLinks(ctx context.Context, limit int) ([]analytics.LinkClicks, error) {
	rows, err := r.queries.TopLinks(ctx, int32(limit))
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]analytics.LinkClicks, 0, len(rows))
	for _, row := range rows {
		out = append(out, analytics.LinkClicks{
			Code:        row.Code,
			TargetURL:   row.TargetUrl,
			TotalClicks: row.TotalClicks,
		})
	}
	return out, nil
}

func (r *AnalyticsRepository) ClickDays(ctx context.Context, since time.Time) (int64, int64, error) {
	row, err := r.queries.ClickDays(ctx, toTimestamptz(since))
	if err != nil {
		return 0, 0, mapError(err)
	}
	return row.Clicks, row.Days, nil
}

func (r *AnalyticsRepository) WindowCounts(ctx context.Context, previousSince, recentSince time.Time) ([]analytics.WindowCount, error) {
	rows, err := r.queries.WindowCounts(ctx, sqlc.WindowCountsParams{
		RecentSince:   toTimestamptz(recentSince),
		PreviousSince: toTimestamptz(previousSince),
	})
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]analytics.WindowCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, analytics.WindowCount{
			Code:           row.Code,
			TargetURL:      row.TargetUrl,
			RecentClicks:   row.RecentClicks,
			PreviousClicks: row.PreviousClicks,
		})
	}
	return out, nil
}
