package analytics

import (
	"context"
	"time"

	"github.com/IgorGrieder/tinylink/internal/processing/links"
)

// Repository is read-only. None of its queries lock rows.
type Repository interface {
	DailyClicks(ctx context.Context, code string, since time.Time) ([]DailyCount, error)
	TopReferrers(ctx context.Context, code string, limit int) ([]ReferrerCount, error)
	UserAgentCounts(ctx context.Context, code string) ([]UserAgentCount, error)
	ClicksNewestFirst(ctx context.Context, code string) ([]ClickRecord, error)

	ActiveTotals(ctx context.Context) (linkCount, clickCount int64, err error)
	TopLinks(ctx context.Context, limit int) ([]LinkClicks, error)
	// ClickDays returns the clicks since the given instant and the number of
	// distinct UTC dates they fall on.
	ClickDays(ctx context.Context, since time.Time) (clicks, days int64, err error)
	// WindowCounts returns active links with at least one click at or after
	// recentSince.
	WindowCounts(ctx context.Context, previousSince, recentSince time.Time) ([]WindowCount, error)
}

type LinkFinder interface {
	FindActive(ctx context.Context, code string) (*links.Link, error)
}
