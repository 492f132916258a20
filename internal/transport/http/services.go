package http

import (
	"context"

	"github.com/IgorGrieder/tinylink/internal/processing/analytics"
	"github.com/IgorGrieder/tinylink/internal/processing/links"
)

// LinkService is implemented by *links.Service.
type LinkService interface {
	CreateLink(ctx context.Context, in links.CreateLinkInput) (*links.CreateResult, error)
	GetLink(ctx context.Context, code string) (*links.Link, error)
	ListLinks(ctx context.Context) ([]links.Link, error)
	DeleteLink(ctx context.Context, code string) error
	Resolve(ctx context.Context, code string, click links.ClickInput) (string, error)
	SuggestCodes(ctx context.Context, count, length int) ([]string, error)
}

// AnalyticsService is implemented by *analytics.Service.
type AnalyticsService interface {
	LinkStats(ctx context.Context, code string) (*analytics.LinkStats, error)
	ExportCSV(ctx context.Context, code string) ([]byte, error)
	GlobalSummary(ctx context.Context) (*analytics.Summary, error)
}
