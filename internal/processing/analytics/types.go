package analytics

import (
	"time"

	"github.com/IgorGrieder/tinylink/internal/processing/links"
)

const (
	DirectReferrer   = "Direct"
	UnknownUserAgent = "Unknown"

	historyDays    = 7
	averageDays    = 30
	trendingWindow = 7 * 24 * time.Hour
	topLimit       = 5
)

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

// UserAgentCount is one group of identical user agents. Empty means NULL.
type UserAgentCount struct {
	UserAgent string
	Count     int64
}

type DeviceBreakdown struct {
	Desktop int64 `json:"desktop"`
	Mobile  int64 `json:"mobile"`
	Tablet  int64 `json:"tablet"`
	Other   int64 `json:"other"`
}

type LinkStats struct {
	Link         *links.Link
	ClickHistory []DailyCount
	TopReferrers []ReferrerCount
	Devices      DeviceBreakdown
}

// ClickRecord is one exported click. Empty strings mean NULL.
type ClickRecord struct {
	ClickedAt time.Time
	Referrer  string
	UserAgent string
}

type LinkClicks struct {
	Code        string `json:"code"`
	TargetURL   string `json:"target_url"`
	TotalClicks int64  `json:"clicks"`
}

// WindowCount holds the clicks of one active link in the last and the
// preceding trending window.
type WindowCount struct {
	Code           string
	TargetURL      string
	RecentClicks   int64
	PreviousClicks int64
}

type TrendingLink struct {
	Code           string  `json:"code"`
	TargetURL      string  `json:"target_url"`
	RecentClicks   int64   `json:"recent_clicks"`
	PreviousClicks int64   `json:"previous_clicks"`
	GrowthRate     float64 `json:"growth_rate"`
}

type Summary struct {
	TotalLinks      int64          `json:"total_links"`
	TotalClicks     int64          `json:"total_clicks"`
	TopLinks        []LinkClicks   `json:"top_links"`
	AvgClicksPerDay float64        `json:"avg_clicks_per_day"`
	TrendingLinks   []TrendingLink `json:"trending_links"`
}
