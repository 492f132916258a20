package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

var csvHeader = []string{"clicked_at", "referrer", "user_agent"}

const csvTimeLayout = "2006-01-02T15:04:05.000Z"

type Service struct {
	repo  Repository
	links LinkFinder
	now   func() time.Time
}

func NewService(repo Repository, links LinkFinder) *Service {
	return &Service{
		repo:  repo,
		links: links,
		now:   time.Now,
	}
}

// LinkStats returns links.ErrNotFound when the code is not active.
func (s *Service) LinkStats(ctx context.Context, code string) (*LinkStats, error) {
	link, err := s.links.FindActive(ctx, code)
	if err != nil {
		return nil, err
	}

	today := dateOnly(s.now().UTC())
	from := today.AddDate(0, 0, -(historyDays - 1))

	var (
		daily     []DailyCount
		referrers []ReferrerCount
		agents    []UserAgentCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		daily, err = s.repo.DailyClicks(gctx, code, from)
		return err
	})
	g.Go(func() error {
		var err error
		referrers, err = s.repo.TopReferrers(gctx, code, topLimit)
		return err
	})
	g.Go(func() error {
		var err error
		agents, err = s.repo.UserAgentCounts(gctx, code)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &LinkStats{
		Link:         link,
		ClickHistory: fillDays(daily, from, today),
		TopReferrers: make([]ReferrerCount, 0, len(referrers)),
	}
	for _, r := range referrers {
		if r.Referrer == "" {
			r.Referrer = DirectReferrer
		}
		stats.TopReferrers = append(stats.TopReferrers, r)
	}
	for _, a := range agents {
		stats.Devices.add(ClassifyDevice(a.UserAgent), a.Count)
	}

	return stats, nil
}

// ExportCSV renders every click of code, newest first. The header row is
// always written, including for codes without clicks.
func (s *Service) ExportCSV(ctx context.Context, code string) ([]byte, error) {
	clicks, err := s.repo.ClicksNewestFirst(ctx, code)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, c := range clicks {
		referrer := c.Referrer
		if referrer == "" {
			referrer = DirectReferrer
		}
		ua := c.UserAgent
		if ua == "" {
			ua = UnknownUserAgent
		}
		if err := w.Write([]string{c.ClickedAt.UTC().Format(csvTimeLayout), referrer, ua}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (s *Service) GlobalSummary(ctx context.Context) (*Summary, error) {
	now := s.now().UTC()
	summary := &Summary{}

	var (
		clicks30d, days30d int64
		windows            []WindowCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary.TotalLinks, summary.TotalClicks, err = s.repo.ActiveTotals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		summary.TopLinks, err = s.repo.TopLinks(gctx, topLimit)
		return err
	})
	g.Go(func() error {
		var err error
		clicks30d, days30d, err = s.repo.ClickDays(gctx, now.AddDate(0, 0, -averageDays))
		return err
	})
	g.Go(func() error {
		var err error
		windows, err = s.repo.WindowCounts(gctx, now.Add(-2*trendingWindow), now.Add(-trendingWindow))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if summary.TopLinks == nil {
		summary.TopLinks = []LinkClicks{}
	}
	summary.AvgClicksPerDay = averagePerDay(clicks30d, days30d)
	summary.TrendingLinks = rankTrending(windows, topLimit)
	return summary, nil
}

func averagePerDay(clicks, days int64) float64 {
	if days == 0 {
		return 0
	}
	return float64(clicks) / float64(days)
}

// rankTrending orders links by recent / max(previous, 1). Links without
// recent clicks never trend.
func rankTrending(windows []WindowCount, limit int) []TrendingLink {
	out := make([]TrendingLink, 0, len(windows))
	for _, w := range windows {
		if w.RecentClicks <= 0 {
			continue
		}
		denom := w.PreviousClicks
		if denom < 1 {
			denom = 1
		}
		out = append(out, TrendingLink{
			Code:           w.Code,
			TargetURL:      w.TargetURL,
			RecentClicks:   w.RecentClicks,
			PreviousClicks: w.PreviousClicks,
			GrowthRate:     float64(w.RecentClicks) / float64(denom),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].GrowthRate != out[j].GrowthRate {
			return out[i].GrowthRate > out[j].GrowthRate
		}
		if out[i].RecentClicks != out[j].RecentClicks {
			return out[i].RecentClicks > out[j].RecentClicks
		}
		return out[i].Code < out[j].Code
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// fillDays returns one entry per date in [from, to], ascending, with zero
// for dates without clicks.
func fillDays(counts []DailyCount, from, to time.Time) []DailyCount {
	byDate := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDate[c.Date] += c.Count
	}

	out := make([]DailyCount, 0, historyDays)
	for day := dateOnly(from); !day.After(dateOnly(to)); day = day.AddDate(0, 0, 1) {
		ds := day.Format(time.DateOnly)
		out = append(out, DailyCount{
			Date:  ds,
			Count: byDate[ds],
		})
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
