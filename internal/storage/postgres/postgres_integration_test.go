package postgres

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IgorGrieder/tinylink/internal/infrastructure/db"
	"github.com/IgorGrieder/tinylink/internal/processing/analytics"
	"github.com/IgorGrieder/tinylink/internal/processing/links"
	"github.com/IgorGrieder/tinylink/internal/testutils"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storageFixture struct {
	store     *db.Postgres
	links     *LinksRepository
	ledger    *ClickLedger
	outbox    *ClickOutboxRepository
	analytics *AnalyticsRepository
	service   *links.Service
}

func newStorageFixture(t *testing.T, store *db.Postgres) *storageFixture {
	t.Helper()

	linkRepo, err := NewLinksRepository(store)
	require.NoError(t, err)
	outbox, err := NewClickOutboxRepository(store)
	require.NoError(t, err)
	ledger, err := NewClickLedger(store, outbox)
	require.NoError(t, err)
	analyticsRepo, err := NewAnalyticsRepository(store)
	require.NoError(t, err)

	return &storageFixture{
		store:     store,
		links:     linkRepo,
		ledger:    ledger,
		outbox:    outbox,
		analytics: analyticsRepo,
		service:   links.NewService(linkRepo, ledger, links.NewCryptoGenerator(), 6),
	}
}

func (f *storageFixture) create(t *testing.T, code, target string) *links.CreateResult {
	t.Helper()
	res, err := f.service.CreateLink(context.Background(), links.CreateLinkInput{Code: code, TargetURL: target})
	require.NoError(t, err)
	return res
}

func (f *storageFixture) clickRows(t *testing.T, code string) int64 {
	t.Helper()
	var n int64
	err := f.store.Pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM clicks WHERE code = $1", code).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestPostgresStorage(t *testing.T) {
	env := testutils.SetupPostgres(t)
	f := newStorageFixture(t, env.Store)
	ctx := context.Background()

	t.Run("create without code generates six characters", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)

		res := f.create(t, "", "https://example.com")
		assert.Equal(t, links.StatusCreated, res.Status)
		assert.Len(t, res.Link.Code, 6)
		assert.True(t, res.Link.IsActive)
		assert.Zero(t, res.Link.TotalClicks)
	})

	t.Run("custom code on active link conflicts", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)

		f.create(t, "taken01", "https://a.example.com")
		_, err := f.service.CreateLink(ctx, links.CreateLinkInput{Code: "taken01", TargetURL: "https://b.example.com"})
		assert.ErrorIs(t, err, links.ErrCodeConflict)

		link, err := f.links.FindActive(ctx, "taken01")
		require.NoError(t, err)
		assert.Equal(t, "https://a.example.com", link.TargetURL)
	})

	t.Run("codes are case sensitive", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)

		f.create(t, "CaseAa", "https://a.example.com")
		res := f.create(t, "caseaa", "https://b.example.com")
		assert.Equal(t, links.StatusCreated, res.Status)
	})

	t.Run("delete then recreate reactivates and keeps history", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)

		_, err := f.service.CreateLink(ctx, links.CreateLinkInput{Code: "revive1", TargetURL: "https://old.example.com", OwnerID: "owner-1"})
		require.NoError(t, err)
		for range 3 {
			_, err := f.service.Resolve(ctx, "revive1", links.ClickInput{})
			require.NoError(t, err)
		}
		require.NoError(t, f.service.DeleteLink(ctx, "revive1"))

		_, err = f.links.FindActive(ctx, "revive1")
		assert.ErrorIs(t, err, links.ErrNotFound)

		res := f.create(t, "revive1", "https://new.example.com")
		assert.Equal(t, links.StatusReactivated, res.Status)
		assert.Equal(t, int64(3), res.Link.TotalClicks)
		assert.Equal(t, "https://new.example.com", res.Link.TargetURL)
		assert.Equal(t, "owner-1", res.Link.OwnerID, "owner is kept when none is given")
		assert.Nil(t, res.Link.DeletedAt)
		assert.True(t, res.Link.IsActive)
		assert.Equal(t, int64(3), f.clickRows(t, "revive1"))
	})

	t.Run("soft delete is not idempotent", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)

		f.create(t, "gone001", "https://example.com")
		require.NoError(t, f.service.DeleteLink(ctx, "gone001"))
		assert.ErrorIs(t, f.service.DeleteLink(ctx, "gone001"), links.ErrNotFound)
		assert.ErrorIs(t, f.service.DeleteLink(ctx, "never01"), links.ErrNotFound)

		var deletedAt *time.Time
		var active bool
		err := env.Store.Pool.QueryRow(ctx, "SELECT deleted_at, is_active FROM links WHERE code = $1", "gone001").Scan(&deletedAt, &active)
		require.NoError(t, err)
		assert.False(t, active)
		assert.NotNil(t, deletedAt)
	})

	t.Run("list active is newest first and skips deleted", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)

		base := time.Now().Add(-time.Hour).UTC()
		for i, code := range []string{"first01", "second1", "third01"} {
			_, err := f.links.Insert(ctx, &links.Link{Code: code, TargetURL: "https://example.com", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
			require.NoError(t, err)
		}
		require.NoError(t, f.service.DeleteLink(ctx, "second1"))

		got, err := f.links.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "third01", got[0].Code)
		assert.Equal(t, "first01", got[1].Code)
	})

	t.Run("redirect on unknown or deleted code writes nothing", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)

		_, err := f.service.Resolve(ctx, "nothere", links.ClickInput{Referrer: "https://x.example.com"})
		assert.ErrorIs(t, err, links.ErrNotFound)
		assert.Zero(t, f.clickRows(t, "nothere"))

		f.create(t, "deleted", "https://example.com")
		require.NoError(t, f.service.DeleteLink(ctx, "deleted"))
		_, err = f.service.Resolve(ctx, "deleted", links.ClickInput{})
		assert.ErrorIs(t, err, links.ErrNotFound)
		assert.Zero(t, f.clickRows(t, "deleted"))
	})

	t.Run("redirect records click metadata", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)

		f.create(t, "meta001", "https://example.com/landing")
		target, err := f.service.Resolve(ctx, "meta001", links.ClickInput{
			Referrer:  "https://news.example.com",
			UserAgent: "Mozilla/5.0 Chrome/120",
			IPAddress: "203.0.113.7",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/landing", target)

		var referrer, ua, ip *string
		err = env.Store.Pool.QueryRow(ctx, "SELECT referrer, user_agent, ip_address FROM clicks WHERE code = $1", "meta001").Scan(&referrer, &ua, &ip)
		require.NoError(t, err)
		require.NotNil(t, referrer)
		assert.Equal(t, "https://news.example.com", *referrer)
		assert.Equal(t, "203.0.113.7", *ip)

		_, err = f.service.Resolve(ctx, "meta001", links.ClickInput{})
		require.NoError(t, err)
		var nullReferrers int
		err = env.Store.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM clicks WHERE code = $1 AND referrer IS NULL", "meta001").Scan(&nullReferrers)
		require.NoError(t, err)
		assert.Equal(t, 1, nullReferrers)

		link, err := f.links.FindActive(ctx, "meta001")
		require.NoError(t, err)
		assert.Equal(t, int64(2), link.TotalClicks)
		assert.NotNil(t, link.LastClicked)
	})

	t.Run("counter matches click rows under concurrency", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)

		f.create(t, "hot0001", "https://example.com")
		f.create(t, "cold001", "https://example.com")

		const n = 50
		var wg sync.WaitGroup
		errs := make(chan error, 2*n)
		for i := range 2 * n {
			code := "hot0001"
			if i%2 == 1 {
				code = "cold001"
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := f.service.Resolve(ctx, code, links.ClickInput{UserAgent: "load-test"}); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("resolve failed: %v", err)
		}

		for _, code := range []string{"hot0001", "cold001"} {
			link, err := f.links.FindActive(ctx, code)
			require.NoError(t, err)
			assert.Equal(t, int64(n), link.TotalClicks, code)
			assert.Equal(t, int64(n), f.clickRows(t, code), code)
		}
	})

	t.Run("concurrent create of one fresh code yields one winner", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)

		const n = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			created   int
			conflicts int
			others    []error
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.service.CreateLink(ctx, links.CreateLinkInput{Code: "race001", TargetURL: "https://example.com"})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					created++
				case errors.Is(err, links.ErrCodeConflict):
					conflicts++
				default:
					others = append(others, err)
				}
			}()
		}
		wg.Wait()

		assert.Empty(t, others)
		assert.Equal(t, 1, created)
		assert.Equal(t, n-1, conflicts)
	})

	t.Run("redirect enqueues outbox event in the same transaction", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)

		f.create(t, "outbox1", "https://example.com")
		_, err := f.service.Resolve(ctx, "outbox1", links.ClickInput{Referrer: "https://ref.example.com"})
		require.NoError(t, err)

		claimed, err := f.outbox.ClaimPending(ctx, time.Now().Add(time.Second), 10, "worker-a", time.Minute)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		ev := claimed[0].Event()
		assert.Equal(t, "outbox1", ev.Code)
		assert.Equal(t, "https://ref.example.com", ev.Referrer)
		assert.NotZero(t, ev.ClickID)
		assert.Equal(t, 1, claimed[0].Attempts)

		again, err := f.outbox.ClaimPending(ctx, time.Now().Add(time.Second), 10, "worker-b", time.Minute)
		require.NoError(t, err)
		assert.Empty(t, again, "leased rows are not claimable by others")

		assert.ErrorIs(t, f.outbox.MarkSent(ctx, ev.EventID, "worker-b"), ErrOutboxEventNotOwned)
		require.NoError(t, f.outbox.MarkSent(ctx, ev.EventID, "worker-a"))

		_, err = f.service.Resolve(ctx, "nothere", links.ClickInput{})
		require.ErrorIs(t, err, links.ErrNotFound)
		var rows int
		require.NoError(t, env.Store.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM click_outbox").Scan(&rows))
		assert.Equal(t, 1, rows)
	})

	t.Run("outbox retry reschedules", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)

		f.create(t, "retry01", "https://example.com")
		_, err := f.service.Resolve(ctx, "retry01", links.ClickInput{})
		require.NoError(t, err)

		now := time.Now().Add(time.Second)
		claimed, err := f.outbox.ClaimPending(ctx, now, 1, "worker-a", time.Minute)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		require.NoError(t, f.outbox.MarkRetry(ctx, claimed[0].ID, "worker-a", "kafka down", now.Add(time.Hour)))

		none, err := f.outbox.ClaimPending(ctx, now, 1, "worker-a", time.Minute)
		require.NoError(t, err)
		assert.Empty(t, none)

		later, err := f.outbox.ClaimPending(ctx, now.Add(2*time.Hour), 1, "worker-a", time.Minute)
		require.NoError(t, err)
		require.Len(t, later, 1)
		assert.Equal(t, 2, later[0].Attempts)
	})

	t.Run("held row lock surfaces as transaction failure", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)
		f.create(t, "locked1", "https://example.com")

		impatient, err := db.ConnectPostgres(ctx, db.PostgresOptions{
			DSN:         env.DSN,
			MaxConns:    2,
			LockTimeout: 200 * time.Millisecond,
		})
		require.NoError(t, err)
		defer impatient.Close()
		ledger, err := NewClickLedger(impatient, nil)
		require.NoError(t, err)

		holder, err := env.Store.Pool.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = holder.Rollback(ctx) }()
		_, err = holder.Exec(ctx, "SELECT 1 FROM links WHERE code = $1 FOR UPDATE", "locked1")
		require.NoError(t, err)

		_, err = ledger.ResolveAndRecord(ctx, "locked1", links.ClickInput{}, time.Now())
		assert.ErrorIs(t, err, links.ErrTransactionFailure)
		require.NoError(t, holder.Rollback(ctx))

		assert.Zero(t, f.clickRows(t, "locked1"))
		link, err := f.links.FindActive(ctx, "locked1")
		require.NoError(t, err)
		assert.Zero(t, link.TotalClicks)
	})

	t.Run("cancelled caller does not abort a started transaction", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)
		f.create(t, "cancel1", "https://example.com")

		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		err := env.Store.InTx(cctx, pgx.TxOptions{}, func(txCtx context.Context, tx pgx.Tx) error {
			cancel()
			_, err := tx.Exec(txCtx, "UPDATE links SET total_clicks = total_clicks + 1 WHERE code = $1", "cancel1")
			return err
		})
		require.NoError(t, err)

		link, err := f.links.FindActive(ctx, "cancel1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), link.TotalClicks)
	})

	t.Run("suggestions skip codes already stored", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)
		f.create(t, "exists1", "https://example.com")

		taken, err := f.links.ExistingCodes(ctx, []string{"exists1", "fresh01"})
		require.NoError(t, err)
		assert.Contains(t, taken, "exists1")
		assert.NotContains(t, taken, "fresh01")

		got, err := f.service.SuggestCodes(ctx, 5, 7)
		require.NoError(t, err)
		assert.Len(t, got, 5)
		for _, c := range got {
			assert.Len(t, c, 7)
		}
	})
}

func TestPostgresAnalytics(t *testing.T) {
	env := testutils.SetupPostgres(t)
	f := newStorageFixture(t, env.Store)
	svc := analytics.NewService(f.analytics, f.links)
	ctx := context.Background()

	click := func(t *testing.T, code string, at time.Time, in links.ClickInput) {
		t.Helper()
		_, err := f.ledger.ResolveAndRecord(ctx, code, in, at)
		require.NoError(t, err)
	}

	t.Run("export with zero clicks is header only", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)
		f.create(t, "empty01", "https://example.com")

		out, err := svc.ExportCSV(ctx, "empty01")
		require.NoError(t, err)
		assert.Equal(t, "clicked_at,referrer,user_agent\n", string(out))
	})

	t.Run("export is newest first with placeholders", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)
		f.create(t, "export1", "https://example.com")

		now := time.Now().UTC().Truncate(time.Second)
		click(t, "export1", now.Add(-2*time.Hour), links.ClickInput{Referrer: "https://old.example.com", UserAgent: "curl/8"})
		click(t, "export1", now.Add(-time.Hour), links.ClickInput{})

		out, err := svc.ExportCSV(ctx, "export1")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasSuffix(lines[1], ",Direct,Unknown"), lines[1])
		assert.True(t, strings.HasSuffix(lines[2], ",https://old.example.com,curl/8"), lines[2])
	})

	t.Run("link stats", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)
		f.create(t, "stats01", "https://example.com")

		now := time.Now().UTC()
		click(t, "stats01", now, links.ClickInput{UserAgent: "Mozilla/5.0 (iPhone) Mobile"})
		click(t, "stats01", now, links.ClickInput{Referrer: "https://a.example.com", UserAgent: "Mozilla/5.0 Chrome"})
		click(t, "stats01", now.AddDate(0, 0, -2), links.ClickInput{Referrer: "https://a.example.com", UserAgent: "Mozilla/5.0 (iPad)"})
		click(t, "stats01", now.AddDate(0, 0, -20), links.ClickInput{UserAgent: "curl/8"})

		stats, err := svc.LinkStats(ctx, "stats01")
		require.NoError(t, err)
		assert.Equal(t, int64(4), stats.Link.TotalClicks)
		require.Len(t, stats.ClickHistory, 7)

		var inWindow int64
		for _, d := range stats.ClickHistory {
			inWindow += d.Count
		}
		assert.Equal(t, int64(3), inWindow, "the 20 day old click is outside the window")
		assert.Equal(t, int64(2), stats.ClickHistory[6].Count)

		require.Len(t, stats.TopReferrers, 2)
		assert.Equal(t, "Direct", stats.TopReferrers[0].Referrer)
		assert.Equal(t, int64(2), stats.TopReferrers[0].Count)

		assert.Equal(t, analytics.DeviceBreakdown{Desktop: 1, Mobile: 1, Tablet: 1, Other: 1}, stats.Devices)

		require.NoError(t, f.service.DeleteLink(ctx, "stats01"))
		_, err = svc.LinkStats(ctx, "stats01")
		assert.ErrorIs(t, err, links.ErrNotFound)
	})

	t.Run("global summary and trending", func(t *testing.T) {
		testutils.TruncateAll(t, env.Store)
		f.create(t, "trendA1", "https://a.example.com")
		f.create(t, "trendB1", "https://b.example.com")
		f.create(t, "quiet01", "https://q.example.com")
		f.create(t, "dead001", "https://d.example.com")

		now := time.Now().UTC()
		recent := now.Add(-24 * time.Hour)
		previous := now.Add(-10 * 24 * time.Hour)
		for range 10 {
			click(t, "trendA1", recent, links.ClickInput{})
			click(t, "trendB1", recent, links.ClickInput{})
		}
		for range 5 {
			click(t, "trendA1", previous, links.ClickInput{})
		}
		click(t, "trendB1", previous, links.ClickInput{})
		click(t, "quiet01", previous, links.ClickInput{})
		click(t, "dead001", recent, links.ClickInput{})
		require.NoError(t, f.service.DeleteLink(ctx, "dead001"))

		sum, err := svc.GlobalSummary(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), sum.TotalLinks)
		assert.Equal(t, int64(15+11+1), sum.TotalClicks)

		require.Len(t, sum.TopLinks, 3)
		assert.Equal(t, "trendA1", sum.TopLinks[0].Code)

		require.Len(t, sum.TrendingLinks, 2, "quiet and deleted links never trend")
		assert.Equal(t, "trendB1", sum.TrendingLinks[0].Code)
		assert.InDelta(t, 10.0, sum.TrendingLinks[0].GrowthRate, 1e-9)
		assert.Equal(t, "trendA1", sum.TrendingLinks[1].Code)
		assert.InDelta(t, 2.0, sum.TrendingLinks[1].GrowthRate, 1e-9)

		// 28 clicks spread over two distinct days, including the deleted link's
		assert.InDelta(t, 14.0, sum.AvgClicksPerDay, 1e-9)
	})
}
