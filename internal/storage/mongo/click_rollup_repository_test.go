package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/IgorGrieder/tinylink/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestDateString(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	at := time.Date(2025, 1, 15, 22, 30, 0, 0, loc)

	if got := dateString(at); got != "2025-01-16" {
		t.Errorf("dateString() = %q, want 2025-01-16", got)
	}
}

func TestClickRollupRepository(t *testing.T) {
	m := testutils.SetupMongo(t)
	ctx := context.Background()

	repo, err := NewClickRollupRepository(ctx, m)
	require.NoError(t, err)

	day := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	applied, err := repo.Apply(ctx, "evt-1", "abc123", day)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.Apply(ctx, "evt-2", "abc123", day.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.Apply(ctx, "evt-1", "abc123", day)
	require.NoError(t, err)
	assert.False(t, applied, "redelivered event must not be counted again")

	_, err = repo.Apply(ctx, "evt-3", "abc123", day.AddDate(0, 0, 1))
	require.NoError(t, err)

	var doc clickDailyDoc
	err = repo.daily.FindOne(ctx, bson.M{"code": "abc123", "date": "2025-01-15"}).Decode(&doc)
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.Count)

	days, err := repo.daily.CountDocuments(ctx, bson.M{"code": "abc123"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), days)
}

func TestClickRollupRepository_FailedIncrementIsRetried(t *testing.T) {
	m := testutils.SetupMongo(t)

	repo, err := NewClickRollupRepository(context.Background(), m)
	require.NoError(t, err)

	day := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	// The consumer's operation deadline passes while the increment runs.
	opCtx, cancel := context.WithCancel(context.Background())
	repo.inc = func(ctx context.Context, code string, at time.Time) error {
		cancel()
		return context.DeadlineExceeded
	}

	applied, err := repo.Apply(opCtx, "evt-late", "slow01", day)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, applied)

	markers, err := repo.processed.CountDocuments(context.Background(), bson.M{"_id": "evt-late"})
	require.NoError(t, err)
	assert.Zero(t, markers, "marker must be released after a failed increment")

	// Redelivery with a healthy store counts the click.
	repo.inc = repo.incDaily
	applied, err = repo.Apply(context.Background(), "evt-late", "slow01", day)
	require.NoError(t, err)
	assert.True(t, applied)

	var doc clickDailyDoc
	require.NoError(t, repo.daily.FindOne(context.Background(), bson.M{"code": "slow01", "date": "2025-02-01"}).Decode(&doc))
	assert.Equal(t, int64(1), doc.Count)
}
