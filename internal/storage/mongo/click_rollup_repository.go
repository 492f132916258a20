package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/IgorGrieder/tinylink/internal/infrastructure/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	dailyCollection     = "clicks_daily"
	processedCollection = "processed_click_events"

	processedRetention = 30 * 24 * time.Hour
	releaseTimeout     = 5 * time.Second
)

// ClickRollupRepository keeps per-code daily click counts fed by the
// click.recorded stream. Each event is counted at most once.
type ClickRollupRepository struct {
	daily     *mongo.Collection
	processed *mongo.Collection
	// inc applies the daily increment; replaced in tests to force failures.
	inc func(ctx context.Context, code string, at time.Time) error
}

type clickDailyDoc struct {
	Code  string `bson:"code"`
	Date  string `bson:"date"` // YYYY-MM-DD (UTC)
	Count int64  `bson:"count"`
}

type processedEventDoc struct {
	EventID     string    `bson:"_id"`
	Code        string    `bson:"code"`
	ProcessedAt time.Time `bson:"processed_at"`
}

func NewClickRollupRepository(ctx context.Context, m *db.Mongo) (*ClickRollupRepository, error) {
	repo := &ClickRollupRepository{
		daily:     m.Collection(dailyCollection),
		processed: m.Collection(processedCollection),
	}
	repo.inc = repo.incDaily

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := repo.daily.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_code_date"),
		},
		{
			Keys:    bson.D{{Key: "date", Value: -1}},
			Options: options.Index().SetName("date_desc"),
		},
	})
	if err != nil {
		return nil, err
	}

	_, err = repo.processed.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "processed_at", Value: 1}},
		Options: options.Index().
			SetName("processed_at_ttl").
			SetExpireAfterSeconds(int32(processedRetention / time.Second)),
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

// Apply counts one click for code on the UTC date of at. It returns false
// when eventID was already applied.
func (r *ClickRollupRepository) Apply(ctx context.Context, eventID, code string, at time.Time) (bool, error) {
	_, err := r.processed.InsertOne(ctx, processedEventDoc{
		EventID:     eventID,
		Code:        code,
		ProcessedAt: time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := r.inc(ctx, code, at); err != nil {
		if relErr := r.release(ctx, eventID); relErr != nil {
			return false, fmt.Errorf("%w (marker release: %w)", err, relErr)
		}
		return false, err
	}
	return true, nil
}

// release drops the marker of an event whose increment failed so a
// redelivery can count it. It runs even when ctx already expired, which is
// the usual reason the increment failed.
func (r *ClickRollupRepository) release(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	_, err := r.processed.DeleteOne(ctx, bson.M{"_id": eventID})
	return err
}

func (r *ClickRollupRepository) incDaily(ctx context.Context, code string, at time.Time) error {
	date := dateString(at)

	_, err := r.daily.UpdateOne(
		ctx,
		bson.M{"code": code, "date": date},
		bson.M{
			"$inc": bson.M{"count": 1},
			"$setOnInsert": bson.M{
				"code": code,
				"date": date,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func dateString(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
