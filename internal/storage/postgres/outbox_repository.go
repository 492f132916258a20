package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/IgorGrieder/tinylink/internal/events"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/db"
	"github.com/IgorGrieder/tinylink/internal/storage/postgres/sqlc"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	outboxStatusPending = "pending"
)

var ErrOutboxEventNotOwned = errors.New("outbox event not owned by worker")

type ClickOutboxRepository struct {
	queries *sqlc.Queries
}

type OutboxClickEvent struct {
	ID          string
	Code        string
	ClickID     int64
	OccurredAt  time.Time
	Referrer    string
	UserAgent   string
	TraceParent string
	TraceState  string
	Baggage     string
	Attempts    int
}

// Event builds the payload published for this row. The outbox id doubles as
// the event id so redeliveries can be deduplicated downstream.
func (e OutboxClickEvent) Event() events.ClickRecorded {
	return events.ClickRecorded{
		EventID:    e.ID,
		Code:       e.Code,
		ClickID:    e.ClickID,
		OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339Nano),
		Referrer:   e.Referrer,
		UserAgent:  e.UserAgent,
	}
}

type outboxClick struct {
	code       string
	clickID    int64
	occurredAt time.Time
	referrer   string
	userAgent  string
}

func NewClickOutboxRepository(p *db.Postgres) (*ClickOutboxRepository, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	return &ClickOutboxRepository{queries: sqlc.New(p.Pool)}, nil
}

// enqueue writes through q so the row joins the caller's transaction.
func (r *ClickOutboxRepository) enqueue(ctx context.Context, q *sqlc.Queries, c outboxClick) error {
	now := time.Now().UTC()
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	return q.EnqueueClickOutbox(ctx, sqlc.EnqueueClickOutboxParams{
		EventType:     events.ClickRecordedType,
		Code:          c.code,
		ClickID:       c.clickID,
		OccurredAt:    toTimestamptz(c.occurredAt),
		Referrer:      toNullableText(c.referrer),
		UserAgent:     toNullableText(c.userAgent),
		Traceparent:   toNullableText(carrier.Get("traceparent")),
		Tracestate:    toNullableText(carrier.Get("tracestate")),
		Baggage:       toNullableText(carrier.Get("baggage")),
		Status:        outboxStatusPending,
		NextAttemptAt: toTimestamptz(now),
		CreatedAt:     toTimestamptz(now),
	})
}

func (r *ClickOutboxRepository) ClaimPending(
	ctx context.Context,
	now time.Time,
	limit int64,
	workerID string,
	lease time.Duration,
) ([]OutboxClickEvent, error) {
	if limit <= 0 {
		limit = 1
	}
	if lease <= 0 {
		lease = 30 * time.Second
	}
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, errors.New("workerID must not be empty")
	}

	now = now.UTC()
	claimed := make([]OutboxClickEvent, 0, limit)
	for int64(len(claimed)) < limit {
		row, err := r.queries.ClaimNextOutboxEvent(ctx, sqlc.ClaimNextOutboxEventParams{
			UpdatedAt:           toTimestamptz(now),
			ProcessingOwner:     toNullableText(workerID),
			ProcessingExpiresAt: toTimestamptz(now.Add(lease)),
		})
		if errors.Is(err, pgx.ErrNoRows) {
			break
		}
		if err != nil {
			return nil, mapError(err)
		}

		id, err := uuidStringFromPg(row.ID)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, OutboxClickEvent{
			ID:          id,
			Code:        row.Code,
			ClickID:     row.ClickID,
			OccurredAt:  row.OccurredAt.Time.UTC(),
			Referrer:    nullableTextValue(row.Referrer),
			UserAgent:   nullableTextValue(row.UserAgent),
			TraceParent: nullableTextValue(row.Traceparent),
			TraceState:  nullableTextValue(row.Tracestate),
			Baggage:     nullableTextValue(row.Baggage),
			Attempts:    int(row.Attempts),
		})
	}

	return claimed, nil
}

func (r *ClickOutboxRepository) MarkSent(ctx context.Context, id string, workerID string) error {
	pgID, err := parsePgUUID(id)
	if err != nil {
		return err
	}
	rows, err := r.queries.MarkOutboxSent(ctx, sqlc.MarkOutboxSentParams{
		ID:              pgID,
		ProcessingOwner: toNullableText(workerID),
		SentAt:          toTimestamptz(time.Now().UTC()),
	})
	if err != nil {
		return mapError(err)
	}
	if rows == 0 {
		return ErrOutboxEventNotOwned
	}
	return nil
}

func (r *ClickOutboxRepository) MarkRetry(
	ctx context.Context,
	id string,
	workerID string,
	lastError string,
	nextAttemptAt time.Time,
) error {
	pgID, err := parsePgUUID(id)
	if err != nil {
		return err
	}
	rows, err := r.queries.MarkOutboxRetry(ctx, sqlc.MarkOutboxRetryParams{
		ID:              pgID,
		ProcessingOwner: toNullableText(workerID),
		LastError:       toNullableText(lastError),
		NextAttemptAt:   toTimestamptz(nextAttemptAt),
		UpdatedAt:       toTimestamptz(time.Now().UTC()),
	})
	if err != nil {
		return mapError(err)
	}
	if rows == 0 {
		return ErrOutboxEventNotOwned
	}
	return nil
}

func parsePgUUID(raw string) (pgtype.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{
		Bytes: id,
		Valid: true,
	}, nil
}

func uuidStringFromPg(v pgtype.UUID) (string, error) {
	if !v.Valid {
		return "", errors.New("invalid outbox uuid")
	}
	return uuid.UUID(v.Bytes).String(), nil
}
