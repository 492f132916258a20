package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IgorGrieder/tinylink/internal/infrastructure/logger"
	postgresStorage "github.com/IgorGrieder/tinylink/internal/storage/postgres"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxStoredErrorLen = 1000

type outboxStore interface {
	ClaimPending(ctx context.Context, now time.Time, limit int64, workerID string, lease time.Duration) ([]postgresStorage.OutboxClickEvent, error)
	MarkSent(ctx context.Context, id string, workerID string) error
	MarkRetry(ctx context.Context, id string, workerID string, lastError string, nextAttemptAt time.Time) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// publisher moves claimed outbox rows onto the click topic. A row is only
// marked sent after the broker acknowledged it, so delivery is at least once.
type publisher struct {
	store  outboxStore
	writer messageWriter
	cfg    workerConfig
	tracer trace.Tracer
	now    func() time.Time
}

func newPublisher(store outboxStore, writer messageWriter, cfg workerConfig) *publisher {
	return &publisher{
		store:  store,
		writer: writer,
		cfg:    cfg,
		tracer: otel.Tracer("outbox-worker"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// run drains the outbox until ctx is done. A full batch is followed by a
// short idle wait, an empty one by a poll tick.
func (p *publisher) run(ctx context.Context, pollInterval, idleWait time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		sent, err := p.publishBatch(ctx)
		if err != nil {
			logger.Error("failed to process outbox batch", zap.Error(err))
		}

		wait := ticker.C
		if sent > 0 {
			if idleWait <= 0 {
				continue
			}
			wait = time.After(idleWait)
		}

		select {
		case <-ctx.Done():
		case <-wait:
		}
	}
}

// publishBatch claims one batch and returns how many rows were marked sent.
func (p *publisher) publishBatch(ctx context.Context) (int, error) {
	batch, err := p.store.ClaimPending(ctx, p.now(), int64(p.cfg.batchSize), p.cfg.workerID, p.cfg.claimLease)
	if err != nil {
		return 0, fmt.Errorf("claim outbox batch: %w", err)
	}

	sent := 0
	for _, ev := range batch {
		if p.publishOne(ctx, ev) {
			sent++
		}
	}
	return sent, nil
}

func (p *publisher) publishOne(ctx context.Context, ev postgresStorage.OutboxClickEvent) bool {
	value, err := json.Marshal(ev.Event())
	if err != nil {
		logger.Error("failed to marshal outbox event", zap.Error(err), zap.String("event_id", ev.ID))
		p.scheduleRetry(ctx, ev, err)
		return false
	}

	carrier := outboxEventCarrier(ev)
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)
	spanCtx, span := p.tracer.Start(parentCtx, "kafka.publish.click_recorded",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", p.cfg.kafkaTopic),
			attribute.String("messaging.message.id", ev.ID),
			attribute.String("messaging.kafka.message_key", ev.Code),
		),
	)
	defer span.End()
	otel.GetTextMapPropagator().Inject(spanCtx, carrier)

	writeCtx, cancel := context.WithTimeout(spanCtx, p.cfg.writeTimeout)
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:     []byte(ev.Code),
		Value:   value,
		Time:    ev.OccurredAt.UTC(),
		Headers: carrierToKafkaHeaders(carrier),
	})
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka publish failed")
		delay := p.scheduleRetry(ctx, ev, err)
		logger.Warn("failed to publish outbox event",
			zap.Error(err),
			zap.String("event_id", ev.ID),
			zap.String("code", ev.Code),
			zap.Duration("retry_in", delay),
		)
		return false
	}

	if err := p.store.MarkSent(ctx, ev.ID, p.cfg.workerID); err != nil {
		// The message is already on the topic; the consumer drops the
		// duplicate when the lease expires and the row is published again.
		span.RecordError(err)
		span.SetStatus(codes.Error, "mark sent failed")
		logger.Error("failed to mark outbox event as sent", zap.Error(err), zap.String("event_id", ev.ID))
		return false
	}
	return true
}

func (p *publisher) scheduleRetry(ctx context.Context, ev postgresStorage.OutboxClickEvent, cause error) time.Duration {
	delay := backoffDelay(p.cfg.retryBase, p.cfg.retryMax, ev.Attempts+1)
	if err := p.store.MarkRetry(ctx, ev.ID, p.cfg.workerID, truncateErr(cause), p.now().Add(delay)); err != nil {
		logger.Error("failed to mark outbox retry", zap.Error(err), zap.String("event_id", ev.ID))
	}
	return delay
}

// backoffDelay doubles base once per attempt, capped at max.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	delay := base
	for range attempt {
		if delay >= max/2 {
			return max
		}
		delay *= 2
	}
	return min(delay, max)
}

func truncateErr(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxStoredErrorLen {
		return msg[:maxStoredErrorLen]
	}
	return msg
}

func outboxEventCarrier(ev postgresStorage.OutboxClickEvent) propagation.MapCarrier {
	carrier := propagation.MapCarrier{}
	for key, value := range map[string]string{
		"traceparent": ev.TraceParent,
		"tracestate":  ev.TraceState,
		"baggage":     ev.Baggage,
	} {
		if value = strings.TrimSpace(value); value != "" {
			carrier.Set(key, value)
		}
	}
	return carrier
}

func carrierToKafkaHeaders(carrier propagation.MapCarrier) []kafka.Header {
	headers := make([]kafka.Header, 0, len(carrier))
	for key, value := range carrier {
		if strings.TrimSpace(value) == "" {
			continue
		}
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	return headers
}
