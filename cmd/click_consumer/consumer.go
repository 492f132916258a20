package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/IgorGrieder/tinylink/internal/events"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/logger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// clickRollup is implemented by *mongoStorage.ClickRollupRepository.
type clickRollup interface {
	Apply(ctx context.Context, eventID, code string, at time.Time) (bool, error)
}

// messageSource is the part of *kafka.Reader the consumer needs.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// consumer folds click events into the rollup. Offsets are committed only
// after the rollup accepted the event, so a crash replays it and the
// rollup's event-id check absorbs the repeat.
type consumer struct {
	source  messageSource
	rollup  clickRollup
	tracer  trace.Tracer
	opTTL   time.Duration
	backoff time.Duration
}

func newConsumer(source messageSource, rollup clickRollup, cfg consumerConfig) *consumer {
	return &consumer{
		source:  source,
		rollup:  rollup,
		tracer:  otel.Tracer("click-consumer"),
		opTTL:   cfg.operationTTL,
		backoff: cfg.consumeBackoff,
	}
}

func (c *consumer) run(ctx context.Context) {
	for {
		msg, err := c.source.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("failed to fetch kafka message", zap.Error(err))
			if !c.pause(ctx) {
				return
			}
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			logger.Error("failed to handle click event",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			if !c.pause(ctx) {
				return
			}
		}
	}
}

// handle applies and commits one message under a consumer span.
func (c *consumer) handle(ctx context.Context, msg kafka.Message) error {
	spanCtx, span := c.tracer.Start(contextFromKafkaHeaders(ctx, msg.Headers), "kafka.consume.click_recorded",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	if err := processMessage(spanCtx, msg, c.rollup, c.opTTL); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply click event failed")
		return err
	}
	if err := c.source.CommitMessages(spanCtx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit kafka offset failed")
		return err
	}
	return nil
}

// pause waits out the backoff and reports whether the consumer should go on.
func (c *consumer) pause(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.backoff):
		return true
	}
}

// processMessage returns nil for payloads that can never succeed so the
// offset moves past them.
func processMessage(ctx context.Context, msg kafka.Message, rollup clickRollup, operationTTL time.Duration) error {
	var event events.ClickRecorded
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Warn("invalid click event payload, skipping", zap.Error(err), zap.Int64("offset", msg.Offset))
		return nil
	}

	occurredAt, err := event.Validate()
	if err != nil {
		logger.Warn("invalid click event, skipping", zap.Error(err), zap.String("event_id", event.EventID))
		return nil
	}

	opCtx, cancel := context.WithTimeout(ctx, operationTTL)
	defer cancel()

	applied, err := rollup.Apply(opCtx, event.EventID, event.Code, occurredAt)
	if err != nil {
		return err
	}
	if !applied {
		logger.Debug("duplicate click event skipped",
			zap.String("event_id", event.EventID),
			zap.String("code", event.Code),
		)
	}
	return nil
}

func contextFromKafkaHeaders(parent context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		if key := strings.ToLower(strings.TrimSpace(h.Key)); key != "" {
			carrier.Set(key, string(h.Value))
		}
	}
	return otel.GetTextMapPropagator().Extract(parent, carrier)
}
