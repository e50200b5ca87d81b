// Package worker runs background consumers that feed the snapshot engine.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"booking-pricing/internal/metrics"
	"booking-pricing/internal/model"
	"booking-pricing/internal/queue"
	"booking-pricing/internal/repository"
	"booking-pricing/internal/service"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	minReconnectDelay = time.Second
	maxReconnectDelay = 30 * time.Second
)

type outcome string

const (
	outcomeProcessed outcome = "processed"
	outcomeDuplicate outcome = "duplicate"
	outcomeRequeued  outcome = "requeued"
	outcomeRejected  outcome = "rejected"
)

// RepriceConsumer turns reprice requests into calculator snapshots.
type RepriceConsumer struct {
	url       string
	queueName string
	snapshots service.SnapshotService
	processed repository.ProcessedMessageRepository
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewRepriceConsumer(
	url, queueName string,
	snapshots service.SnapshotService,
	processed repository.ProcessedMessageRepository,
	m *metrics.Metrics,
	log zerolog.Logger,
) *RepriceConsumer {
	return &RepriceConsumer{
		url:       url,
		queueName: queueName,
		snapshots: snapshots,
		processed: processed,
		metrics:   m,
		log:       log.With().Str("component", "reprice-consumer").Str("queue", queueName).Logger(),
	}
}

// Run reconnects with capped exponential backoff until ctx is done.
func (c *RepriceConsumer) Run(ctx context.Context) error {
	delay := minReconnectDelay
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", delay).Msg("dial broker")
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
			if delay < maxReconnectDelay {
				delay *= 2
			}
			continue
		}
		delay = minReconnectDelay

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *RepriceConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("set qos")
	}
	if _, err := queue.DeclareQueue(ch, c.queueName); err != nil {
		return err
	}

	msgs, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.log.Info().Msg("consuming reprice requests")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.HandleDelivery(ctx, d)
		}
	}
}

// HandleDelivery acks or nacks d. Lock contention and version conflicts are
// requeued; everything else that fails is dropped.
func (c *RepriceConsumer) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	result := c.handle(ctx, d)
	c.metrics.RepriceMessages.WithLabelValues(string(result)).Inc()

	var err error
	switch result {
	case outcomeProcessed, outcomeDuplicate:
		err = d.Ack(false)
	case outcomeRequeued:
		err = d.Nack(false, true)
	default:
		err = d.Nack(false, false)
	}
	if err != nil {
		c.log.Error().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("settle delivery")
	}
}

func (c *RepriceConsumer) handle(ctx context.Context, d amqp.Delivery) outcome {
	var req queue.RepriceRequest
	if err := json.Unmarshal(d.Body, &req); err != nil || req.BookingID == 0 {
		c.log.Error().Err(err).Bytes("body", d.Body).Msg("malformed reprice request")
		return outcomeRejected
	}

	messageID := req.MessageID
	if messageID == "" {
		messageID = d.MessageId
	}
	log := c.log.With().Uint("booking_id", req.BookingID).Str("message_id", messageID).Logger()

	if messageID != "" {
		seen, err := c.processed.Exists(ctx, messageID)
		if err != nil {
			log.Error().Err(err).Msg("check processed message")
			return outcomeRequeued
		}
		if seen {
			log.Info().Msg("duplicate reprice request skipped")
			return outcomeDuplicate
		}
	}

	snapshot, err := c.snapshots.CreateSnapshotFromCalculator(ctx, service.SnapshotRequest{
		BookingID: req.BookingID,
		ActorID:   req.ActorID,
		Source:    model.SourceReprice,
		Note:      req.Note,
	})
	switch {
	case errors.Is(err, service.ErrSnapshotBusy), errors.Is(err, service.ErrSnapshotConflict):
		log.Warn().Err(err).Msg("reprice deferred")
		return outcomeRequeued
	case err != nil:
		log.Error().Err(err).Msg("reprice failed")
		return outcomeRejected
	}

	if messageID != "" {
		if err := c.processed.MarkProcessed(ctx, messageID, c.queueName); err != nil {
			log.Error().Err(err).Msg("mark message processed")
		}
	}
	log.Info().Int("version", snapshot.SequenceNumber).Msg("booking repriced")
	return outcomeProcessed
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
