// Package consumer implements at-least-once message handling with
// idempotency checks, capped exponential retry and dead-lettering.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/finvault/walletd/internal/broker"
	"github.com/finvault/walletd/internal/events"
	"github.com/finvault/walletd/internal/idempotency"
	"github.com/finvault/walletd/internal/logger"
)

const (
	defaultMaxRetries  = 5
	defaultBackoffBase = time.Second
	defaultPrefetch    = 10

	maxBackoff = 5 * time.Minute
)

// HandlerFunc processes one envelope. Returning an error triggers a
// retry, or dead-lettering once the attempt budget is spent.
type HandlerFunc func(ctx context.Context, env events.Envelope) error

type messageBroker interface {
	DeclareEventQueue(queue, dlq string) error
	Publish(ctx context.Context, queue string, body []byte, headers map[string]any) error
	Consume(ctx context.Context, queue string, prefetch int) (<-chan broker.Delivery, error)
}

type Config struct {
	Queue string

	// DLQ defaults to Queue + ".dlq"
	DLQ string

	// MaxRetries is the total attempt budget per message
	MaxRetries int

	// BackoffBase is doubled per attempt, capped at five minutes
	BackoffBase time.Duration

	Prefetch int
}

type Consumer struct {
	cfg     Config
	broker  messageBroker
	store   idempotency.Store
	handler HandlerFunc
	logger  logger.Logger
}

func New(cfg Config, b messageBroker, store idempotency.Store, l logger.Logger, handler HandlerFunc) *Consumer {
	if cfg.DLQ == "" {
		cfg.DLQ = cfg.Queue + ".dlq"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = defaultPrefetch
	}

	return &Consumer{
		cfg:     cfg,
		broker:  b,
		store:   store,
		handler: handler,
		logger:  l.With("queue", cfg.Queue),
	}
}

// Run declares the queues and consumes until the context is cancelled
// or the delivery stream closes. Handler errors never escape: every
// message ends acknowledged, requeued or dead-lettered.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.broker.DeclareEventQueue(c.cfg.Queue, c.cfg.DLQ); err != nil {
		return fmt.Errorf("declare queues: %w", err)
	}

	deliveries, err := c.broker.Consume(ctx, c.cfg.Queue, c.cfg.Prefetch)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.Info("Consumer started", "dlq", c.cfg.DLQ, "max_retries", c.cfg.MaxRetries)

	for d := range deliveries {
		c.process(ctx, d)
	}

	c.logger.Info("Consumer stopped")
	return nil
}

func (c *Consumer) process(ctx context.Context, d broker.Delivery) {
	var env events.Envelope
	if err := json.Unmarshal(d.Body(), &env); err != nil || env.MessageID == "" {
		// A malformed message cannot heal itself, retrying is pointless
		c.logger.Warn("Dead-lettering malformed message", "error", err)
		if dlqErr := c.deadLetterRaw(ctx, d.Body(), "malformed envelope"); dlqErr != nil {
			c.logger.Error("Failed to dead-letter malformed message, requeueing", "error", dlqErr)
			c.nackRequeue(d)
			return
		}
		c.ack(d)
		return
	}

	log := c.logger.With("message_id", env.MessageID, "trace_id", env.TraceID, "event_type", env.EventType)

	processed, err := c.store.IsProcessed(ctx, env.MessageID)
	if err != nil {
		log.Error("Idempotency store unavailable, requeueing", "error", err)
		c.nackRequeue(d)
		return
	}
	if processed {
		log.Debug("Skipping already processed message")
		c.ack(d)
		return
	}

	locked, err := c.store.AcquireLock(ctx, env.MessageID, env.TraceID)
	if err != nil {
		log.Error("Failed to acquire idempotency lock, requeueing", "error", err)
		c.nackRequeue(d)
		return
	}
	if !locked {
		// Another worker is mid-flight on this message
		log.Debug("Message locked elsewhere, requeueing")
		c.nackRequeue(d)
		return
	}

	handlerErr := c.handler(ctx, env)

	if handlerErr == nil {
		if err := c.store.MarkProcessed(ctx, env.MessageID, ""); err != nil {
			// Worst case the message is handled twice on redelivery,
			// which the handler must tolerate anyway
			log.Error("Failed to mark message processed", "error", err)
		}
		c.ack(d)
		return
	}

	if err := c.store.ReleaseLock(ctx, env.MessageID, env.TraceID); err != nil {
		log.Error("Failed to release idempotency lock", "error", err)
	}

	env.Attempts++

	var pubErr error
	if env.Attempts >= c.cfg.MaxRetries {
		log.Error("Retries exhausted, dead-lettering", "attempts", env.Attempts, "error", handlerErr)
		pubErr = c.deadLetterEnvelope(ctx, env, handlerErr)
	} else {
		log.Warn("Handler failed, requeueing", "attempts", env.Attempts, "error", handlerErr)
		pubErr = c.republish(ctx, env)
	}
	if pubErr != nil {
		// The replacement never made it out, so the original must stay
		// in the queue or the message is lost
		log.Error("Failed to hand the message back to the broker, requeueing original", "error", pubErr)
		c.nackRequeue(d)
		return
	}

	// The original delivery is acked only once its replacement exists:
	// the retry is a new message carrying the incremented attempt counter
	c.ack(d)
}

// republish sends the envelope back to the queue as a fresh message.
// The backoff delay is advisory: brokers without delayed delivery
// redeliver immediately, which the protocol tolerates because attempts
// ride in the envelope.
func (c *Consumer) republish(ctx context.Context, env events.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal retry envelope: %w", err)
	}

	headers := map[string]any{
		"x-delay": c.backoff(env.Attempts).Milliseconds(),
	}

	if err := c.broker.Publish(ctx, c.cfg.Queue, body, headers); err != nil {
		return fmt.Errorf("republish: %w", err)
	}

	return nil
}

func (c *Consumer) deadLetterEnvelope(ctx context.Context, env events.Envelope, cause error) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal dlq envelope: %w", err)
	}

	headers := map[string]any{
		"x-failure-reason": cause.Error(),
		"x-failed-at":      time.Now().UTC().Format(time.RFC3339),
	}

	if err := c.broker.Publish(ctx, c.cfg.DLQ, body, headers); err != nil {
		return fmt.Errorf("dead-letter: %w", err)
	}

	return nil
}

func (c *Consumer) deadLetterRaw(ctx context.Context, body []byte, reason string) error {
	headers := map[string]any{
		"x-failure-reason": reason,
		"x-failed-at":      time.Now().UTC().Format(time.RFC3339),
	}

	if err := c.broker.Publish(ctx, c.cfg.DLQ, body, headers); err != nil {
		return fmt.Errorf("dead-letter: %w", err)
	}

	return nil
}

func (c *Consumer) backoff(attempts int) time.Duration {
	d := c.cfg.BackoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}

	return d
}

func (c *Consumer) ack(d broker.Delivery) {
	if err := d.Ack(); err != nil {
		c.logger.Error("Failed to ack delivery", "error", err)
	}
}

func (c *Consumer) nackRequeue(d broker.Delivery) {
	if err := d.Nack(true); err != nil {
		c.logger.Error("Failed to nack delivery", "error", err)
	}
}
