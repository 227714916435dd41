// Package broker is a thin wrapper over RabbitMQ: durable queue and
// dead-letter declaration, publishing and delivery consumption.
// Reconnect handling is left to process supervision.
package broker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/finvault/walletd/internal/logger"
)

// Delivery is one received message. Ack removes it from the queue,
// Nack with requeue hands it back to the broker.
type Delivery interface {
	Body() []byte
	Ack() error
	Nack(requeue bool) error
}

type Client struct {
	conn   *amqp.Connection
	logger logger.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

func Connect(url string, l logger.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	return &Client{conn: conn, ch: ch, logger: l}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// DeclareQueue declares a durable queue
func (c *Client) DeclareQueue(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %q: %w", name, err)
	}

	return nil
}

// DeclareEventQueue declares a durable queue with a bound dead-letter
// queue. Messages rejected without requeue land on the dlq via the
// default exchange.
func (c *Client) DeclareEventQueue(queue, dlq string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.ch.QueueDeclare(dlq, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare dlq %q: %w", dlq, err)
	}

	_, err = c.ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlq,
	})
	if err != nil {
		return fmt.Errorf("declare queue %q: %w", queue, err)
	}

	return nil
}

// Publish sends a persistent message to the queue via the default exchange
func (c *Client) Publish(ctx context.Context, queue string, body []byte, headers map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table(headers),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %q: %w", queue, err)
	}

	return nil
}

// Consume opens a dedicated channel with the given prefetch and streams
// deliveries until the context is cancelled. The returned channel is
// closed when consumption stops.
func (c *Client) Consume(ctx context.Context, queue string, prefetch int) (<-chan Delivery, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("set prefetch: %w", err)
		}
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume %q: %w", queue, err)
	}

	out := make(chan Delivery)

	go func() {
		defer close(out)
		defer func() {
			if err := ch.Close(); err != nil {
				c.logger.Warn("Failed to close consumer channel", "queue", queue, "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				out <- amqpDelivery{d: d}
			}
		}
	}()

	return out, nil
}

type amqpDelivery struct {
	d amqp.Delivery
}

func (a amqpDelivery) Body() []byte {
	return a.d.Body
}

func (a amqpDelivery) Ack() error {
	return a.d.Ack(false)
}

func (a amqpDelivery) Nack(requeue bool) error {
	return a.d.Nack(false, requeue)
}
