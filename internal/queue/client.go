// Package queue carries collector stats requests over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Client is a RabbitMQ connection bound to one durable queue.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *slog.Logger
}

var (
	_ StatsPublisher = (*Client)(nil)
	_ StatsConsumer  = (*Client)(nil)
)

// NewClient dials url and declares queueName.
func NewClient(url, queueName string, logger *slog.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queueName, err)
	}
	logger.Info("rabbitmq queue declared", "queue", q.Name, "messages", q.Messages)

	return &Client{conn: conn, channel: ch, queue: q, logger: logger}, nil
}

// Close closes the channel and the connection.
func (c *Client) Close() {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("close rabbitmq channel", "error", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("close rabbitmq connection", "error", err)
		}
	}
}

// PublishStatsRequest publishes req as a persistent JSON message.
func (c *Client) PublishStatsRequest(ctx context.Context, req StatsRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal stats request: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		publishCtx,
		"",           // exchange
		c.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish stats request: %w", err)
	}
	c.logger.Debug("stats request published", "queue", c.queue.Name, "user_id", req.UserID)
	return nil
}

// ConsumeStatsRequests registers a manual-ack consumer and dispatches messages
// to handler in a background goroutine. Malformed messages are dropped,
// failed ones are requeued.
func (c *Client) ConsumeStatsRequests(ctx context.Context, handler func(context.Context, StatsRequest) error) error {
	msgs, err := c.channel.Consume(
		c.queue.Name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}
	c.logger.Info("consumer registered", "queue", c.queue.Name)

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("delivery channel closed, stopping consumer")
					return
				}
				c.dispatch(ctx, msg, handler)
			case <-ctx.Done():
				c.logger.Info("context cancelled, stopping consumer")
				return
			}
		}
	}()

	return nil
}

func (c *Client) dispatch(ctx context.Context, msg amqp.Delivery, handler func(context.Context, StatsRequest) error) {
	var req StatsRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		c.logger.Error("malformed stats request", "error", err, "body", string(msg.Body))
		if err := msg.Nack(false, false); err != nil {
			c.logger.Error("nack malformed message", "error", err)
		}
		return
	}

	if err := handler(ctx, req); err != nil {
		c.logger.Error("stats request failed", "error", err, "user_id", req.UserID)
		if err := msg.Nack(false, true); err != nil {
			c.logger.Error("nack failed message", "error", err)
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("ack message", "error", err)
	}
}
