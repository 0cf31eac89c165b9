package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"piggybank/internal/log"
)

var ErrChannelClosed = errors.New("message channel closed")

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *log.Logger
}

func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	_, err = c.channel.QueueDeclare(c.queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// Direct exchange; the routing key is the queue name.
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	// One run at a time per worker.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// PublishAllowanceRun enqueues a payout run for the day of scheduledFor.
func (c *Client) PublishAllowanceRun(ctx context.Context, scheduledFor time.Time) error {
	msg := NewAllowanceRunMessage(scheduledFor)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    msg.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.InfoContext(ctx, "published allowance run",
		"scheduled_for", msg.ScheduledFor.Format("2006-01-02"),
		"exchange", c.exchangeName,
		"queue", c.queueName,
	)
	return nil
}

type RunHandler func(ctx context.Context, msg *AllowanceRunMessage) error

// ConsumeAllowanceRuns blocks, handing each run message to handler until ctx
// is done or the channel closes. Messages are acked after handler succeeds.
// Cancelling ctx stops new deliveries; the one in progress runs to the end.
func (c *Client) ConsumeAllowanceRuns(ctx context.Context, handler RunHandler) error {
	msgs, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "started consuming allowance runs", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return ErrChannelClosed
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

// handleDelivery drops malformed messages and requeues runs whose handler
// failed. A started run ignores cancellation of ctx so that committed payouts
// are never requeued.
func (c *Client) handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler RunHandler) {
	ctx = context.WithoutCancel(ctx)
	msg, err := AllowanceRunMessageFromJSON(delivery.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to unmarshal message", log.FieldError, err)
		delivery.Nack(false, false)
		return
	}

	day := msg.ScheduledFor.Format("2006-01-02")
	if err := handler(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "failed to handle allowance run", log.FieldError, err, "scheduled_for", day)
		delivery.Nack(false, !delivery.Redelivered)
		return
	}

	delivery.Ack(false)
	c.logger.InfoContext(ctx, "processed allowance run", "scheduled_for", day)
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// ExponentialBackoff is the reconnect delay for attempt, doubling from one
// second and capped at thirty.
func ExponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		attempt = 5
	}
	delay := time.Second << attempt
	if delay > 30*time.Second {
		return 30 * time.Second
	}
	return delay
}

// IsConnectionError reports whether err means the broker connection is gone
// and a reconnect is worth trying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrChannelClosed) || errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{"connection refused", "connection closed", "EOF", "broken pipe", "use of closed network connection"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
