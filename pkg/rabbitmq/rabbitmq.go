// Package rabbitmq publishes and consumes message events over AMQP.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"socialhub/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	amqp "github.com/streadway/amqp"
)

// DefaultQueue receives every message.sent event.
const DefaultQueue = "message_events"

// EventMessageSent is the AMQP type of a published MessageSentEvent.
const EventMessageSent = "message.sent"

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     zerolog.Logger

	mu sync.Mutex // guards channel publishes
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// NewClient dials the broker, opens a channel and declares the event queue.
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	queue := cfg.Queue
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareQueue(ch, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Info().Str("queue", queue).Msg("rabbitmq connected")

	return &Client{
		conn:    conn,
		channel: ch,
		queue:   queue,
		log:     log,
	}, nil
}

func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return q, fmt.Errorf("failed to declare %s: %w", name, err)
	}
	return q, nil
}

// Close closes the channel and then the connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ping reports whether the broker connection is still open.
func (c *Client) Ping(context.Context) error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// PublishMessageSent publishes event as persistent JSON to the event queue.
func (c *Client) PublishMessageSent(ctx context.Context, event models.MessageSentEvent) error {
	if c.channel == nil {
		return errors.New("rabbitmq channel is not available")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := newPublishing(event, time.Now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	err = c.channel.Publish("", c.queue, false, false, msg)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message event: %w", err)
	}

	c.log.Debug().
		Str("amqp_message_id", msg.MessageId).
		Uint("message_id", event.MessageID).
		Msg("message event published")
	return nil
}

func newPublishing(event models.MessageSentEvent, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode message event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         EventMessageSent,
		Timestamp:    now,
		Body:         body,
	}, nil
}

// Handler processes one decoded event. A non-nil error requeues the delivery.
type Handler func(ctx context.Context, event models.MessageSentEvent) error

// ConsumeMessageEvents delivers events from the queue to handler until ctx
// is done or the channel closes.
func (c *Client) ConsumeMessageEvents(ctx context.Context, handler Handler) error {
	if c.channel == nil {
		return errors.New("rabbitmq channel is not available for consumption")
	}

	c.mu.Lock()
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.Info().Str("queue", c.queue).Msg("waiting for message events")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					c.log.Warn().Msg("message event consumer stopped")
					return
				}
				c.handleDelivery(ctx, d, handler)
			}
		}
	}()
	return nil
}

// handleDelivery acks processed deliveries, drops undecodable ones and
// requeues those the handler failed on.
func (c *Client) handleDelivery(ctx context.Context, d amqp.Delivery, handler Handler) {
	var event models.MessageSentEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		c.log.Error().Err(err).Uint64("tag", d.DeliveryTag).Msg("discarding malformed message event")
		if err := d.Nack(false, false); err != nil {
			c.log.Error().Err(err).Uint64("tag", d.DeliveryTag).Msg("nack failed")
		}
		return
	}

	if err := handler(ctx, event); err != nil {
		c.log.Warn().Err(err).Uint64("tag", d.DeliveryTag).Msg("message event handler failed, requeueing")
		if err := d.Nack(false, true); err != nil {
			c.log.Error().Err(err).Uint64("tag", d.DeliveryTag).Msg("nack failed")
		}
		return
	}

	if err := d.Ack(false); err != nil {
		c.log.Error().Err(err).Uint64("tag", d.DeliveryTag).Msg("ack failed")
	}
}

// LogMessageEvent is a Handler that records each event.
func LogMessageEvent(log zerolog.Logger) Handler {
	return func(_ context.Context, event models.MessageSentEvent) error {
		log.Info().
			Uint("message_id", event.MessageID).
			Uint("sender_id", event.SenderID).
			Uint("receiver_id", event.ReceiverID).
			Str("sender", event.Sender).
			Msg("message delivered")
		return nil
	}
}
