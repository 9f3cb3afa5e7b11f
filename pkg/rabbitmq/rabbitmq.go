package rabbitmq

import (
	"fmt"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Exchange and queue names.
const (
	OrderExchange = "order"
	OrderQueue    = "order_queue"
	SMSQueue      = "sms_queue"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// Publishes from concurrent requests share the channel.
	mu sync.Mutex
	lg *zap.Logger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient creates a new RabbitMQ client.
// It connects to RabbitMQ, sets up a channel and declares the topology:
// a topic exchange for order events bound to order_queue, and sms_queue.
func NewClient(cfg Config, lg *zap.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close() // Close connection if channel creation fails
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declare(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	lg.Info("RabbitMQ client connected", zap.String("exchange", OrderExchange))
	return &Client{
		conn:    conn,
		channel: ch,
		lg:      lg,
	}, nil
}

func declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		OrderExchange, // name
		"topic",       // kind
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", OrderExchange, err)
	}
	for _, name := range []string{OrderQueue, SMSQueue} {
		if _, err := ch.QueueDeclare(
			name,  // name
			true,  // durable (persists messages across broker restarts)
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			return fmt.Errorf("failed to declare %s: %w", name, err)
		}
	}
	if err := ch.QueueBind(OrderQueue, OrderExchange+".*", OrderExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s: %w", OrderQueue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
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
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publish sends a persistent JSON message. An empty exchange routes
// straight to the queue named by routingKey.
func (c *Client) Publish(exchange, routingKey string, body []byte) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	err := c.channel.Publish(
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // Make message persistent
			Timestamp:    time.Now(),
		})
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.lg.Debug("Message published", zap.String("exchange", exchange), zap.String("routing_key", routingKey))
	return nil
}

// ConsumeOrderEvents starts a goroutine that feeds every message on
// order_queue to messageHandler. A handler error requeues the message.
func (c *Client) ConsumeOrderEvents(messageHandler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		OrderQueue,
		"",    // consumer tag
		false, // auto-ack: set to false to manually acknowledge messages
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.lg.Info("Waiting for order events", zap.String("queue", OrderQueue))

	go func() {
		for msg := range msgs {
			if err := messageHandler(msg); err != nil {
				c.lg.Warn("Error processing message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
				// Requeue once; a redelivered failure is dropped to avoid a hot loop.
				if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
					c.lg.Warn("Error nacking message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				c.lg.Warn("Error acking message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(ackErr))
			}
		}
	}()

	return nil
}

// LogOrderEvent returns a handler that records order events in the log.
func LogOrderEvent(lg *zap.Logger) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		lg.Info("Order event",
			zap.String("routing_key", msg.RoutingKey),
			zap.ByteString("body", msg.Body),
		)
		return nil
	}
}
