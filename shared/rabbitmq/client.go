package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds RabbitMQ connection configuration
type Config struct {
	Host              string
	Port              int
	User              string
	Password          string
	VHost             string
	RetryAttempts     int
	RetryInterval     time.Duration
	Heartbeat         time.Duration
	ConnectionTimeout time.Duration
	PublishTimeout    time.Duration
	PublishConfirm    bool
}

// ErrNacked is returned when the broker refuses a confirmed publish.
var ErrNacked = errors.New("message was nacked by the broker")

// Client publishes messages to named queues on the default exchange. The
// connection and channel are opened on first use and re-opened whenever they
// are found closed. A single mutex serialises all channel use.
type Client struct {
	config *Config
	logger *slog.Logger
	dial   dialFunc

	mu       sync.Mutex
	conn     connection
	channel  channel
	declared map[string]struct{}
	closed   bool
}

// NewClient creates a RabbitMQ client. No connection is made until the first
// Publish or an explicit Connect.
func NewClient(config *Config, logger *slog.Logger) *Client {
	return newClient(config, logger, dialAMQP)
}

func newClient(config *Config, logger *slog.Logger, dial dialFunc) *Client {
	return &Client{
		config:   config,
		logger:   logger,
		dial:     dial,
		declared: make(map[string]struct{}),
	}
}

// URL builds the AMQP URI from the configuration.
func (c *Config) URL() string {
	vhost := c.VHost
	if vhost == "" {
		vhost = "/"
	}

	return amqp.URI{
		Scheme:   "amqp",
		Host:     c.Host,
		Port:     c.Port,
		Username: c.User,
		Password: c.Password,
		Vhost:    vhost,
	}.String()
}

// Connect eagerly opens the connection, retrying up to RetryAttempts times.
// It is meant for startup; Publish reconnects on its own.
func (c *Client) Connect(ctx context.Context) error {
	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		c.mu.Lock()
		_, err = c.ensureChannel()
		c.mu.Unlock()
		if err == nil {
			return nil
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryInterval):
			}
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
}

// ensureChannel returns an open channel, dialing or re-opening as needed.
// Callers must hold c.mu.
func (c *Client) ensureChannel() (channel, error) {
	if c.closed {
		return nil, errors.New("rabbitmq client is closed")
	}

	if c.channel != nil && !c.channel.IsClosed() && c.conn != nil && !c.conn.IsClosed() {
		return c.channel, nil
	}

	c.dropChannel()

	if c.conn == nil || c.conn.IsClosed() {
		if c.conn != nil {
			c.logger.Warn("RabbitMQ connection lost, reconnecting")
		}

		amqpConfig := amqp.Config{
			Heartbeat: c.config.Heartbeat,
			Locale:    "en_US",
		}
		if c.config.ConnectionTimeout > 0 {
			amqpConfig.Dial = amqp.DefaultDial(c.config.ConnectionTimeout)
		}

		conn, err := c.dial(c.config.URL(), amqpConfig)
		if err != nil {
			c.conn = nil
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		c.conn = conn

		c.logger.Info("Successfully connected to RabbitMQ",
			slog.String("host", c.config.Host),
			slog.Int("port", c.config.Port),
		)
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if c.config.PublishConfirm {
		if err := ch.Confirm(false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
		}
	}

	c.channel = ch
	return ch, nil
}

// dropChannel forgets the current channel and the queues declared on it.
// Callers must hold c.mu.
func (c *Client) dropChannel() {
	if c.channel != nil {
		if !c.channel.IsClosed() {
			_ = c.channel.Close()
		}
		c.channel = nil
	}
	c.declared = make(map[string]struct{})
}

// Publish declares queue (durable) if needed and publishes body to it on the
// default exchange. With PublishConfirm set, it returns only after the
// broker acknowledged the message.
func (c *Client) Publish(ctx context.Context, queue string, body []byte, messageID string) error {
	if c.config.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.PublishTimeout)
		defer cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}

	if _, ok := c.declared[queue]; !ok {
		_, err := ch.QueueDeclare(
			queue, // name
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			c.dropChannel()
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
		c.declared[queue] = struct{}{}
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now(),
	}

	if err := ch.Publish(ctx, "", queue, msg); err != nil {
		c.logger.Error("Failed to publish message to RabbitMQ",
			slog.String("queue", queue),
			slog.Any("error", err),
		)
		c.dropChannel()
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("Message published to RabbitMQ",
		slog.String("queue", queue),
		slog.String("message_id", messageID),
		slog.Int("body_size", len(body)),
	)

	return nil
}

// Close closes the RabbitMQ connection. Publish fails afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("Closing RabbitMQ connection")
	c.closed = true
	c.dropChannel()

	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}
	c.conn = nil

	c.logger.Info("RabbitMQ connection closed successfully")
	return nil
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.closed && c.conn != nil && !c.conn.IsClosed()
}
