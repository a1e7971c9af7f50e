package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// connection and channel narrow the amqp091 types to what the client uses so
// tests can swap in fakes.
type connection interface {
	Channel() (channel, error)
	IsClosed() bool
	Close() error
}

type channel interface {
	Confirm(noWait bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type dialFunc func(url string, cfg amqp.Config) (connection, error)

func dialAMQP(url string, cfg amqp.Config) (connection, error) {
	conn, err := amqp.DialConfig(url, cfg)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn: conn}, nil
}

type amqpConnection struct {
	conn *amqp.Connection
}

func (c *amqpConnection) Channel() (channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return &amqpChannel{ch: ch}, nil
}

func (c *amqpConnection) IsClosed() bool { return c.conn.IsClosed() }

func (c *amqpConnection) Close() error { return c.conn.Close() }

type amqpChannel struct {
	ch        *amqp.Channel
	confirmed bool
}

func (c *amqpChannel) Confirm(noWait bool) error {
	if err := c.ch.Confirm(noWait); err != nil {
		return err
	}
	c.confirmed = true
	return nil
}

func (c *amqpChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return c.ch.QueueDeclare(name, durable, autoDelete, exclusive, noWait, args)
}

// Publish waits for the broker ack when the channel is in confirm mode.
func (c *amqpChannel) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	if !c.confirmed {
		return c.ch.PublishWithContext(ctx, exchange, key, false, false, msg)
	}

	confirmation, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return err
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return ErrNacked
	}
	return nil
}

func (c *amqpChannel) IsClosed() bool { return c.ch.IsClosed() }

func (c *amqpChannel) Close() error { return c.ch.Close() }
