package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/video-gateway/shared/logger"
)

type fakeChannel struct {
	mu         sync.Mutex
	closed     bool
	confirmed  bool
	declared   []string
	durable    []bool
	published  []amqp.Publishing
	keys       []string
	exchanges  []string
	publishErr error
	declareErr error

	// delay holds each Publish open so overlapping callers can be observed.
	delay  time.Duration
	active atomic.Int32
	peak   atomic.Int32
}

func (f *fakeChannel) Confirm(bool) error {
	f.confirmed = true
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if f.declareErr != nil {
		return amqp.Queue{}, f.declareErr
	}
	f.declared = append(f.declared, name)
	f.durable = append(f.durable, durable)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) Publish(_ context.Context, exchange, key string, msg amqp.Publishing) error {
	n := f.active.Add(1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(f.delay)
	f.active.Add(-1)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.exchanges = append(f.exchanges, exchange)
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) IsClosed() bool { return f.closed }

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type fakeConnection struct {
	closed   bool
	channels []*fakeChannel
	next     func() *fakeChannel
}

func (f *fakeConnection) Channel() (channel, error) {
	ch := &fakeChannel{}
	if f.next != nil {
		ch = f.next()
	}
	f.channels = append(f.channels, ch)
	return ch, nil
}

func (f *fakeConnection) IsClosed() bool { return f.closed }

func (f *fakeConnection) Close() error {
	f.closed = true
	return nil
}

type fakeDialer struct {
	mu    sync.Mutex
	calls int
	err   error
	conns []*fakeConnection
}

func (d *fakeDialer) dial(string, amqp.Config) (connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	conn := &fakeConnection{}
	d.conns = append(d.conns, conn)
	return conn, nil
}

func testConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           5672,
		User:           "guest",
		Password:       "guest",
		RetryAttempts:  3,
		RetryInterval:  time.Millisecond,
		PublishTimeout: time.Second,
		PublishConfirm: true,
	}
}

func TestConfig_URL(t *testing.T) {
	tests := []struct {
		name      string
		vhost     string
		wantVHost string
	}{
		{name: "default vhost", vhost: "", wantVHost: "/"},
		{name: "named vhost", vhost: "videos", wantVHost: "videos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Host: "rabbit", Port: 5673, User: "app", Password: "s3cret", VHost: tt.vhost}

			uri, err := amqp.ParseURI(cfg.URL())
			require.NoError(t, err)
			assert.Equal(t, "rabbit", uri.Host)
			assert.Equal(t, 5673, uri.Port)
			assert.Equal(t, "app", uri.Username)
			assert.Equal(t, "s3cret", uri.Password)
			assert.Equal(t, tt.wantVHost, uri.Vhost)
		})
	}
}

func TestClient_Publish(t *testing.T) {
	t.Run("lazily connects and publishes a persistent message", func(t *testing.T) {
		dialer := &fakeDialer{}
		client := newClient(testConfig(), logger.NewDiscard().Logger, dialer.dial)

		require.NoError(t, client.Publish(context.Background(), "video_translation", []byte(`{"a":1}`), "req-1"))

		require.Equal(t, 1, dialer.calls)
		ch := dialer.conns[0].channels[0]
		assert.True(t, ch.confirmed)
		assert.Equal(t, []string{"video_translation"}, ch.declared)
		assert.Equal(t, []bool{true}, ch.durable)
		assert.Equal(t, []string{""}, ch.exchanges)
		assert.Equal(t, []string{"video_translation"}, ch.keys)

		msg := ch.published[0]
		assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
		assert.Equal(t, "application/json", msg.ContentType)
		assert.Equal(t, "req-1", msg.MessageId)
		assert.Equal(t, []byte(`{"a":1}`), msg.Body)
	})

	t.Run("reuses connection and declares each queue once", func(t *testing.T) {
		dialer := &fakeDialer{}
		client := newClient(testConfig(), logger.NewDiscard().Logger, dialer.dial)

		for i := 0; i < 3; i++ {
			require.NoError(t, client.Publish(context.Background(), "video_translation", []byte(`{}`), ""))
		}

		assert.Equal(t, 1, dialer.calls)
		ch := dialer.conns[0].channels[0]
		assert.Len(t, ch.declared, 1)
		assert.Len(t, ch.published, 3)
	})

	t.Run("reconnects after the connection is closed", func(t *testing.T) {
		dialer := &fakeDialer{}
		client := newClient(testConfig(), logger.NewDiscard().Logger, dialer.dial)

		require.NoError(t, client.Publish(context.Background(), "q", []byte(`{}`), ""))
		dialer.conns[0].closed = true
		require.NoError(t, client.Publish(context.Background(), "q", []byte(`{}`), ""))

		assert.Equal(t, 2, dialer.calls)
		assert.Equal(t, []string{"q"}, dialer.conns[1].channels[0].declared)
	})

	t.Run("reopens the channel after a publish failure", func(t *testing.T) {
		dialer := &fakeDialer{}
		client := newClient(testConfig(), logger.NewDiscard().Logger, dialer.dial)

		require.NoError(t, client.Publish(context.Background(), "q", []byte(`{}`), ""))
		first := dialer.conns[0].channels[0]
		first.publishErr = errors.New("channel/connection is not open")

		err := client.Publish(context.Background(), "q", []byte(`{}`), "")
		require.Error(t, err)
		assert.True(t, first.closed)

		require.NoError(t, client.Publish(context.Background(), "q", []byte(`{}`), ""))
		assert.Equal(t, 1, dialer.calls)
		assert.Len(t, dialer.conns[0].channels, 2)
	})

	t.Run("unreachable broker", func(t *testing.T) {
		cause := errors.New("dial tcp 127.0.0.1:5672: connect: connection refused")
		dialer := &fakeDialer{err: cause}
		client := newClient(testConfig(), logger.NewDiscard().Logger, dialer.dial)

		err := client.Publish(context.Background(), "q", []byte(`{}`), "")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.False(t, client.IsConnected())
	})

	t.Run("declare failure", func(t *testing.T) {
		dialer := &fakeDialer{}
		client := newClient(testConfig(), logger.NewDiscard().Logger, func(url string, cfg amqp.Config) (connection, error) {
			conn, _ := dialer.dial(url, cfg)
			conn.(*fakeConnection).next = func() *fakeChannel {
				return &fakeChannel{declareErr: errors.New("PRECONDITION_FAILED")}
			}
			return conn, nil
		})

		err := client.Publish(context.Background(), "q", []byte(`{}`), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to declare queue q")
	})

	t.Run("closed client refuses to publish", func(t *testing.T) {
		dialer := &fakeDialer{}
		client := newClient(testConfig(), logger.NewDiscard().Logger, dialer.dial)

		require.NoError(t, client.Publish(context.Background(), "q", []byte(`{}`), ""))
		require.NoError(t, client.Close())

		assert.True(t, dialer.conns[0].closed)
		assert.False(t, client.IsConnected())
		assert.Error(t, client.Publish(context.Background(), "q", []byte(`{}`), ""))
	})
}

func TestClient_ConcurrentPublish(t *testing.T) {
	const publishers = 50

	ch := &fakeChannel{delay: time.Millisecond}
	dialer := &fakeDialer{}
	client := newClient(testConfig(), logger.NewDiscard().Logger, func(url string, cfg amqp.Config) (connection, error) {
		conn, err := dialer.dial(url, cfg)
		if err != nil {
			return nil, err
		}
		conn.(*fakeConnection).next = func() *fakeChannel { return ch }
		return conn, nil
	})

	start := make(chan struct{})
	errs := make(chan error, publishers)
	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- client.Publish(context.Background(), "video_translation", []byte(`{}`), "")
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, dialer.calls)
	assert.Len(t, dialer.conns[0].channels, 1)
	assert.Equal(t, int32(1), ch.peak.Load(), "publishes overlapped on the shared channel")
	assert.Len(t, ch.published, publishers)
	assert.Equal(t, []string{"video_translation"}, ch.declared)
}

func TestClient_Connect(t *testing.T) {
	t.Run("retries until the broker answers", func(t *testing.T) {
		failures := 2
		dialer := &fakeDialer{}
		client := newClient(testConfig(), logger.NewDiscard().Logger, func(url string, cfg amqp.Config) (connection, error) {
			if failures > 0 {
				failures--
				return nil, errors.New("connection refused")
			}
			return dialer.dial(url, cfg)
		})

		require.NoError(t, client.Connect(context.Background()))
		assert.True(t, client.IsConnected())
	})

	t.Run("gives up after the configured attempts", func(t *testing.T) {
		dialer := &fakeDialer{err: errors.New("connection refused")}
		client := newClient(testConfig(), logger.NewDiscard().Logger, dialer.dial)

		err := client.Connect(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 3 attempts")
		assert.Equal(t, 3, dialer.calls)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		cfg := testConfig()
		cfg.RetryInterval = time.Hour
		dialer := &fakeDialer{err: errors.New("connection refused")}
		client := newClient(cfg, logger.NewDiscard().Logger, dialer.dial)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, client.Connect(ctx), context.Canceled)
		assert.Equal(t, 1, dialer.calls)
	})
}
