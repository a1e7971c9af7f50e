package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "rabbitmq", cfg.RabbitMQ.Host)
				assert.Equal(t, "video_translation", cfg.RabbitMQ.Queue.Name)
				require.NotNil(t, cfg.RabbitMQ.Queue.Durable)
				assert.True(t, *cfg.RabbitMQ.Queue.Durable)
				assert.True(t, cfg.RabbitMQ.Publish.Confirm)
				assert.Equal(t, 3*time.Second, cfg.RabbitMQ.Publish.Timeout)
				assert.Equal(t, 20*time.Second, cfg.Upstream.Timeout)
				assert.Equal(t, uint32(10), cfg.Upstream.CircuitBreaker.MinRequests)
				assert.Equal(t, "http://accounts:8000", cfg.Upstream.Accounts.BaseURL)
				assert.Equal(t, "http://interaction:8080", cfg.Upstream.Interaction.BaseURL)
				assert.Equal(t, "api-gateway", cfg.App.Name)
				require.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("testdata/minimal.yaml")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 9090, cfg.Ops.Port)
	assert.Equal(t, "localhost", cfg.RabbitMQ.Host)
	assert.Equal(t, 5672, cfg.RabbitMQ.Port)
	assert.Equal(t, "video_translation", cfg.RabbitMQ.Queue.Name)
	require.NotNil(t, cfg.RabbitMQ.Queue.Durable)
	assert.True(t, *cfg.RabbitMQ.Queue.Durable)
	assert.Equal(t, 5*time.Second, cfg.RabbitMQ.Publish.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Upstream.Accounts.BaseURL)
	assert.Equal(t, "http://127.0.0.1:5050", cfg.Upstream.Translation.BaseURL)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.Upstream.Interaction.BaseURL)
	assert.Equal(t, 0.6, cfg.Upstream.CircuitBreaker.FailureRatio)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoad_QueueDurability(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "named queue without durable flag",
			filePath: "testdata/named_queue.yaml",
			wantErr:  false,
		},
		{
			name:      "queue declared non-durable",
			filePath:  "testdata/transient_queue.yaml",
			wantErr:   true,
			errString: "must be durable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)
			require.NoError(t, err)
			assert.Equal(t, "video_translation", cfg.RabbitMQ.Queue.Name)

			err = cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg.RabbitMQ.Queue.Durable)
				assert.True(t, *cfg.RabbitMQ.Queue.Durable)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ACCOUNTS_SERVICE_URL", "http://accounts.internal:8000")
	t.Setenv("RABBITMQ_HOST", "broker.internal")
	t.Setenv("RABBITMQ_PORT", "5673")
	t.Setenv("SERVER_PORT", "8081")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "http://accounts.internal:8000", cfg.Upstream.Accounts.BaseURL)
	assert.Equal(t, "http://translation-status:5050", cfg.Upstream.Translation.BaseURL)
	assert.Equal(t, "broker.internal", cfg.RabbitMQ.Host)
	assert.Equal(t, 5673, cfg.RabbitMQ.Port)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestConfig_ApplyEnv(t *testing.T) {
	env := map[string]string{"RABBITMQ_PORT": "five"}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	var cfg Config
	err := cfg.ApplyEnv(lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid RABBITMQ_PORT")
}

func validConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Ops:    OpsConfig{Enabled: true, Port: 9090},
		RabbitMQ: RabbitMQConfig{
			Host:  "localhost",
			Port:  5672,
			Queue: QueueConfig{Name: "video_translation"},
		},
		Upstream: UpstreamConfig{
			Accounts:    ServiceConfig{BaseURL: "http://127.0.0.1:8000"},
			Translation: ServiceConfig{BaseURL: "http://127.0.0.1:5050"},
			Interaction: ServiceConfig{BaseURL: "http://127.0.0.1:8080"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid rabbitmq port",
			mutate:    func(c *Config) { c.RabbitMQ.Port = -1 },
			wantErr:   true,
			errString: "invalid rabbitmq port",
		},
		{
			name:      "ops port clashes with server port",
			mutate:    func(c *Config) { c.Ops.Port = c.Server.Port },
			wantErr:   true,
			errString: "ops port must differ",
		},
		{
			name: "disabled ops listener is not checked",
			mutate: func(c *Config) {
				c.Ops.Enabled = false
				c.Ops.Port = 0
			},
			wantErr: false,
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "Config.RabbitMQ.Host",
		},
		{
			name:      "empty queue name",
			mutate:    func(c *Config) { c.RabbitMQ.Queue.Name = "" },
			wantErr:   true,
			errString: "Config.RabbitMQ.Queue.Name",
		},
		{
			name: "non-durable queue",
			mutate: func(c *Config) {
				durable := false
				c.RabbitMQ.Queue.Durable = &durable
			},
			wantErr:   true,
			errString: `rabbitmq queue "video_translation" must be durable`,
		},
		{
			name:      "upstream url is not a url",
			mutate:    func(c *Config) { c.Upstream.Accounts.BaseURL = "accounts" },
			wantErr:   true,
			errString: `Config.Upstream.Accounts.BaseURL failed on "url"`,
		},
		{
			name:      "failure ratio out of range",
			mutate:    func(c *Config) { c.Upstream.CircuitBreaker.FailureRatio = 1.5 },
			wantErr:   true,
			errString: "FailureRatio",
		},
		{
			name:      "unknown log format",
			mutate:    func(c *Config) { c.Logging.Format = "xml" },
			wantErr:   true,
			errString: "Config.Logging.Format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
