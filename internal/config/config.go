package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Ops      OpsConfig      `yaml:"ops"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// OpsConfig holds the health and metrics listener configuration
type OpsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// RabbitMQConfig holds RabbitMQ connection and queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host" validate:"required"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Queue      QueueConfig      `yaml:"queue"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name string `yaml:"name" validate:"required"`
	// Durable defaults to true; jobs must survive a broker restart.
	Durable *bool `yaml:"durable"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts" validate:"gte=0"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish settings
type PublishConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Confirm bool          `yaml:"confirm"`
}

// UpstreamConfig holds the addresses and client settings of the backend services
type UpstreamConfig struct {
	Timeout        time.Duration        `yaml:"timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Accounts       ServiceConfig        `yaml:"accounts"`
	Translation    ServiceConfig        `yaml:"translation"`
	Interaction    ServiceConfig        `yaml:"interaction"`
}

// ServiceConfig locates one upstream service
type ServiceConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
}

// CircuitBreakerConfig holds the per-service breaker settings
type CircuitBreakerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MaxRequests  uint32        `yaml:"max_requests"`
	Interval     time.Duration `yaml:"interval"`
	Timeout      time.Duration `yaml:"timeout"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio" validate:"gte=0,lte=1"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	Format       string `yaml:"format" validate:"omitempty,oneof=json console"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file, then applies environment
// overrides and defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	config.ApplyDefaults()

	return &config, nil
}

// ApplyEnv overrides deployment addresses and credentials from the
// environment. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ACCOUNTS_SERVICE_URL":    &c.Upstream.Accounts.BaseURL,
		"TRANSLATION_SERVICE_URL": &c.Upstream.Translation.BaseURL,
		"INTERACTION_SERVICE_URL": &c.Upstream.Interaction.BaseURL,
		"RABBITMQ_HOST":           &c.RabbitMQ.Host,
		"RABBITMQ_USER":           &c.RabbitMQ.User,
		"RABBITMQ_PASSWORD":       &c.RabbitMQ.Password,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"RABBITMQ_PORT": &c.RabbitMQ.Port,
		"SERVER_PORT":   &c.Server.Port,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q is not a number", key, v)
		}
		*dst = n
	}

	return nil
}

// ApplyDefaults fills every unset value with its default
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Ops.Port == 0 {
		c.Ops.Port = 9090
	}

	if c.RabbitMQ.Host == "" {
		c.RabbitMQ.Host = "localhost"
	}
	if c.RabbitMQ.Port == 0 {
		c.RabbitMQ.Port = 5672
	}
	if c.RabbitMQ.User == "" {
		c.RabbitMQ.User = "guest"
	}
	if c.RabbitMQ.Password == "" {
		c.RabbitMQ.Password = "guest"
	}
	if c.RabbitMQ.VHost == "" {
		c.RabbitMQ.VHost = "/"
	}
	if c.RabbitMQ.Queue.Name == "" {
		c.RabbitMQ.Queue.Name = "video_translation"
	}
	if c.RabbitMQ.Queue.Durable == nil {
		durable := true
		c.RabbitMQ.Queue.Durable = &durable
	}
	if c.RabbitMQ.Connection.RetryAttempts == 0 {
		c.RabbitMQ.Connection.RetryAttempts = 5
	}
	if c.RabbitMQ.Connection.RetryInterval == 0 {
		c.RabbitMQ.Connection.RetryInterval = 2 * time.Second
	}
	if c.RabbitMQ.Connection.Heartbeat == 0 {
		c.RabbitMQ.Connection.Heartbeat = 10 * time.Second
	}
	if c.RabbitMQ.Connection.ConnectionTimeout == 0 {
		c.RabbitMQ.Connection.ConnectionTimeout = 5 * time.Second
	}
	if c.RabbitMQ.Publish.Timeout == 0 {
		c.RabbitMQ.Publish.Timeout = 5 * time.Second
	}

	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 30 * time.Second
	}
	if c.Upstream.Accounts.BaseURL == "" {
		c.Upstream.Accounts.BaseURL = "http://127.0.0.1:8000"
	}
	if c.Upstream.Translation.BaseURL == "" {
		c.Upstream.Translation.BaseURL = "http://127.0.0.1:5050"
	}
	if c.Upstream.Interaction.BaseURL == "" {
		c.Upstream.Interaction.BaseURL = "http://127.0.0.1:8080"
	}

	cb := &c.Upstream.CircuitBreaker
	if cb.MaxRequests == 0 {
		cb.MaxRequests = 1
	}
	if cb.Interval == 0 {
		cb.Interval = time.Minute
	}
	if cb.Timeout == 0 {
		cb.Timeout = 30 * time.Second
	}
	if cb.MinRequests == 0 {
		cb.MinRequests = 5
	}
	if cb.FailureRatio == 0 {
		cb.FailureRatio = 0.6
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.App.Name == "" {
		c.App.Name = "api-gateway"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if d := c.RabbitMQ.Queue.Durable; d != nil && !*d {
		return fmt.Errorf("rabbitmq queue %q must be durable", c.RabbitMQ.Queue.Name)
	}

	if c.Ops.Enabled {
		if c.Ops.Port < MinPort || c.Ops.Port > MaxPort {
			return fmt.Errorf("invalid ops port: %d (must be between %d and %d)", c.Ops.Port, MinPort, MaxPort)
		}
		if c.Ops.Port == c.Server.Port {
			return fmt.Errorf("ops port must differ from server port %d", c.Server.Port)
		}
	}

	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}
