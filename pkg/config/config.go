// Package config holds the bridge configuration. Values are read from the
// environment with cleanenv; the command-line layer may override individual
// fields before validation.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full configuration surface of the bridge.
type Config struct {
	// Credentials for the alerting session.
	Username string `env:"HAMALERT_USERNAME"`
	Password string `env:"HAMALERT_PASSWORD"`

	// WebhookURL receives formatted notifications.
	WebhookURL string `env:"HAMALERT_WEBHOOK_URL"`

	// Session endpoint.
	Host string `env:"HAMALERT_HOST" env-default:"hamalert.org"`
	Port int    `env:"HAMALERT_PORT" env-default:"7300"`

	// Liveness reporting. An empty URL disables it.
	HeartbeatURL      string        `env:"HEARTBEAT_URL"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" env-default:"5m"`

	// Logging.
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`

	// Observability. Empty values disable the respective surface.
	MetricsAddr     string `env:"METRICS_ADDR"`
	TracingEndpoint string `env:"OTLP_ENDPOINT"`
	TracingInsecure bool   `env:"OTLP_INSECURE" env-default:"false"`

	// Session timing.
	DialTimeout time.Duration `env:"DIAL_TIMEOUT" env-default:"10s"`
	ReadTimeout time.Duration `env:"READ_TIMEOUT" env-default:"30s"`
	PromptDelay time.Duration `env:"PROMPT_DELAY" env-default:"1s"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

// Normalize applies canonical forms. The alerting service expects the
// username in capital letters.
func (c *Config) Normalize() {
	c.Username = strings.ToUpper(strings.TrimSpace(c.Username))
	c.Password = strings.TrimSpace(c.Password)
}

// Validate checks that required fields are set and sane.
func (c *Config) Validate() error {
	var problems []string

	if c.Username == "" {
		problems = append(problems, "username is required")
	}
	if c.Password == "" {
		problems = append(problems, "password is required")
	}
	if c.WebhookURL == "" {
		problems = append(problems, "webhook URL is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.HeartbeatURL != "" && c.HeartbeatInterval <= 0 {
		problems = append(problems, "heartbeat interval must be positive")
	}
	if c.ReadTimeout <= 0 {
		problems = append(problems, "read timeout must be positive")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Addr returns the session endpoint as host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
