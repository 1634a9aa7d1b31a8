package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN          string        `env:"DATABASE_DSN,required=true"`
	RabbitMQURL          string        `env:"RABBITMQ_URL,required=true"`
	RedisURL             string        `env:"REDIS_URL,required=true"`
	EPPGatewayURL        string        `env:"EPP_GATEWAY_URL,required=true"`
	EPPAuthToken         string        `env:"EPP_AUTH_TOKEN,required=true"`
	IntlAPIURL           string        `env:"INTL_API_URL,required=true"`
	IntlAPIKey           string        `env:"INTL_API_KEY,required=true"`
	NotifyWebhookURL     string        `env:"NOTIFY_WEBHOOK_URL"`
	DefaultNameservers   string        `env:"DEFAULT_NAMESERVERS"`
	MaxRegistrationRetry int           `env:"MAX_REGISTRATION_RETRIES,default=3"`
	RetryDelay           time.Duration `env:"RETRY_DELAY,default=1h"`
	RetryScanInterval    time.Duration `env:"RETRY_SCAN_INTERVAL,default=30s"`
	RateLimitPerSec      int           `env:"PROVIDER_RATE_LIMIT_PER_SEC,default=10"`
	WorkerConcurrency    int           `env:"WORKER_CONCURRENCY,default=4"`
	APIPort              int           `env:"API_PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,default=info"`
}

// defaultNameservers cannot live in the struct tag: go-env splits tag
// options on commas.
const defaultNameservers = "ns1.registrar.rw,ns2.registrar.rw"

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if strings.TrimSpace(cfg.DefaultNameservers) == "" {
		cfg.DefaultNameservers = defaultNameservers
	}
	return &cfg, nil
}

// DefaultNameserverList splits the configured default nameservers into an
// ordered list, dropping empty entries.
func (c *Config) DefaultNameserverList() []string {
	parts := strings.Split(c.DefaultNameservers, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}
