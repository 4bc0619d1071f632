package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Studiobooks"`
		Port int    `envconfig:"PORT" default:"8080"`
		// Origins allowed to call the API from a browser.
		AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"studiobooks"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
		Password string `envconfig:"REDIS_PASSWORD" default:""`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	}

	MercadoPago struct {
		AccessToken   string        `envconfig:"MP_ACCESS_TOKEN"`
		BaseURL       string        `envconfig:"MP_BASE_URL" default:"https://api.mercadopago.com"`
		NotifyURL     string        `envconfig:"MP_NOTIFICATION_URL"`
		Timeout       time.Duration `envconfig:"MP_TIMEOUT" default:"10s"`
		RatePerSecond float64       `envconfig:"MP_RATE_PER_SECOND" default:"5"`
	}

	Webhook struct {
		MaxRetries int           `envconfig:"WEBHOOK_MAX_RETRIES" default:"8"`
		RetryDelay time.Duration `envconfig:"WEBHOOK_RETRY_DELAY" default:"1m"`
	}

	Cache struct {
		TTL          time.Duration `envconfig:"CACHE_TTL" default:"5m"`
		RefreshDelay time.Duration `envconfig:"CACHE_REFRESH_DELAY" default:"2s"`
	}

	Sweep struct {
		Cron string `envconfig:"SWEEP_CRON" default:"@daily"`
	}

	// Owner is the studio user the TUI works on behalf of.
	Owner struct {
		ID string `envconfig:"OWNER_ID"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
