package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
)

type Config struct {
	BFMR    BFMRConfig    `envPrefix:"BFMR_"`
	Email   EmailConfig   `envPrefix:"EMAIL_"`
	Resend  ResendConfig  `envPrefix:"RESEND_"`
	Kafka   KafkaConfig   `envPrefix:"KAFKA_"`
	State   StateConfig   `envPrefix:"STATE_"`
	Monitor MonitorConfig `envPrefix:"MONITOR_"`
	Metrics MetricsConfig `envPrefix:"METRICS_"`
	Log     LogConfig     `envPrefix:"LOG_"`
}

type BFMRConfig struct {
	APIKey       string        `env:"API_KEY" validate:"required"`
	APISecret    string        `env:"API_SECRET" validate:"required"`
	BaseURL      string        `env:"BASE_URL" envDefault:"https://api.bfmr.com" validate:"required,url"`
	DealsPath    string        `env:"DEALS_PATH" envDefault:"/api/v2/deals"`
	KeyHeader    string        `env:"KEY_HEADER" envDefault:"API-KEY" validate:"required"`
	SecretHeader string        `env:"SECRET_HEADER" envDefault:"API-SECRET" validate:"required"`
	MaxAttempts  int           `env:"MAX_ATTEMPTS" envDefault:"3" validate:"min=1"`
	RetryDelay   time.Duration `env:"RETRY_DELAY" envDefault:"5s"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s" validate:"gt=0"`
	ViewAllURL   string        `env:"VIEW_ALL_URL" envDefault:"https://www.buyformeretail.com/deals"`
}

type EmailConfig struct {
	// Transports is a comma separated list of: smtp, resend, kafka, log.
	Transports []string      `env:"TRANSPORTS" envDefault:"smtp" validate:"min=1,dive,oneof=smtp resend kafka log"`
	SMTPServer string        `env:"SMTP_SERVER" envDefault:"smtp.gmail.com"`
	SMTPPort   int           `env:"SMTP_PORT" envDefault:"587"`
	From       string        `env:"FROM"`
	To         string        `env:"TO"`
	Password   string        `env:"PASSWORD"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type ResendConfig struct {
	APIKey  string `env:"API_KEY"`
	BaseURL string `env:"BASE_URL" envDefault:"https://api.resend.com"`
}

type KafkaConfig struct {
	Brokers []string `env:"BROKERS"`
	Topic   string   `env:"TOPIC" envDefault:"bfmr.deals.reportable"`
}

type StateConfig struct {
	Backend       string `env:"BACKEND" envDefault:"file" validate:"oneof=file sqlite mongodb"`
	File          string `env:"FILE" envDefault:"last_run_deals.json"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"deal_monitor.db"`
	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"deal_monitor"`
	Key           string `env:"KEY" envDefault:"bfmr"`
}

type MonitorConfig struct {
	RetailerMatch []string `env:"RETAILER_MATCH" envDefault:"amazon" validate:"min=1"`
	SeenPolicy    string   `env:"SEEN_POLICY" envDefault:"last_run" validate:"oneof=last_run first_seen"`
	RetailerLabel string   `env:"RETAILER_LABEL" envDefault:"Amazon"`
}

type MetricsConfig struct {
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`
	Job            string `env:"JOB" envDefault:"deal_monitor"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"console" validate:"oneof=console json"`
}

// Policy returns the configured seen-state policy.
func (c MonitorConfig) Policy() models.SeenPolicy {
	p, err := models.ParseSeenPolicy(c.SeenPolicy)
	if err != nil {
		return models.PolicyLastRun
	}
	return p
}

func (c EmailConfig) HasTransport(name string) bool {
	for _, t := range c.Transports {
		if strings.EqualFold(strings.TrimSpace(t), name) {
			return true
		}
	}
	return false
}

// Load parses the environment. Every failure wraps models.ErrConfiguration.
func Load() (*Config, error) {
	return LoadFromEnvironment(nil)
}

// LoadFromEnvironment parses the given variables instead of the process
// environment when environ is non-nil.
func LoadFromEnvironment(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	for i, t := range c.Email.Transports {
		c.Email.Transports[i] = strings.ToLower(strings.TrimSpace(t))
	}
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: invalid settings: %s", models.ErrConfiguration, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", models.ErrConfiguration, err)
	}

	var missing []string
	if c.Email.HasTransport("smtp") || c.Email.HasTransport("resend") {
		if c.Email.From == "" {
			missing = append(missing, "EMAIL_FROM")
		}
		if c.Email.To == "" {
			missing = append(missing, "EMAIL_TO")
		}
	}
	if c.Email.HasTransport("smtp") && c.Email.Password == "" {
		missing = append(missing, "EMAIL_PASSWORD")
	}
	if c.Email.HasTransport("resend") && c.Resend.APIKey == "" {
		missing = append(missing, "RESEND_API_KEY")
	}
	if c.Email.HasTransport("kafka") && len(c.Kafka.Brokers) == 0 {
		missing = append(missing, "KAFKA_BROKERS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: required environment variables not set: %s",
			models.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}
