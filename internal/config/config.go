package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

const envPrefix = "INVOICING_"

type Config struct {
	Primary   Primary         `koanf:"primary"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Chargily  ChargilyConfig  `koanf:"chargily"`
	Retry     RetryConfig     `koanf:"retry"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	Kafka     KafkaConfig     `koanf:"kafka"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Logger    LoggerConfig    `koanf:"logger"`
	Worker    WorkerConfig    `koanf:"worker"`
	Cache     CacheConfig     `koanf:"cache"`
	Invoice   InvoiceConfig   `koanf:"invoice"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port           string        `koanf:"port" validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

type ChargilyConfig struct {
	BaseURL       string        `koanf:"base_url" validate:"required,url"`
	APIKey        string        `koanf:"api_key"`
	WebhookSecret string        `koanf:"webhook_secret" validate:"required"`
	Timeout       time.Duration `koanf:"timeout" validate:"required"`
}

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries" validate:"gte=1"`
}

type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests" validate:"required"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout" validate:"required"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"required"`
}

type KafkaConfig struct {
	Enabled      bool     `koanf:"enabled"`
	Brokers      []string `koanf:"brokers"`
	InvoiceTopic string   `koanf:"invoice_topic" validate:"required"`
	OrderTopic   string   `koanf:"order_topic" validate:"required"`
	GroupID      string   `koanf:"group_id" validate:"required"`
}

type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	ServiceName  string `koanf:"service_name" validate:"required"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
}

type LoggerConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=json text"`
}

type WorkerConfig struct {
	OverdueInterval    time.Duration `koanf:"overdue_interval" validate:"required"`
	BatchSize          int           `koanf:"batch_size" validate:"required,gt=0"`
	SettlementInterval time.Duration `koanf:"settlement_interval" validate:"required"`
	SettlementMinAge   time.Duration `koanf:"settlement_min_age"`
}

type CacheConfig struct {
	Size int           `koanf:"size" validate:"gte=0"`
	TTL  time.Duration `koanf:"ttl"`
}

type InvoiceConfig struct {
	DefaultDueDays  int    `koanf:"default_due_days" validate:"required,gt=0"`
	DefaultCurrency string `koanf:"default_currency" validate:"required,len=3"`
}

var defaults = map[string]any{
	"primary.env":                 "development",
	"server.port":                 "8080",
	"server.read_timeout":         "15s",
	"server.write_timeout":        "15s",
	"server.idle_timeout":         "60s",
	"server.request_timeout":      "30s",
	"database.ssl_mode":           "disable",
	"database.max_open_conns":     10,
	"database.max_idle_conns":     2,
	"database.conn_max_lifetime":  "1h",
	"database.conn_max_idle_time": "30m",
	"chargily.base_url":           "https://pay.chargily.net/test/api/v2",
	"chargily.timeout":            "10s",
	"retry.base_delay":            "500ms",
	"retry.max_retries":           3,
	"breaker.max_requests":        1,
	"breaker.interval":            "60s",
	"breaker.timeout":             "30s",
	"breaker.failure_threshold":   5,
	"kafka.invoice_topic":         "invoice-events",
	"kafka.order_topic":           "order-events",
	"kafka.group_id":              "invoicing",
	"telemetry.service_name":      "invoicing",
	"logger.level":                "info",
	"logger.format":               "json",
	"worker.overdue_interval":     "1h",
	"worker.batch_size":           100,
	"worker.settlement_interval":  "5m",
	"worker.settlement_min_age":   "15m",
	"cache.size":                  1024,
	"cache.ttl":                   "5m",
	"invoice.default_due_days":    30,
	"invoice.default_currency":    "DZD",
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		logger.Error("failed to load default configuration", "error", err)
		return nil, err
	}

	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, envPrefix)), "__", ".")
		if key == "kafka.brokers" {
			return key, strings.Split(value, ",")
		}
		return key, value
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
