package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Stores
	StoreConfigPath string `envconfig:"STORE_CONFIG_PATH" default:"stores.yaml"`

	// Carrier
	CarrierTimeout   time.Duration `envconfig:"CARRIER_TIMEOUT" default:"30s"`
	CancelRetries    int           `envconfig:"CANCEL_RETRIES" default:"2"`
	CancelRetryDelay time.Duration `envconfig:"CANCEL_RETRY_DELAY" default:"500ms"`
	DispatchParallel bool          `envconfig:"DISPATCH_PARALLEL" default:"false"`
	EUCountries      []string      `envconfig:"EU_COUNTRIES"`

	// Response processors
	MySQLDSN         string   `envconfig:"MYSQL_DSN"`
	KafkaBrokers     []string `envconfig:"KAFKA_BROKERS"`
	KafkaStatusTopic string   `envconfig:"KAFKA_STATUS_TOPIC" default:"shipment-status"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.claude.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"labelbridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("dispatch.parallel", c.DispatchParallel),
		attribute.Bool("mysql.enabled", c.MySQLDSN != ""),
		attribute.Bool("kafka.enabled", len(c.KafkaBrokers) > 0),
	}
}
