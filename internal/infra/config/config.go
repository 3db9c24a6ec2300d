package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Sink kinds selectable via MESSAGE_SINK.
const (
	SinkTelegram = "telegram"
	SinkAMQP     = "amqp"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL  string
	TimeZone     string // IANA zone all calendar evaluation happens in
	CronSpecTick string // cadence of the dispatch tick

	MessageSink   string // "telegram" or "amqp"
	TelegramToken string
	AMQPURL       string
	AMQPExchange  string

	RedisURL string // optional; enables the cross-process tick lock

	StatusPort  int
	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.TimeZone = os.Getenv("TIME_ZONE")
	if cfg.TimeZone == "" {
		// One fixed zone per deployment; never the host default, which
		// would make firing dates differ between machines.
		cfg.TimeZone = "UTC"
	}

	cfg.CronSpecTick = os.Getenv("CRON_SPEC_TICK")
	if cfg.CronSpecTick == "" {
		cfg.CronSpecTick = "0 9 * * *" // Default: 9:00 AM daily
	}

	cfg.MessageSink = strings.ToLower(os.Getenv("MESSAGE_SINK"))
	if cfg.MessageSink == "" {
		cfg.MessageSink = SinkTelegram
	}
	switch cfg.MessageSink {
	case SinkTelegram:
		cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
		if cfg.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
		}
	case SinkAMQP:
		cfg.AMQPURL = os.Getenv("AMQP_URL")
		if cfg.AMQPURL == "" {
			return nil, fmt.Errorf("AMQP_URL is not set")
		}
		cfg.AMQPExchange = os.Getenv("AMQP_EXCHANGE")
		if cfg.AMQPExchange == "" {
			cfg.AMQPExchange = "chat.messages"
		}
	default:
		return nil, fmt.Errorf("unknown MESSAGE_SINK: %q", cfg.MessageSink)
	}

	cfg.RedisURL = os.Getenv("REDIS_URL") // Empty disables the tick lock

	statusPortStr := os.Getenv("STATUS_PORT")
	if statusPortStr == "" {
		cfg.StatusPort = 8085
	} else {
		port, err := strconv.Atoi(statusPortStr)
		if err != nil {
			return nil, fmt.Errorf("invalid STATUS_PORT: %w", err)
		}
		cfg.StatusPort = port
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}
