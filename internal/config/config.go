package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// HTTP Server
	Port string

	// Document store
	DataBackend   string
	MongoURI      string
	MongoDatabase string

	// Telegram
	TelegramBotToken      string
	TelegramChatID        int64
	TelegramWebhookSecret string
	TelegramMode          string
}

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"

	TelegramOff     = "off"
	TelegramWebhook = "webhook"
	TelegramPolling = "polling"
)

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend:   getEnv("DATA_BACKEND", BackendMongo),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "grocery"),

		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:        getEnvInt64("TELEGRAM_CHAT_ID", 0),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		TelegramMode:          getEnv("TELEGRAM_MODE", TelegramOff),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendMongo:
		if parsed, err := url.Parse(c.MongoURI); err != nil {
			errs = append(errs, fmt.Sprintf("invalid Mongo URI '%s': %v", c.MongoURI, err))
		} else if parsed.Scheme != "mongodb" && parsed.Scheme != "mongodb+srv" {
			errs = append(errs, fmt.Sprintf("invalid Mongo URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", parsed.Scheme))
		}
		if c.MongoDatabase == "" {
			errs = append(errs, "Mongo database name cannot be empty when using mongo backend")
		}
	case BackendMemory:
		// No storage config required.
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendMongo, BackendMemory))
	}

	switch c.TelegramMode {
	case TelegramOff:
	case TelegramWebhook, TelegramPolling:
		if c.TelegramBotToken == "" {
			errs = append(errs, "Telegram bot token cannot be empty when the bot is enabled")
		}
		if c.TelegramChatID == 0 {
			errs = append(errs, "Telegram chat ID cannot be zero when the bot is enabled")
		}
		if c.TelegramMode == TelegramWebhook && c.TelegramWebhookSecret == "" {
			errs = append(errs, "Telegram webhook secret cannot be empty in webhook mode")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid Telegram mode '%s': must be one of [%s %s %s]", c.TelegramMode, TelegramOff, TelegramWebhook, TelegramPolling))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
