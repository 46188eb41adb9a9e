package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              int
	LogLevel          string
	OpenAIBaseURL     string
	FineTuneBaseModel string
	DefaultChatModel  string
	CriticModel       string
	UserDataDir       string
	UserDataSubdir    string
	RequestTimeout    time.Duration
	RateLimitRPS      float64
	RateLimitBurst    int
	ModelCacheTTL     time.Duration
	MaxBodyBytes      int64
	RedisURL          string
	NatsURL           string
	NatsToken         string
	SlackBotToken     string
	SlackChannel      string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return Config{
		Port:              envInt("PORT", 3000),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		OpenAIBaseURL:     envStr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		FineTuneBaseModel: envStr("FINETUNE_BASE_MODEL", "gpt-4o-mini-2024-07-18"),
		DefaultChatModel:  envStr("DEFAULT_CHAT_MODEL", "gpt-4o"),
		CriticModel:       envStrAllowEmpty("CRITIC_MODEL", "gpt-4o"),
		UserDataDir:       envStr("USER_DATA_DIR", "userData"),
		UserDataSubdir:    envStr("USER_DATA_SUBDIR", "inputData"),
		RequestTimeout:    envDuration("REQUEST_TIMEOUT", 30*time.Second),
		RateLimitRPS:      envFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:    envInt("RATE_LIMIT_BURST", 20),
		ModelCacheTTL:     envDuration("MODEL_CACHE_TTL", 30*time.Second),
		MaxBodyBytes:      int64(envInt("MAX_BODY_BYTES", 50<<20)),
		RedisURL:          envStr("REDIS_URL", ""),
		NatsURL:           envStr("NATS_URL", ""),
		NatsToken:         envStr("NATS_TOKEN", ""),
		SlackBotToken:     envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:      envStr("SLACK_CHANNEL", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envStrAllowEmpty treats a key that is set to "" as an explicit empty value.
func envStrAllowEmpty(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
