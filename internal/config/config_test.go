package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "OPENAI_BASE_URL", "FINETUNE_BASE_MODEL",
		"DEFAULT_CHAT_MODEL", "CRITIC_MODEL", "USER_DATA_DIR", "USER_DATA_SUBDIR",
		"REQUEST_TIMEOUT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "MODEL_CACHE_TTL",
		"MAX_BODY_BYTES", "REDIS_URL", "NATS_URL", "NATS_TOKEN",
		"SLACK_BOT_TOKEN", "SLACK_CHANNEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.CriticModel != "gpt-4o" {
		t.Errorf("expected default critic model gpt-4o, got %s", cfg.CriticModel)
	}

	if cfg.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.OpenAIBaseURL != "https://api.openai.com/v1" {
		t.Errorf("expected default base url, got %s", cfg.OpenAIBaseURL)
	}
	if cfg.FineTuneBaseModel != "gpt-4o-mini-2024-07-18" {
		t.Errorf("expected default fine-tune base model, got %s", cfg.FineTuneBaseModel)
	}
	if cfg.DefaultChatModel != "gpt-4o" {
		t.Errorf("expected default chat model gpt-4o, got %s", cfg.DefaultChatModel)
	}
	if cfg.UserDataDir != "userData" || cfg.UserDataSubdir != "inputData" {
		t.Errorf("unexpected user data layout %s/%s", cfg.UserDataDir, cfg.UserDataSubdir)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("expected 30s request timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.RedisURL != "" || cfg.NatsURL != "" {
		t.Errorf("expected optional backends disabled by default")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:8080/v1")
	t.Setenv("CRITIC_MODEL", "gpt-4o-mini")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("NATS_TOKEN", "s3cr3t-token")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_CHANNEL", "C12345")

	cfg := Load()

	if cfg.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %s", cfg.LogLevel)
	}
	if cfg.OpenAIBaseURL != "http://localhost:8080/v1" {
		t.Errorf("expected custom base url, got %s", cfg.OpenAIBaseURL)
	}
	if cfg.CriticModel != "gpt-4o-mini" {
		t.Errorf("expected custom critic model, got %s", cfg.CriticModel)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.RateLimitRPS != 0.5 {
		t.Errorf("expected rps 0.5, got %v", cfg.RateLimitRPS)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("expected custom redis url, got %s", cfg.RedisURL)
	}
	if cfg.NatsToken != "s3cr3t-token" {
		t.Errorf("expected custom nats token, got %s", cfg.NatsToken)
	}
	if cfg.SlackBotToken != "xoxb-test" || cfg.SlackChannel != "C12345" {
		t.Errorf("expected slack settings, got %s %s", cfg.SlackBotToken, cfg.SlackChannel)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("PORT", "notanumber")
	t.Setenv("REQUEST_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Port != 3000 {
		t.Errorf("expected default port on invalid value, got %d", cfg.Port)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("expected default timeout on invalid value, got %s", cfg.RequestTimeout)
	}
}

func TestLoad_EmptyCriticModelDisablesCritic(t *testing.T) {
	t.Setenv("CRITIC_MODEL", "")

	cfg := Load()

	if cfg.CriticModel != "" {
		t.Errorf("expected empty critic model, got %q", cfg.CriticModel)
	}
}
