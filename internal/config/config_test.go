package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:      AppConfig{Env: "local", Port: 8080},
		DB:       DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "dialer"},
		Redis:    RedisConfig{Host: "localhost", Port: 6379},
		Auth:     AuthConfig{JWTSecret: "secret"},
		Dispatch: DispatchConfig{FetchLimit: 10, CallLimit: 5, StuckAfter: 5 * time.Minute, LockTTL: 2 * time.Minute},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV", "DB_HOST", "REDIS_HOST", "JWT_SECRET", "DISPATCH_FETCH_LIMIT"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in joined error, got %v", want, err)
		}
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "dialer"
	c.Auth.JWTAudience = "dialer-api"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Retell.BaseURL != "https://api.retellai.com" {
		t.Fatalf("unexpected retell base url %q", c.Retell.BaseURL)
	}
	if c.Kafka.Topics.Workflow == "" || c.Kafka.Topics.Sequence == "" || c.Kafka.Topics.Disposition == "" {
		t.Fatalf("expected default topics, got %+v", c.Kafka.Topics)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("unexpected access ttl %s", c.Auth.AccessTokenTTL)
	}
}

func TestValidate_CallLimitCannotExceedFetchLimit(t *testing.T) {
	c := validLocal()
	c.Dispatch.CallLimit = 20
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "DISPATCH_CALL_LIMIT") {
		t.Fatalf("expected call limit error, got %v", err)
	}
}

func TestValidate_TwilioSignaturesNeedTokenAndURL(t *testing.T) {
	c := validLocal()
	c.Twilio.VerifySignatures = true
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "TWILIO_AUTH_TOKEN") || !strings.Contains(err.Error(), "PUBLIC_BASE_URL") {
		t.Fatalf("expected twilio errors, got %v", err)
	}
}

func TestLoad_ReadsDispatchTunables(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "dialer")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("DISPATCH_FETCH_LIMIT", "20")
	t.Setenv("DISPATCH_CALL_LIMIT", "8")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Dispatch.FetchLimit != 20 || c.Dispatch.CallLimit != 8 {
		t.Fatalf("unexpected dispatch tunables %+v", c.Dispatch)
	}
	if c.Dispatch.StuckAfter != 5*time.Minute || c.Dispatch.LockTTL != 2*time.Minute {
		t.Fatalf("expected envconfig defaults, got %+v", c.Dispatch)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", c.Kafka.Brokers)
	}
}
