package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration required by the API and the operator CLI.
// Values come from env; a .env file in the working directory is loaded first if present.
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Retell   RetellConfig
	Twilio   TwilioConfig
	Telnyx   TelnyxConfig
	Kafka    KafkaConfig
	Dispatch DispatchConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// RetellConfig holds the voice-agent vendor credentials used for outbound calls.
type RetellConfig struct {
	APIKey  string
	BaseURL string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	// VerifySignatures turns on X-Twilio-Signature checks for form webhooks.
	VerifySignatures bool
	// PublicBaseURL is the externally visible origin Twilio signs against.
	PublicBaseURL string
}

type TelnyxConfig struct {
	APIKey string
}

// KafkaConfig is optional. With no brokers, events are logged instead of published.
type KafkaConfig struct {
	Brokers []string
	Topics  KafkaTopics
}

type KafkaTopics struct {
	Workflow    string
	Sequence    string
	Disposition string
}

// DispatchConfig tunes one dispatcher invocation. Loaded with envconfig under prefix DISPATCH.
type DispatchConfig struct {
	FetchLimit int           `envconfig:"FETCH_LIMIT" default:"10"`
	CallLimit  int           `envconfig:"CALL_LIMIT" default:"5"`
	StuckAfter time.Duration `envconfig:"STUCK_AFTER" default:"5m"`
	LockTTL    time.Duration `envconfig:"LOCK_TTL" default:"2m"`
}

func Load() (Config, error) {
	// Missing .env is fine; real deployments inject env directly.
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Retell.APIKey = os.Getenv("RETELL_API_KEY")
	c.Retell.BaseURL = strings.TrimSpace(os.Getenv("RETELL_BASE_URL"))

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.VerifySignatures = strings.EqualFold(strings.TrimSpace(os.Getenv("TWILIO_VERIFY_SIGNATURES")), "true")
	c.Twilio.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/")

	c.Telnyx.APIKey = os.Getenv("TELNYX_API_KEY")

	c.Kafka.Brokers = splitList(os.Getenv("KAFKA_BROKERS"))
	c.Kafka.Topics.Workflow = strings.TrimSpace(os.Getenv("KAFKA_TOPIC_WORKFLOW"))
	c.Kafka.Topics.Sequence = strings.TrimSpace(os.Getenv("KAFKA_TOPIC_SEQUENCE"))
	c.Kafka.Topics.Disposition = strings.TrimSpace(os.Getenv("KAFKA_TOPIC_DISPOSITION"))

	if err := envconfig.Process("DISPATCH", &c.Dispatch); err != nil {
		parseErrs = append(parseErrs, fmt.Errorf("DISPATCH_*: %w", err))
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks every section and fills optional defaults in place.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	// The Retell key is checked per invocation, not here: the API still serves
	// CRUD and webhooks without it, and dispatch reports the missing key itself.
	if c.Retell.BaseURL == "" {
		c.Retell.BaseURL = "https://api.retellai.com"
	}

	if c.Twilio.VerifySignatures {
		if c.Twilio.AuthToken == "" {
			errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required when TWILIO_VERIFY_SIGNATURES=true"))
		}
		if c.Twilio.PublicBaseURL == "" {
			errs = append(errs, errors.New("PUBLIC_BASE_URL is required when TWILIO_VERIFY_SIGNATURES=true"))
		}
	}

	if c.Kafka.Topics.Workflow == "" {
		c.Kafka.Topics.Workflow = "dialer.workflow.execute"
	}
	if c.Kafka.Topics.Sequence == "" {
		c.Kafka.Topics.Sequence = "dialer.followup.sequence_step"
	}
	if c.Kafka.Topics.Disposition == "" {
		c.Kafka.Topics.Disposition = "dialer.disposition.applied"
	}

	if c.Dispatch.FetchLimit <= 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_FETCH_LIMIT must be > 0, got %d", c.Dispatch.FetchLimit))
	}
	if c.Dispatch.CallLimit <= 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_CALL_LIMIT must be > 0, got %d", c.Dispatch.CallLimit))
	}
	if c.Dispatch.CallLimit > c.Dispatch.FetchLimit {
		errs = append(errs, fmt.Errorf("DISPATCH_CALL_LIMIT (%d) must not exceed DISPATCH_FETCH_LIMIT (%d)", c.Dispatch.CallLimit, c.Dispatch.FetchLimit))
	}
	if c.Dispatch.StuckAfter <= 0 {
		errs = append(errs, errors.New("DISPATCH_STUCK_AFTER must be > 0"))
	}
	if c.Dispatch.LockTTL <= 0 {
		errs = append(errs, errors.New("DISPATCH_LOCK_TTL must be > 0"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsDevelopment gates dev-only surfaces such as token issuance.
func (c Config) IsDevelopment() bool {
	return c.App.Env == "local" || c.App.Env == "dev"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
