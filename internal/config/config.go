package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the process configuration, read once from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	ServiceName string

	JWTSecret   string
	TokenTTL    time.Duration
	StaffEmails []string

	RedisAddr string // empty keeps idempotency in memory and runs the sweeper unlocked

	Payments
	IdempotencyTTL time.Duration
	SweepSchedule  string

	HubBuffer       int
	HubSendTimeout  time.Duration
	StreamKeepAlive time.Duration

	WebhookToken string

	QRBankID      string
	QRAccountNo   string
	QRAccountName string

	OTLPEndpoint string
}

// Payments holds the settings shared by every binary that settles orders.
type Payments struct {
	Currency         string
	DepositThreshold int64
	DepositRate      decimal.Decimal
	SessionTTL       time.Duration
}

// LoadPayments reads the payment settings alone, without the API secrets.
func LoadPayments() (Payments, error) {
	p := Payments{Currency: getEnv("CURRENCY", "VND")}

	var err error
	if p.SessionTTL, err = positiveDurationEnv("PAYMENT_SESSION_TTL", 3*time.Minute); err != nil {
		return Payments{}, err
	}

	threshold, err := intEnv("DEPOSIT_THRESHOLD", 100000)
	if err != nil {
		return Payments{}, err
	}
	if threshold < 0 {
		return Payments{}, fmt.Errorf("DEPOSIT_THRESHOLD must not be negative, got %d", threshold)
	}
	p.DepositThreshold = int64(threshold)

	p.DepositRate, err = decimal.NewFromString(getEnv("DEPOSIT_RATE", "0.5"))
	if err != nil {
		return Payments{}, fmt.Errorf("DEPOSIT_RATE must be a decimal: %w", err)
	}
	if p.DepositRate.LessThanOrEqual(decimal.Zero) || p.DepositRate.GreaterThan(decimal.NewFromInt(1)) {
		return Payments{}, fmt.Errorf("DEPOSIT_RATE must be in (0, 1], got %s", p.DepositRate)
	}
	return p, nil
}

// Load reads the environment. godotenv is applied by the binaries before this runs.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("APP_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ServiceName: getEnv("OTEL_SERVICE_NAME", "printnow-api"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		StaffEmails: splitList(os.Getenv("STAFF_EMAILS")),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@every 30s"),

		WebhookToken: os.Getenv("WEBHOOK_TOKEN"),

		QRBankID:      getEnv("QR_BANK_ID", "970422"),
		QRAccountNo:   getEnv("QR_ACCOUNT_NO", "0000000000"),
		QRAccountName: getEnv("QR_ACCOUNT_NAME", "PRINTNOW"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	if cfg.Payments, err = LoadPayments(); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", 2*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.HubSendTimeout, err = positiveDurationEnv("HUB_SEND_TIMEOUT", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.StreamKeepAlive, err = positiveDurationEnv("STREAM_KEEPALIVE", 25*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.HubBuffer, err = intEnv("HUB_BUFFER", 4); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func positiveDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	d, err := durationEnv(key, fallback)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
