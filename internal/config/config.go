package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

const (
	defaultAppName          = "exsim"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultAsset            = "USD"
	defaultEventBuffer      = 256
	defaultDeliveryTimeout  = time.Second
	defaultSimAccounts      = 10
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultRedisChannel     = "exsim:wallet-events"
	defaultNATSSubject      = "exsim.wallet.events"
	defaultSimDeposit       = "10"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
	idemTTLSecondsEnvVar    = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar        = "IDEMPOTENCY_TTL"
	deliveryTimeoutEnvVar   = "EVENT_DELIVERY_TIMEOUT"
	eventBufferEnvVar       = "EVENT_BUFFER_SIZE"
	simulatedAccountsEnvVar = "SIMULATED_ACCOUNTS"
	simulatedDepositEnvVar  = "SIMULATED_DEPOSIT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName             string
	AppEnv              string
	Port                string
	LogLevel            string
	LogFormat           string
	DefaultAsset        string
	SingleAddressAssets []string
	EventBufferSize     int
	DeliveryTimeout     time.Duration
	SimulatedAccounts   int
	SimulatedDeposit    decimal.Decimal
	RedisURL            string
	RedisEventsChannel  string
	NATSURL             string
	NATSSubject         string
	ShutdownPeriod      time.Duration
	IdempotencyTTL      time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:             getEnv("APP_NAME", defaultAppName),
		AppEnv:              strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:                getEnv("PORT", defaultPort),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DefaultAsset:        strings.ToUpper(getEnv("DEFAULT_ASSET", defaultAsset)),
		SingleAddressAssets: splitList(os.Getenv("SINGLE_ADDRESS_ASSETS")),
		RedisURL:            os.Getenv("REDIS_URL"),
		RedisEventsChannel:  getEnv("REDIS_EVENTS_CHANNEL", defaultRedisChannel),
		NATSURL:             os.Getenv("NATS_URL"),
		NATSSubject:         getEnv("NATS_SUBJECT", defaultNATSSubject),
	}

	var err error
	if cfg.EventBufferSize, err = positiveInt(eventBufferEnvVar, defaultEventBuffer); err != nil {
		return Config{}, err
	}
	if cfg.SimulatedAccounts, err = nonNegativeInt(simulatedAccountsEnvVar, defaultSimAccounts); err != nil {
		return Config{}, err
	}
	if cfg.DeliveryTimeout, err = duration(deliveryTimeoutEnvVar, "", defaultDeliveryTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = duration(shutdownDurationEnvVar, shutdownSecondsEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = duration(idemTTLDurEnvVar, idemTTLSecondsEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}

	deposit, err := decimal.NewFromString(getEnv(simulatedDepositEnvVar, defaultSimDeposit))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", simulatedDepositEnvVar, err)
	}
	if deposit.IsNegative() {
		return Config{}, fmt.Errorf("invalid %s: must not be negative", simulatedDepositEnvVar)
	}
	cfg.SimulatedDeposit = deposit

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func positiveInt(key string, fallback int) (int, error) {
	n, err := nonNegativeInt(key, fallback)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}

func nonNegativeInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := cast.ToIntE(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return n, nil
}

// duration reads durKey as a Go duration or a bare number of seconds,
// falling back to secondsKey when durKey is unset.
func duration(durKey, secondsKey string, fallback time.Duration) (time.Duration, error) {
	key := durKey
	v := os.Getenv(durKey)
	if v == "" && secondsKey != "" {
		key = secondsKey
		v = os.Getenv(secondsKey)
	}
	if v == "" {
		return fallback, nil
	}
	v = strings.TrimSpace(v)
	var d time.Duration
	if secs, err := cast.ToInt64E(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if d, err = cast.ToDurationE(v); err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
