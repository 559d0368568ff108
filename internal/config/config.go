// Package config loads the application settings from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Gateway modes accepted by GATEWAY_MODE.
const (
	GatewayModeStripe = "stripe"
	GatewayModeBogus  = "bogus"
)

// Settings holds every tunable the server needs at startup.
type Settings struct {
	Env         string
	Port        string
	DefaultHost string
	CORSOrigins string
	Debug       bool

	JWTSecret     string
	RefreshSecret string

	DB      DBSettings
	Redis   RedisSettings
	Gateway GatewaySettings
	Paypal  PaypalSettings

	CheckoutLockTTL time.Duration
}

type DBSettings struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisSettings struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

type GatewaySettings struct {
	Mode      string
	TestMode  bool
	StripeKey string
	StripeURL string
	Timeout   time.Duration
}

type PaypalSettings struct {
	Verify        bool
	VerifyURL     string
	ReceiverEmail string

	// PDTURL and IdentityToken enable settling on the buyer's return.
	// Without a token, returns wait for the IPN.
	PDTURL        string
	IdentityToken string
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found", slog.Any("err", err))
	}
}

// Load reads Settings from the environment, applying defaults.
func Load() Settings {
	env := GetEnv("ENV", "development")
	return Settings{
		Env:         env,
		Port:        GetEnv("PORT", "3000"),
		DefaultHost: GetEnv("DEFAULT_HOST", ".spotus.local"),
		CORSOrigins: GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		Debug:       GetBoolEnv("DEBUG", env != "production"),

		JWTSecret:     GetEnv("JWT_SECRET", "spotus"),
		RefreshSecret: GetEnv("REFRESH_SECRET", "spotus-refresh"),

		DB: DBSettings{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "spotus"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisSettings{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),

			PoolSize:     GetIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: GetIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  GetDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  GetDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: GetDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     GetDurationEnv("REDIS_CACHE_TTL", 24*time.Hour),
		},
		Gateway: GatewaySettings{
			Mode:      strings.ToLower(GetEnv("GATEWAY_MODE", GatewayModeBogus)),
			TestMode:  GetBoolEnv("GATEWAY_TEST_MODE", env != "production"),
			StripeKey: GetEnv("STRIPE_SECRET_KEY", ""),
			StripeURL: GetEnv("STRIPE_API_URL", ""),
			Timeout:   GetDurationEnv("GATEWAY_TIMEOUT", 30*time.Second),
		},
		Paypal: PaypalSettings{
			Verify:        GetBoolEnv("PAYPAL_VERIFY", env == "production"),
			VerifyURL:     GetEnv("PAYPAL_IPN_VERIFY_URL", "https://ipnpb.sandbox.paypal.com/cgi-bin/webscr"),
			ReceiverEmail: GetEnv("PAYPAL_RECEIVER_EMAIL", ""),
			PDTURL:        GetEnv("PAYPAL_PDT_URL", "https://www.sandbox.paypal.com/cgi-bin/webscr"),
			IdentityToken: GetEnv("PAYPAL_PDT_IDENTITY_TOKEN", ""),
		},

		CheckoutLockTTL: GetDurationEnv("CHECKOUT_LOCK_TTL", 2*time.Minute),
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value.
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetDurationEnv parses a time.Duration such as "30s" or falls back to defaultVal.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}
