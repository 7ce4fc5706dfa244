package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthJWTSecret string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string

	Gateway GatewayConfig
}

// GatewayConfig holds the payment gateway integration settings.
type GatewayConfig struct {
	Name          string
	BaseURL       string
	PublicBaseURL string
	MerchantID    string
	SaltKey       string
	SaltIndex     string
	CallbackPath  string
	WebhookPath   string
	RedirectURL   string
	WebhookHeader string

	// VerifyContextPath is appended to the raw body when checking callback
	// signatures. Empty for gateways that sign the body alone.
	VerifyContextPath string

	// AllowUnverified skips callback signature verification. It can only be
	// enabled outside production, see Load.
	AllowUnverified bool
}

// CallbackURL is the absolute URL the gateway posts server-to-server
// callbacks to.
func (g GatewayConfig) CallbackURL() string {
	return g.PublicBaseURL + g.CallbackPath
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(func(cfg Config) GatewayConfig { return cfg.Gateway }),
	fx.Provide(NewRentalConfigHolder),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	allowUnverified := false
	if environment != "production" {
		allowUnverified = getenvBool("GATEWAY_ALLOW_UNVERIFIED", false)
	}

	return Config{
		AppName:     getenv("APP_SERVICE", "stayloop"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "stayloop"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		Gateway: GatewayConfig{
			Name:              getenv("GATEWAY_NAME", "phonepe"),
			BaseURL:           getenv("GATEWAY_BASE_URL", "https://api-preprod.phonepe.com/apis/pg-sandbox"),
			PublicBaseURL:     strings.TrimRight(getenv("GATEWAY_PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			MerchantID:        strings.TrimSpace(getenv("GATEWAY_MERCHANT_ID", "")),
			SaltKey:           strings.TrimSpace(getenv("GATEWAY_SALT_KEY", "")),
			SaltIndex:         getenv("GATEWAY_SALT_INDEX", "1"),
			CallbackPath:      getenv("GATEWAY_CALLBACK_PATH", "/callbacks/phonepe"),
			WebhookPath:       getenv("GATEWAY_WEBHOOK_PATH", "/webhooks/phonepe"),
			RedirectURL:       getenv("GATEWAY_REDIRECT_URL", "http://localhost:3000/payments/return"),
			WebhookHeader:     getenv("GATEWAY_WEBHOOK_HEADER", "X-Verify"),
			VerifyContextPath: getenv("GATEWAY_VERIFY_CONTEXT_PATH", ""),
			AllowUnverified:   allowUnverified,
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
