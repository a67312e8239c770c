package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	PayFast  PayFastConfig
	Status   StatusConfig
	Receipts ReceiptsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PayFastConfig holds the merchant credentials and callback URLs for the
// payment processor integration. MerchantID and MerchantKey are mandatory;
// startup fails without them.
type PayFastConfig struct {
	MerchantID      string
	MerchantKey     string
	Passphrase      string
	Sandbox         bool
	ReturnURL       string
	CancelURL       string
	NotifyURL       string
	ValidateTimeout time.Duration
}

// StatusConfig tunes the registration status polling cache.
type StatusConfig struct {
	CacheTTL time.Duration
}

// ReceiptsConfig controls PDF receipt generation and shareable download
// links. LinkSecret falls back to the JWT secret when unset.
type ReceiptsConfig struct {
	Enabled    bool
	SchoolName string
	LinkSecret string
	LinkTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.PayFast = PayFastConfig{
		MerchantID:      v.GetString("PAYFAST_MERCHANT_ID"),
		MerchantKey:     v.GetString("PAYFAST_MERCHANT_KEY"),
		Passphrase:      v.GetString("PAYFAST_PASSPHRASE"),
		Sandbox:         v.GetBool("PAYFAST_SANDBOX"),
		ReturnURL:       v.GetString("PAYFAST_RETURN_URL"),
		CancelURL:       v.GetString("PAYFAST_CANCEL_URL"),
		NotifyURL:       v.GetString("PAYFAST_NOTIFY_URL"),
		ValidateTimeout: parseDuration(v.GetString("PAYFAST_VALIDATE_TIMEOUT"), 10*time.Second),
	}
	if cfg.PayFast.MerchantID == "" || cfg.PayFast.MerchantKey == "" {
		return nil, fmt.Errorf("PAYFAST_MERCHANT_ID and PAYFAST_MERCHANT_KEY are required")
	}

	cfg.Status = StatusConfig{
		CacheTTL: parseDuration(v.GetString("STATUS_CACHE_TTL"), 5*time.Second),
	}

	cfg.Receipts = ReceiptsConfig{
		Enabled:    v.GetBool("ENABLE_RECEIPTS"),
		SchoolName: v.GetString("RECEIPTS_SCHOOL_NAME"),
		LinkSecret: v.GetString("RECEIPTS_LINK_SECRET"),
		LinkTTL:    parseDuration(v.GetString("RECEIPTS_LINK_TTL"), 72*time.Hour),
	}
	if cfg.Receipts.LinkSecret == "" {
		cfg.Receipts.LinkSecret = cfg.JWT.Secret
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sekolo_pay")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "sekolo-pay-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PAYFAST_MERCHANT_ID", "")
	v.SetDefault("PAYFAST_MERCHANT_KEY", "")
	v.SetDefault("PAYFAST_PASSPHRASE", "")
	v.SetDefault("PAYFAST_SANDBOX", true)
	v.SetDefault("PAYFAST_RETURN_URL", "http://localhost:3000/payment/return")
	v.SetDefault("PAYFAST_CANCEL_URL", "http://localhost:3000/payment/cancel")
	v.SetDefault("PAYFAST_NOTIFY_URL", "http://localhost:8080/api/v1/payments/notify")
	v.SetDefault("PAYFAST_VALIDATE_TIMEOUT", "10s")

	v.SetDefault("STATUS_CACHE_TTL", "5s")

	v.SetDefault("ENABLE_RECEIPTS", true)
	v.SetDefault("RECEIPTS_SCHOOL_NAME", "Sekolo Primary School")
	v.SetDefault("RECEIPTS_LINK_SECRET", "")
	v.SetDefault("RECEIPTS_LINK_TTL", "72h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
