package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"checkout/pkg/paygate"

	"github.com/spf13/viper"
)

// Config is the runtime configuration, read from the environment and an
// optional config.yaml in the working directory.
type Config struct {
	Env     string
	AppPort string

	DatabaseDriver string
	DatabaseDSN    string

	JWTSecret   string
	RabbitMQURL string
	RedisAddr   string

	SessionExpiration time.Duration

	GatewayMode        paygate.Mode
	GatewayMerchantID  string
	GatewayCallbackURL string
	GatewayTimeout     time.Duration

	OTPLength      int
	OTPTTL         time.Duration
	OTPMaxAttempts int

	SeedDemoData bool
}

// Development reports whether the app runs in development mode.
func (c *Config) Development() bool {
	return c.Env == "development"
}

// Load reads the configuration. v is usually viper.New().
func Load(v *viper.Viper) (*Config, error) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "checkout.db")
	v.SetDefault("JWT_SECRET", "change_me")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("SESSION_EXPIRATION", "24h")
	v.SetDefault("GATEWAY_MODE", string(paygate.ModeSandbox))
	v.SetDefault("GATEWAY_MERCHANT_ID", "")
	v.SetDefault("GATEWAY_CALLBACK_URL", "http://localhost:8080/api/v1/order/payment/callback")
	v.SetDefault("GATEWAY_TIMEOUT", "10s")
	v.SetDefault("OTP_LENGTH", 5)
	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("SEED_DEMO_DATA", false)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	v.AutomaticEnv() // Load environment variables

	cfg := &Config{
		Env:                v.GetString("APP_ENV"),
		AppPort:            v.GetString("APP_PORT"),
		DatabaseDriver:     v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		SessionExpiration:  v.GetDuration("SESSION_EXPIRATION"),
		GatewayMode:        paygate.Mode(strings.ToLower(v.GetString("GATEWAY_MODE"))),
		GatewayMerchantID:  v.GetString("GATEWAY_MERCHANT_ID"),
		GatewayCallbackURL: v.GetString("GATEWAY_CALLBACK_URL"),
		GatewayTimeout:     v.GetDuration("GATEWAY_TIMEOUT"),
		OTPLength:          v.GetInt("OTP_LENGTH"),
		OTPTTL:             v.GetDuration("OTP_TTL"),
		OTPMaxAttempts:     v.GetInt("OTP_MAX_ATTEMPTS"),
		SeedDemoData:       v.GetBool("SEED_DEMO_DATA"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	switch c.GatewayMode {
	case paygate.ModeSandbox, paygate.ModeLive:
		if c.GatewayMerchantID == "" {
			return fmt.Errorf("GATEWAY_MERCHANT_ID is required in %s mode", c.GatewayMode)
		}
	case paygate.ModeFake:
	default:
		return fmt.Errorf("GATEWAY_MODE must be sandbox, live or fake, got %q", c.GatewayMode)
	}
	u, err := url.Parse(c.GatewayCallbackURL)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("GATEWAY_CALLBACK_URL must be an absolute URL, got %q", c.GatewayCallbackURL)
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", c.OTPLength)
	}
	if c.OTPMaxAttempts < 2 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must allow a retry (at least 2), got %d", c.OTPMaxAttempts)
	}
	if c.Env == "production" && c.JWTSecret == "change_me" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}
