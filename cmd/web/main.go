package main

import (
	"log"
	"os"
	"strconv"

	"log/slog"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	apphttp "tradecove.com/app/internal/http"
	"tradecove.com/app/internal/modules/payments"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	// TranslateError: unique violations surface as gorm.ErrDuplicatedKey.
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	webhookSecret := os.Getenv("HOSTEDPAY_WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Fatal("HOSTEDPAY_WEBHOOK_SECRET environment variable is required")
	}

	provider := payments.NewHostedPay(payments.HostedPayConfig{
		BaseURL:       os.Getenv("HOSTEDPAY_BASE_URL"),
		APIKey:        os.Getenv("HOSTEDPAY_API_KEY"),
		WebhookSecret: webhookSecret,
	})

	cfg := apphttp.Config{
		CheckoutSuccessURL: envOr("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success"),
		CheckoutCancelURL:  envOr("CHECKOUT_CANCEL_URL", "http://localhost:3000/checkout/cancel"),
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis = redis.NewClient(&redis.Options{Addr: addr})
		cfg.RateLimitPerMinute = envInt("RATE_LIMIT_PER_MINUTE", 120)
	}

	r := apphttp.NewRouter(logger, db, provider, cfg)
	_ = r.Run(envOr("ADDR", ":8080"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
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
