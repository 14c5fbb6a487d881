package apphttp

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"tradecove.com/app/internal/http/handlers"
	"tradecove.com/app/internal/http/middleware"
	"tradecove.com/app/internal/modules/notifications"
	"tradecove.com/app/internal/modules/payments"
	"tradecove.com/app/internal/modules/products"
	"tradecove.com/app/internal/modules/reviews"
	"tradecove.com/app/internal/modules/shipping"
	"tradecove.com/app/internal/modules/tracking"
	"tradecove.com/app/internal/modules/transactions"
)

type Config struct {
	CheckoutSuccessURL string
	CheckoutCancelURL  string

	// RateLimitPerMinute only applies when Redis is non-nil.
	RateLimitPerMinute int
	Redis              *redis.Client
}

func NewRouter(logger *slog.Logger, db *gorm.DB, provider *payments.HostedPay, cfg Config) *gin.Engine {
	productRepo := products.NewRepo(db)
	carrierRepo := shipping.NewRepo(db)

	notifier := notifications.NewService(db)
	notifier.SetLogger(logger)

	txSvc := transactions.NewService(db, provider, productRepo, notifier,
		cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	txSvc.SetLogger(logger)

	webhookSvc := payments.NewWebhookService(db, txSvc)
	webhookSvc.SetLogger(logger)

	trackingSvc := tracking.NewService(db, carrierRepo, txSvc, notifier)
	trackingSvc.SetLogger(logger)

	reviewSvc := reviews.NewService(db, notifier)
	reviewSvc.SetLogger(logger)

	paymentsHandler := handlers.NewPaymentsHandler(logger, txSvc)
	webhookHandler := handlers.NewWebhookHandler(logger, provider, webhookSvc)
	shippingHandler := handlers.NewShippingHandler(logger, carrierRepo, productRepo)
	trackingHandler := handlers.NewTrackingHandler(logger, trackingSvc)
	reviewsHandler := handlers.NewReviewsHandler(logger, reviewSvc)
	notificationsHandler := handlers.NewNotificationsHandler(logger, notifier)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.ErrorHandler(logger))
	r.Use(middleware.Identity())
	if cfg.Redis != nil {
		r.Use(middleware.RateLimit(cfg.Redis, cfg.RateLimitPerMinute, logger))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/payments/create-checkout-session", paymentsHandler.CreateCheckoutSession)
	r.POST("/webhooks/payment", webhookHandler.Handle)

	sh := r.Group("/shipping")
	{
		sh.POST("/calculate", shippingHandler.Calculate)
		sh.GET("/track/:trackingNumber", trackingHandler.Track)
		sh.POST("/shipments", trackingHandler.CreateShipment)
		sh.POST("/shipments/:trackingNumber/events", trackingHandler.IngestEvent)
	}

	rv := r.Group("/reviews")
	{
		rv.POST("", reviewsHandler.Create)
		rv.POST("/:id/response", reviewsHandler.Respond)
	}

	nt := r.Group("/notifications")
	{
		nt.GET("", notificationsHandler.List)
		nt.POST("/:id/read", notificationsHandler.MarkRead)
	}

	return r
}
