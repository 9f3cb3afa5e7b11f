package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout/internal/config"
	"checkout/internal/handlers"
	"checkout/internal/models"
	"checkout/internal/repositories"
	"checkout/internal/services"
	"checkout/pkg/paygate"
	"checkout/pkg/rabbitmq"
	"checkout/pkg/redisstore"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(viper.New())
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("Failed to load configuration", zap.Error(err))
	}

	lg := newLogger(cfg)
	defer func() { _ = lg.Sync() }()

	// --- Database ---
	db, err := repositories.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		lg.Fatal("Failed to open database", zap.Error(err))
	}
	if err := repositories.Migrate(db); err != nil {
		lg.Fatal("Failed to migrate database", zap.Error(err))
	}
	repos := repositories.NewGORMRepositories(db)
	if cfg.SeedDemoData {
		seedDemoData(context.Background(), repos, lg)
	}

	// --- Messaging ---
	// Without a broker, notifications and events go to the log.
	var (
		notifier  services.Notifier       = services.NewLogNotifier(lg)
		publisher services.EventPublisher = services.NewLogPublisher(lg)
	)
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, lg)
		if err != nil {
			lg.Fatal("Failed to initialize RabbitMQ client", zap.Error(err))
		}
		defer mqClient.Close()
		notifier = rabbitmq.NewSMSNotifier(mqClient)
		publisher = mqClient
		if err := mqClient.ConsumeOrderEvents(rabbitmq.LogOrderEvent(lg)); err != nil {
			lg.Error("Failed to start RabbitMQ consumer", zap.Error(err))
		}
	}

	// --- Sessions ---
	sessionCfg := session.Config{
		Expiration:     cfg.SessionExpiration,
		KeyLookup:      "cookie:session_id",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !cfg.Development(),
	}
	if cfg.RedisAddr != "" {
		storage := redisstore.New(cfg.RedisAddr, "checkout")
		if err := storage.Ping(context.Background()); err != nil {
			lg.Fatal("Failed to connect to Redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer storage.Close()
		sessionCfg.Storage = storage
	}
	store := session.New(sessionCfg)

	// --- Payment gateway ---
	var gateway paygate.Gateway
	if cfg.GatewayMode == paygate.ModeFake {
		lg.Warn("Using the fake payment gateway")
		gateway = paygate.NewFake()
	} else {
		gateway = paygate.NewClient(paygate.Config{
			Mode:       cfg.GatewayMode,
			MerchantID: cfg.GatewayMerchantID,
			Timeout:    cfg.GatewayTimeout,
		}, lg.Named("paygate"))
	}

	// --- Services ---
	carts := services.NewCartService(repos.Products, repos.Coupons, lg)
	svc := handlers.Services{
		Auth:     services.NewAuthService(repos.Users, cfg.JWTSecret, lg),
		Products: services.NewProductService(repos.Products),
		Carts:    carts,
		Orders:   services.NewOrderService(repos.Orders, repos.Products, carts, publisher, lg),
		Verification: services.NewVerificationService(repos.Users, notifier, services.VerificationConfig{
			CodeLength:  cfg.OTPLength,
			TTL:         cfg.OTPTTL,
			MaxAttempts: cfg.OTPMaxAttempts,
		}, lg),
		Settlement: services.NewSettlementService(repos, repositories.NewGORMUnitOfWork(db), gateway, publisher,
			cfg.GatewayCallbackURL, lg),
	}

	// --- Fiber App ---
	app := fiber.New(fiber.Config{
		AppName:      "checkout",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))

	handlers.Mount(app, svc, store, lg)
	app.Get("/health", healthCheck(db))

	// --- Start HTTP Server ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		lg.Info("Starting server", zap.String("addr", cfg.AppPort), zap.String("gateway", string(cfg.GatewayMode)))
		if err := app.Listen(cfg.AppPort); err != nil {
			lg.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	lg.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		lg.Error("Error during Fiber shutdown", zap.Error(err))
	}
	lg.Info("Server gracefully stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	if cfg.Development() {
		return zap.Must(zap.NewDevelopment())
	}
	return zap.Must(zap.NewProduction())
}

func healthCheck(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := repositories.Ping(ctx, db); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

// seedDemoData populates an empty catalog with a few products and a coupon.
func seedDemoData(ctx context.Context, repos repositories.Repositories, lg *zap.Logger) {
	existing, err := repos.Products.GetAll(ctx)
	if err != nil || len(existing) > 0 {
		return
	}

	products := []models.Product{
		{Name: "Ceramic Teapot", Description: "1.2 l, hand glazed", Price: 450000, Weight: 900, Inventory: 20},
		{Name: "Green Tea", Description: "250 g loose leaf", Price: 120000, Discount: 10, Weight: 300, Inventory: 100},
		{Name: "Tea Glass Set", Description: "Six glasses with saucers", Price: 780000, Weight: 1600, Inventory: 15},
	}
	for i := range products {
		if err := repos.Products.Create(ctx, &products[i]); err != nil {
			lg.Warn("Error seeding product", zap.String("name", products[i].Name), zap.Error(err))
			continue
		}
		lg.Info("Seeded product", zap.String("name", products[i].Name), zap.String("id", products[i].ID))
	}

	coupon := &models.Coupon{Code: "WELCOME10", Discount: 10, PerUserLimit: 1, Active: true}
	if err := repos.Coupons.Create(ctx, coupon); err != nil {
		lg.Warn("Error seeding coupon", zap.Error(err))
	}
}
