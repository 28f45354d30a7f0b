package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"marketplace/internal/cache"
	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/delivery"
	"marketplace/internal/handlers"
	"marketplace/internal/middleware"
	"marketplace/internal/repositories"
	"marketplace/internal/services"
	"marketplace/internal/tracing"
	"marketplace/pkg/rabbitmq"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

// run starts the service and blocks until SIGINT or SIGTERM. Every resource opened here
// is released by its deferred cleanup before run returns.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	tp, err := tracing.Init(cfg.ServiceName, cfg.JaegerEndpoint)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Error("failed to flush traces", "error", err)
		}
	}()

	// --- Database ---
	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	// --- RabbitMQ (optional) ---
	var publisher services.EventPublisher
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.DefaultConfig(cfg.RabbitMQURL))
		if err != nil {
			return fmt.Errorf("initialize RabbitMQ client: %w", err)
		}
		defer mqClient.Close()
		publisher = mqClient
	} else {
		slog.Warn("RABBITMQ_URL not set, order events are disabled")
	}

	// --- Redis (optional) ---
	var quoteCache services.QuoteCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Warn("redis unavailable, delivery quotes will not be cached", "error", err)
		} else {
			defer rdb.Close()
			quoteCache = cache.NewRedis(rdb)
		}
	}

	app := newServer(cfg, db, publisher, quoteCache)

	// --- Notification consumer ---
	if mqClient != nil {
		notifications := services.NewNotificationService(repositories.NewGORMNotificationRepository(db))
		err := mqClient.ConsumeOrderEvents(ctx, func(ctx context.Context, routingKey string, body []byte) error {
			err := notifications.HandleOrderEvent(ctx, body)
			if errors.Is(err, services.ErrMalformedEvent) {
				return rabbitmq.Discard(err)
			}
			return err
		})
		if err != nil {
			slog.Error("failed to start RabbitMQ consumer", "error", err)
		}
	}

	// --- Start HTTP Server ---
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.AppPort)
		if err := app.Listen(cfg.AppPort); err != nil {
			serverErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("error during fiber shutdown", "error", err)
	}
	slog.Info("server gracefully stopped")

	select {
	case err := <-serverErr:
		return fmt.Errorf("serve http: %w", err)
	default:
		return nil
	}
}

// newServer wires repositories, services and handlers into a fiber app. publisher and
// quoteCache may be nil.
func newServer(cfg *config.Config, db *gorm.DB, publisher services.EventPublisher, quoteCache services.QuoteCache) *fiber.App {
	store := repositories.NewGORMStore(db)

	authService := services.NewAuthService(repositories.NewGORMUserRepository(db), cfg.JWTSecret)
	voucherService := services.NewVoucherService(store, cfg.Orders.ClampDiscount)
	orderService := services.NewOrderService(store, voucherService, publisher, cfg.Orders.FlatDeliveryFee)
	deliveryService := services.NewDeliveryService(store, delivery.FeeSchedule{
		BaseFee:        cfg.Delivery.BaseFee,
		BaseDistanceKm: cfg.Delivery.BaseDistanceKm,
		PerKmFee:       cfg.Delivery.PerKmFee,
	}, cfg.Delivery.MissingCoordsFee, quoteCache, cfg.DeliveryQuoteTTL)

	orderHandler := handlers.NewOrderHandler(orderService, voucherService, deliveryService)

	app := fiber.New(fiber.Config{AppName: cfg.ServiceName})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(middleware.Tracing(cfg.ServiceName))

	app.Get("/health", func(c *fiber.Ctx) error {
		dbStatus := "connected"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			dbStatus = "unavailable"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": dbStatus,
			"events":   publisher != nil,
		})
	})

	apiV1 := app.Group("/api/v1", middleware.AuthRequired(authService))
	orderHandler.RegisterRoutes(apiV1)

	return app
}
