package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sadhef/notify/internal/config"
	"github.com/sadhef/notify/internal/directory"
	"github.com/sadhef/notify/internal/handler"
	"github.com/sadhef/notify/internal/infra/postgresql"
	"github.com/sadhef/notify/internal/infra/postgresql/migrations"
	infraredis "github.com/sadhef/notify/internal/infra/redis"
	"github.com/sadhef/notify/internal/observability"
	"github.com/sadhef/notify/internal/provider"
	"github.com/sadhef/notify/internal/queue"
	"github.com/sadhef/notify/internal/repository"
	"github.com/sadhef/notify/internal/service"
	"github.com/sadhef/notify/internal/transport"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "notify")
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	pushProvider, err := buildPushProvider(cfg)
	if err != nil {
		logger.Fatal("push provider initialization failed", zap.Error(err))
	}

	var publisher queue.EventPublisher = queue.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			logger.Fatal("rabbitmq initialization failed", zap.Error(err))
		}
		publisher = queue.NewRabbitMQPublisher(mq)
	}
	defer publisher.Close()

	subscriptionRepo := repository.NewGormSubscriptionRepo(db)
	historyRepo := repository.NewGormHistoryRepo(db)
	accounts := directory.NewGormAccountDirectory(db)

	metrics := observability.NewMetrics()

	dispatchService, err := service.NewDispatchService(
		subscriptionRepo,
		historyRepo,
		accounts,
		pushProvider,
		rateLimiter,
		publisher,
		cfg.DispatchConcurrency,
		cfg.DefaultIcon,
		cfg.DefaultURL,
		logger,
	)
	if err != nil {
		logger.Fatal("dispatch service initialization failed", zap.Error(err))
	}
	dispatchService.SetMetrics(metrics)

	subscriptionService, err := service.NewSubscriptionService(subscriptionRepo, accounts, logger)
	if err != nil {
		logger.Fatal("subscription service initialization failed", zap.Error(err))
	}
	subscriptionService.SetMetrics(metrics)

	historyService, err := service.NewHistoryService(historyRepo, accounts, logger)
	if err != nil {
		logger.Fatal("history service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "notify",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(fiberrecover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	err = handler.RegisterNotificationRoutes(
		app,
		dispatchService,
		subscriptionService,
		historyService,
		accounts,
		cfg.VAPIDPublicKey,
	)
	if err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	logger.Info("notify api started", zap.Int("port", cfg.APIPort))
	if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func buildPushProvider(cfg *config.Config) (provider.PushProvider, error) {
	switch cfg.PushProvider {
	case "webhook":
		return provider.NewWebhookProvider(), nil
	default:
		return provider.NewWebPushProvider(cfg.VAPIDSubscriber, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	}
}
