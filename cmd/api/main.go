package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rwandex/registrar-engine/internal/config"
	"github.com/rwandex/registrar-engine/internal/handler"
	"github.com/rwandex/registrar-engine/internal/infra/postgresql"
	"github.com/rwandex/registrar-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/rwandex/registrar-engine/internal/infra/redis"
	"github.com/rwandex/registrar-engine/internal/notify"
	"github.com/rwandex/registrar-engine/internal/observability"
	"github.com/rwandex/registrar-engine/internal/queue"
	"github.com/rwandex/registrar-engine/internal/registry"
	"github.com/rwandex/registrar-engine/internal/repository"
	"github.com/rwandex/registrar-engine/internal/service"
	"github.com/rwandex/registrar-engine/internal/transport"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
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

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	publisher := queue.NewRabbitMQPublisher(rabbit)
	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.WorkerConcurrency, logger)

	localClient, err := registry.NewEPPGatewayClient(cfg.EPPGatewayURL, cfg.EPPAuthToken)
	if err != nil {
		logger.Fatal("epp gateway client initialization failed", zap.Error(err))
	}
	intlClient, err := registry.NewInternationalClient(cfg.IntlAPIURL, cfg.IntlAPIKey)
	if err != nil {
		logger.Fatal("international client initialization failed", zap.Error(err))
	}
	clients := registry.Clients{Local: localClient, International: intlClient}

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.NotifyWebhookURL != "" {
		webhook, err := notify.NewWebhookNotifier(cfg.NotifyWebhookURL)
		if err != nil {
			logger.Fatal("webhook notifier initialization failed", zap.Error(err))
		}
		notifier = webhook
	}
	notifier = notify.NewLoggingNotifier(notifier, logger)

	metrics := observability.NewMetrics()

	contactRepo := repository.NewGormContactRepo(db)
	domainRepo := repository.NewGormDomainRepo(db)
	nameserverRepo := repository.NewGormNameserverRepo(db)
	renewalRepo := repository.NewGormRenewalRepo(db)
	failureRepo := repository.NewGormFailedRegistrationRepo(db)
	orderRepo := repository.NewGormOrderRepo(db)
	pricingRepo := repository.NewGormPricingRepo(db)

	provisioner, err := service.NewContactProvisioner(contactRepo, localClient, limiter, logger)
	if err != nil {
		logger.Fatal("contact provisioner initialization failed", zap.Error(err))
	}

	dualCoordinator, err := service.NewDualContactCoordinator(clients, limiter, logger)
	if err != nil {
		logger.Fatal("dual contact coordinator initialization failed", zap.Error(err))
	}

	registrationService, err := service.NewRegistrationService(
		domainRepo,
		contactRepo,
		nameserverRepo,
		pricingRepo,
		clients,
		provisioner,
		limiter,
		notifier,
		metrics,
		cfg.DefaultNameserverList(),
		logger,
	)
	if err != nil {
		logger.Fatal("registration service initialization failed", zap.Error(err))
	}

	renewalService, err := service.NewRenewalService(domainRepo, renewalRepo, clients, limiter, metrics, logger)
	if err != nil {
		logger.Fatal("renewal service initialization failed", zap.Error(err))
	}

	retrier, err := service.NewRegistrationRetrier(
		failureRepo,
		orderRepo,
		registrationService,
		notifier,
		metrics,
		cfg.MaxRegistrationRetry,
		cfg.RetryDelay,
		logger,
	)
	if err != nil {
		logger.Fatal("registration retrier initialization failed", zap.Error(err))
	}

	scanner, err := service.NewRetryScanner(failureRepo, publisher, cfg.RetryScanInterval, 0, logger)
	if err != nil {
		logger.Fatal("retry scanner initialization failed", zap.Error(err))
	}

	worker, err := service.NewRetryWorker(consumer, publisher, retrier, metrics, cfg.WorkerConcurrency, logger)
	if err != nil {
		logger.Fatal("retry worker initialization failed", zap.Error(err))
	}

	registrarHandler, err := handler.NewRegistrarHandler(
		registrationService,
		renewalService,
		retrier,
		dualCoordinator,
		domainRepo,
		contactRepo,
		nameserverRepo,
		orderRepo,
		failureRepo,
		clients,
	)
	if err != nil {
		logger.Fatal("registrar handler initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(metrics.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	handler.RegisterRegistrarRoutes(app, registrarHandler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scanner.Start(groupCtx)
	})

	g.Go(func() error {
		return worker.Start(groupCtx)
	})

	g.Go(func() error {
		logger.Info("registrar-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
	}
}
