package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tripdesk/agency-api/docs"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/cache"
	"github.com/tripdesk/agency-api/internal/config"
	"github.com/tripdesk/agency-api/internal/database"
	"github.com/tripdesk/agency-api/internal/http/handler"
	"github.com/tripdesk/agency-api/internal/http/middleware"
	"github.com/tripdesk/agency-api/internal/http/router"
	"github.com/tripdesk/agency-api/internal/jobs"
	"github.com/tripdesk/agency-api/internal/logger"
	"github.com/tripdesk/agency-api/internal/metrics"
	"github.com/tripdesk/agency-api/internal/repository"
	"github.com/tripdesk/agency-api/internal/service"
	"github.com/tripdesk/agency-api/internal/storage"
	"go.uber.org/zap"
)

// @title Tripdesk Agency API
// @version 1.0
// @description Multi-tenant travel agency API for clients, service packages, bookings and payments
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@tripdesk.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token
// @Security BearerAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	switch basicCfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "api-staging.tripdesk.io"
	case "production":
		docs.SwaggerInfo.Host = "api.tripdesk.io"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// In staging/production secrets come from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate || cfg.Database.Driver == "sqlite" {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("Database schema migrated", zap.String("driver", cfg.Database.Driver))
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	agencyRepo := repository.NewAgencyRepository(db)
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	// Redis is optional. Without it the status gate reads the database directly.
	var statusCache service.StatusCache
	var redisPinger handler.Pinger
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, agency status cache disabled", zap.Error(err))
		} else {
			defer func() { _ = redisClient.Close() }()
			agencyStatusCache := cache.NewAgencyStatusCache(redisClient, cfg.Auth.StatusCacheDuration())
			statusCache = agencyStatusCache
			redisPinger = agencyStatusCache
			log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	clock := service.NewSystemClock(cfg.App.Location())
	tokens := auth.NewTokenService(&cfg.Auth)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	statusResolver := service.NewAgencyStatusResolver(agencyRepo, statusCache, log)

	authService := service.NewAuthService(userRepo, tokens, hasher, m, clock, log)
	userService := service.NewUserService(userRepo, agencyRepo, hasher, log)
	agencyService := service.NewAgencyService(agencyRepo, statusResolver, fileStorage, log)
	catalogService := service.NewCatalogService(serviceRepo, bookingRepo, log)
	clientService := service.NewClientService(clientRepo, clock, log)
	bookingService := service.NewBookingService(bookingRepo, clientRepo, serviceRepo, m, clock, log)
	analyticsService := service.NewAnalyticsService(bookingRepo, clock, log)

	authMiddleware := auth.NewMiddleware(tokens, statusResolver, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	handlers := router.Handlers{
		Health:    handler.NewHealthHandler(db, redisPinger, log),
		Auth:      handler.NewAuthHandler(authService, log),
		Agency:    handler.NewAgencyHandler(agencyService, cfg.Storage.MaxUploadSizeMB, log),
		User:      handler.NewUserHandler(userService, log),
		Client:    handler.NewClientHandler(clientService, log),
		Service:   handler.NewServiceHandler(catalogService, log),
		Booking:   handler.NewBookingHandler(bookingService, log),
		Analytics: handler.NewAnalyticsHandler(analyticsService, log),
	}

	rt := router.NewRouter(cfg, log, m, authMiddleware, rateLimiter, handlers)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.TravelReminderEnabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterTravelDatesReminderJob(
			scheduler,
			bookingRepo,
			m,
			log,
			clock.Now,
			cfg.Jobs.TravelReminderSchedule,
			cfg.Jobs.TravelReminderDays,
		); err != nil {
			log.Error("Failed to register travel dates reminder job", zap.Error(err))
			scheduler = nil
		} else {
			scheduler.Start()
			log.Info("Scheduler started with travel dates reminder job",
				zap.String("cron_expr", cfg.Jobs.TravelReminderSchedule),
				zap.Int("days", cfg.Jobs.TravelReminderDays),
			)
		}
	} else {
		log.Info("Travel dates reminder disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
