package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"career-progress-service/config"
	"career-progress-service/handlers"
	"career-progress-service/middleware"
	"career-progress-service/models"
	"career-progress-service/services"
	"career-progress-service/utils"
	"career-progress-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	loc, _ := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}

	if err := services.SeedCatalog(ctx, db, models.DefaultBadgeCatalog); err != nil {
		logger.Fatal("failed to seed badge catalog", zap.Error(err))
	}

	hub := services.NewProgressHub(16)
	streakService := services.NewStreakService(db, logger.Named("streak"), hub, loc)
	badgeService := services.NewBadgeService(db, logger.Named("badge"), hub)
	progressionService := services.NewProgressionService(db, logger.Named("progression"), streakService, badgeService)

	sched, err := streakService.StartDecayScheduler(cfg.StreakDecayCron)
	if err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Shutdown()

	if cfg.CatalogSyncURL != "" {
		syncWorker := workers.NewCatalogSyncWorker(db, logger.Named("catalog"), cfg.CatalogSyncURL, cfg.ServiceToken, cfg.CatalogSyncInterval)
		go syncWorker.Run(ctx)
	}

	var icons handlers.IconUploader
	if cfg.R2.Enabled() {
		store, err := utils.NewR2Store(ctx, cfg.R2)
		if err != nil {
			logger.Fatal("failed to initialize R2 client", zap.Error(err))
		}
		icons = store
	} else {
		logger.Warn("⚠️  R2 not configured, badge icon uploads disabled")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Routes registered before the gateway middleware are matched first and
	// never reach it: health checks and the query-token event stream.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if cfg.AuthServiceURL != "" {
		authClient := services.NewAuthServiceClient(cfg.AuthServiceURL, cfg.ServiceToken)
		app.Get("/user/progress/stream",
			middleware.SSEAuthMiddleware(authClient, logger),
			hub.StreamProgressSSE(logger.Named("sse"), 15*time.Second),
		)
	} else {
		logger.Warn("⚠️  AUTH_SERVICE_URL not set, progress stream disabled")
	}

	// 🔐 Everything below must come from the Gateway
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, logger))
	secured := app.Group("/", middleware.UserContextMiddleware(logger))
	admin := app.Group("/s/admin", middleware.RequireRole("admin"))

	handlers.SetupProgressionRoutes(secured, &handlers.ProgressionHandlers{
		Progression: progressionService,
		Badges:      badgeService,
		Log:         logger.Named("http"),
	})
	handlers.SetupBadgeRoutes(secured, admin, &handlers.BadgeHandlers{
		DB:    db,
		Log:   logger.Named("http"),
		Icons: icons,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	logger.Info("✅ Server running", zap.String("port", cfg.Port), zap.String("timezone", loc.String()))

	<-ctx.Done()
	logger.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.DatabaseDriver == "sqlite" {
		return utils.OpenDatabase("sqlite", cfg.SQLitePath())
	}
	return utils.OpenDatabase("postgres", cfg.DatabaseURL)
}
