package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/roadwatch/backend/internal/config"
	"github.com/roadwatch/backend/internal/delivery/http"
	"github.com/roadwatch/backend/internal/domain"
	"github.com/roadwatch/backend/internal/eventbus"
	"github.com/roadwatch/backend/internal/repository/file"
	"github.com/roadwatch/backend/internal/repository/postgres"
	"github.com/roadwatch/backend/internal/repository/redis"
	"github.com/roadwatch/backend/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using system environment")
	}

	cfg := config.Load()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Dependency Injection: hazard data, first configured source wins
	hazards, closeHazards := hazardProvider(ctx, cfg)
	defer closeHazards()

	location := service.NewPushLocationProvider()
	router := service.NewOSRMRouter(cfg.OSRMURL, cfg.RoutingTimeout)
	deps := service.Deps{
		Hazards:  hazards,
		Location: location,
		Router:   router,
		Logger:   log.StandardLogger(),
	}
	healthDeps := map[string]http.HealthChecker{"routing": router}
	if checker, ok := hazards.(http.HealthChecker); ok {
		healthDeps["hazards"] = checker
	}

	// Alert fan-out
	if cfg.RedisURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		store, err := redis.NewAlertStore(connectCtx, cfg.RedisURL, cfg.AlertCooldown)
		cancel()
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, using in-memory alert cooldown")
		} else {
			deps.Cooldown = store
			deps.Publishers = append(deps.Publishers, store)
			healthDeps["redis"] = store
			log.Info("Connected to Redis")
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		deps.Publishers = append(deps.Publishers, eventbus.NewAlertBus(cfg.KafkaBrokers, cfg.KafkaAlertTopic))
		log.WithFields(log.Fields{
			"brokers": cfg.KafkaBrokers,
			"topic":   cfg.KafkaAlertTopic,
		}).Info("Publishing alerts to Kafka")
	}

	nav := service.NewNavigator(*cfg, deps)
	nav.Start(ctx)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "RoadWatch Navigator v1.0",
		ReadTimeout:  10 * time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	handler := http.NewHandler(nav, location, log.StandardLogger())
	for name, dep := range healthDeps {
		handler.WithDependency(name, dep)
	}
	http.SetupRoutes(app, handler)

	// Graceful shutdown
	go func() {
		log.Infof("Server starting on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Fatal("Server error")
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down server...")
	// close the session first so SSE streams end and the listener can drain
	if err := nav.Close(); err != nil {
		log.WithError(err).Warn("Failed to close alert publishers")
	}
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.WithError(err).Warn("Server forced to shutdown")
	}
	log.Info("Server exited gracefully")
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
}

// hazardProvider picks the hazard source: file, database, HTTP API, then the
// built-in demo data.
func hazardProvider(ctx context.Context, cfg *config.Config) (domain.HazardProvider, func()) {
	noop := func() {}

	if cfg.HazardFile != "" {
		log.WithField("file", cfg.HazardFile).Info("Using static hazard file")
		return file.NewCatalogFile(cfg.HazardFile), noop
	}

	if cfg.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
		if err == nil {
			err = pool.Ping(connectCtx)
			if err != nil {
				pool.Close()
			}
		}
		if err != nil {
			log.WithError(err).Warn("Could not connect to database")
		} else {
			log.Info("Connected to PostgreSQL")
			return postgres.NewHazardRepository(pool), pool.Close
		}
	}

	if cfg.HazardAPIURL != "" {
		log.WithField("url", cfg.HazardAPIURL).Info("Using hazard API")
		return service.NewHTTPHazardProvider(cfg.HazardAPIURL, cfg.ProviderTimeout), noop
	}

	log.Info("Running with mock hazard data only")
	return postgres.NewMockRepository(), noop
}
