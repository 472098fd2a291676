package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/blood-donation-support-server/internal/api"
	"github.com/blood-donation-support-server/internal/cache"
	"github.com/blood-donation-support-server/internal/config"
	"github.com/blood-donation-support-server/internal/database"
	"github.com/blood-donation-support-server/internal/domain"
	"github.com/blood-donation-support-server/internal/donationlog"
	"github.com/blood-donation-support-server/internal/notify"
	"github.com/blood-donation-support-server/internal/repository"
	"github.com/blood-donation-support-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := setupLogger(cfg.Logging)

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, configManager, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, configManager *config.Manager, cfg *domain.Config, logger *logrus.Logger) error {
	var (
		questionnaires domain.QuestionnaireSource
		appointments   domain.AppointmentStore
		events         domain.EventSource
		inventory      domain.InventorySource
		emergencies    domain.EmergencyRequestStore
	)

	if cfg.Database.Enabled {
		if err := database.Migrate(ctx, cfg.Database, logger); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}

		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()

		questionnaires = repository.NewQuestionnaireRepository(db.Pool, logger)
		appointments = repository.NewAppointmentRepository(db.Pool, logger)
		events = repository.NewEventRepository(db.Pool, logger)
		inventory = repository.NewInventoryRepository(db.Pool, logger)
		emergencies = repository.NewEmergencyRepository(db.Pool, logger)
	} else {
		logger.Warn("Database disabled, using in-memory stores")
		store := repository.NewMemoryStore()
		questionnaires = store
		appointments = store
		events = store
		inventory = store
		emergencies = store
	}

	donations, err := openDonationLog(cfg, logger)
	if err != nil {
		return fmt.Errorf("donation log initialization failed: %w", err)
	}
	defer donations.Close()

	// Questionnaires are read-mostly; serve them through the cache.
	var redisClient *redis.Client
	if cfg.Cache.RedisEnabled {
		opts, err := redis.ParseURL(configManager.GetRedisConnectionString())
		if err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	cachedQuestionnaires, err := cache.NewQuestionnaireCache(questionnaires, cfg.Cache, redisClient, logger)
	if err != nil {
		return fmt.Errorf("questionnaire cache initialization failed: %w", err)
	}

	// Notification fan-out: live WebSocket subscribers plus the optional
	// outbound webhook.
	hub := api.NewEventHub(logger)
	dispatchers := notify.Fanout{hub}
	if cfg.Notify.WebhookURL != "" {
		dispatchers = append(dispatchers, notify.NewWebhookDispatcher(cfg.Notify, logger))
	}

	registration := service.NewRegistrationService(
		logger,
		cachedQuestionnaires,
		appointments,
		events,
		inventory,
		emergencies,
		donations,
		dispatchers,
	)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting blood donation support server")

	server := api.NewServer(cfg.Server, registration, hub, logger, configManager.IsDevelopment())
	return server.Start(ctx)
}

// openDonationLog selects the donation log backend from configuration.
func openDonationLog(cfg *domain.Config, logger *logrus.Logger) (donationlog.Store, error) {
	switch cfg.DonationLog.Driver {
	case "postgres":
		logger.Info("Donation log backed by PostgreSQL")
		return donationlog.NewPostgresStoreFromURL(database.URL(cfg.Database))
	default:
		logger.WithField("path", cfg.DonationLog.Path).Info("Donation log backed by SQLite")
		return donationlog.NewSQLiteStore(cfg.DonationLog.Path)
	}
}

func setupLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch cfg.Output {
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		logger.SetOutput(os.Stdout)
	}

	return logger
}
