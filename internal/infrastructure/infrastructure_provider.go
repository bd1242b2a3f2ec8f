package infrastructure

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"genai-console/internal/config"
	"genai-console/internal/domain/conversation"
	"genai-console/internal/domain/generation"
	"genai-console/internal/infrastructure/database"
	"genai-console/internal/infrastructure/database/repository/conversationrepo"
	"genai-console/internal/infrastructure/logger"
	"genai-console/internal/infrastructure/upstream"
)

// ProvideConfig loads and provides the application configuration
func ProvideConfig() (*config.Config, error) {
	return config.Load()
}

// ProvideLogger builds the process logger from configuration.
func ProvideLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logger.New(cfg.LogLevel, cfg.LogFormat)
}

// ProvideDatabase provides a database connection
func ProvideDatabase(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// Run migrations if AUTO_MIGRATE is enabled
	if cfg.AutoMigrate {
		log.Info().Msg("Running database migrations...")
		if err := database.Migrate(db); err != nil {
			log.Error().Err(err).Msg("Failed to run database migrations")
			return nil, err
		}
		log.Info().Msg("Database migrations completed successfully")
	}

	return db, nil
}

// ProvideConversationRepository provides the conversation persistence layer.
func ProvideConversationRepository(db *gorm.DB) conversation.Repository {
	return conversationrepo.NewConversationRepository(db)
}

// ProvideUpstreamClient provides the generation provider stream opener.
func ProvideUpstreamClient(cfg *config.Config, log zerolog.Logger) generation.StreamOpener {
	return upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamAPIKey, log)
}

// Infrastructure holds all infrastructure dependencies
type Infrastructure struct {
	DB     *gorm.DB
	Logger zerolog.Logger
}

// NewInfrastructure creates a new infrastructure instance
func NewInfrastructure(db *gorm.DB, logger zerolog.Logger) *Infrastructure {
	return &Infrastructure{
		DB:     db,
		Logger: logger,
	}
}

// InfrastructureProvider provides all infrastructure dependencies
var InfrastructureProvider = wire.NewSet(
	// Config
	ProvideConfig,

	// Logger
	ProvideLogger,

	// Database
	ProvideDatabase,

	// Repositories
	ProvideConversationRepository,

	// Upstream provider client
	ProvideUpstreamClient,

	// Infrastructure struct
	NewInfrastructure,
)
