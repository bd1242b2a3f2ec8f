package domain

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"genai-console/internal/config"
	"genai-console/internal/domain/auth"
	"genai-console/internal/domain/conversation"
	"genai-console/internal/domain/generation"
	"genai-console/internal/domain/model"
	"genai-console/internal/infrastructure/attachments"
)

// ServiceProvider provides all domain services
var ServiceProvider = wire.NewSet(
	ProvideGuard,
	ProvideModelRegistry,
	ProvideConversationService,
	ProvideGenerationService,
)

// ProvideGuard wires the session guard from console credentials.
func ProvideGuard(cfg *config.Config, log zerolog.Logger) *auth.Guard {
	window := auth.NewFailureWindow(cfg.LoginMaxFails, cfg.LoginFailWindow)
	return auth.NewGuard(
		cfg.ConsoleUsername,
		cfg.ConsolePassword,
		cfg.TokenSecret,
		cfg.TokenTTL,
		window,
		log,
	)
}

// ProvideModelRegistry wires the model catalog, optionally from a YAML file.
func ProvideModelRegistry(cfg *config.Config, log zerolog.Logger) (*model.Registry, error) {
	return model.NewRegistry(cfg.ModelCatalogFile, log)
}

// ProvideConversationService wires conversation persistence with the store budget.
func ProvideConversationService(repo conversation.Repository, cfg *config.Config, log zerolog.Logger) *conversation.Service {
	return conversation.NewService(repo, cfg.StoreBudgetBytes, log)
}

// ProvideGenerationService wires the streaming relay service.
func ProvideGenerationService(
	upstream generation.StreamOpener,
	conversations *conversation.Service,
	models *model.Registry,
	cfg *config.Config,
	log zerolog.Logger,
) *generation.Service {
	return generation.NewService(
		upstream,
		conversations,
		models,
		attachments.Factory(log),
		cfg.RequestTimeout,
		log,
	)
}
