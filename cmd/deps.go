package cmd

import (
	"context"
	"strings"

	"github.com/spigell/ai-interviewer/internal/ai"
	"github.com/spigell/ai-interviewer/internal/ai/gemini"
	"github.com/spigell/ai-interviewer/internal/evaluation"
	"github.com/spigell/ai-interviewer/internal/interview"
	"github.com/spigell/ai-interviewer/internal/questions"
	"github.com/spigell/ai-interviewer/internal/secrets"
	"github.com/spigell/ai-interviewer/internal/storage/memory"
	"github.com/spigell/ai-interviewer/internal/storage/sqlite"
	"go.uber.org/zap"
)

// newTextGenerator builds the Gemini backend when a usable API key is
// configured. It returns nil otherwise: a missing or broken backend never
// blocks the service, it only routes generation and evaluation to the local
// fallbacks.
func newTextGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) ai.TextGenerator {
	if cfg != nil {
		provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
		if provider != "" && provider != "gemini" {
			logger.Warn("unsupported ai provider, generative backend disabled",
				zap.String("provider", cfg.Provider),
			)
			return nil
		}
	}

	var gcfg GeminiConfig
	if cfg != nil && cfg.Gemini != nil {
		gcfg = *cfg.Gemini
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gcfg.APIKey,
		File:  gcfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		logger.Warn("generative backend disabled, using local fallbacks", zap.Error(err))
		return nil
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model)
	if err != nil {
		logger.Warn("generative backend unavailable, using local fallbacks", zap.Error(err))
		return nil
	}

	logger.Info("generative backend enabled",
		zap.String("provider", "gemini"),
		zap.String("model", generator.Model()),
	)

	return generator
}

// newSessionStore selects the storage backend once at startup: a configured
// and openable SQLite path wins, anything else degrades to volatile memory
// with a warning. The returned closer is a no-op for the memory store.
func newSessionStore(cfg *StorageConfig, logger *zap.Logger) (interview.SessionStore, func() error) {
	path := ""
	if cfg != nil {
		path = strings.TrimSpace(cfg.Path)
	}

	if path == "" {
		logger.Warn("no database path configured, session data will be ephemeral")
		return memory.NewStore(), func() error { return nil }
	}

	store, err := sqlite.NewStore(path)
	if err != nil {
		logger.Warn("opening database failed, session data will be ephemeral",
			zap.String("path", path),
			zap.Error(err),
		)
		return memory.NewStore(), func() error { return nil }
	}

	logger.Info("using sqlite storage", zap.String("path", path))
	return store, store.Close
}

// newManager wires the full interview pipeline behind a lifecycle manager.
func newManager(ctx context.Context, config *Config, store interview.SessionStore, logger *zap.Logger) *interview.Manager {
	maxLogLen := 0
	if config.AI != nil {
		maxLogLen = config.AI.MaxLogLength
	}

	generator := newTextGenerator(ctx, config.AI, logger)
	provider := questions.NewProvider(generator, logger, maxLogLen)
	engine := evaluation.NewEngine(generator, logger, maxLogLen)

	return interview.NewManager(provider, engine, store, logger)
}

func defaultRole(config *Config) string {
	if config.DefaultRole != "" {
		return config.DefaultRole
	}
	return "SDE Intern"
}
