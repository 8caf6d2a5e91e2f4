// chatbridge bridges a live-chat provider's webhook to a retrieval-augmented
// completion service, acknowledging events immediately and delivering the
// answer later through the provider's callback API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/chatbridge/bridge/catalog"
	"github.com/ZanzyTHEbar/chatbridge/bridge/config"
	"github.com/ZanzyTHEbar/chatbridge/bridge/engine"
	"github.com/ZanzyTHEbar/chatbridge/bridge/engine/adapters"
	ports "github.com/ZanzyTHEbar/chatbridge/bridge/engine/ports"
	"github.com/ZanzyTHEbar/chatbridge/bridge/engine/tools"
	"github.com/ZanzyTHEbar/chatbridge/bridge/salesiq"
	"github.com/ZanzyTHEbar/chatbridge/bridge/users"
	"github.com/ZanzyTHEbar/chatbridge/bridge/webhook"
	"github.com/ZanzyTHEbar/chatbridge/bridge/worker"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig(os.Getenv("CHATBRIDGE_CONFIG"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// User-registration database.
	db, err := users.Open(cfg.Users.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open users database")
	}
	defer db.Close()
	userStore := users.NewStore(db, logger)
	logger.Info().Str("path", cfg.Users.DBPath).Msg("users database ready")

	// Price-list catalog with optional hot reload.
	priceCatalog, err := catalog.New(cfg.Catalog.CSVPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load price catalog")
	}
	if cfg.Catalog.Watch {
		go func() {
			if err := priceCatalog.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("price catalog watcher stopped")
			}
		}()
	}

	// Session cache.
	var sessions ports.SessionStore
	switch cfg.Cache.Backend {
	case "memory":
		sessions = adapters.NewMemorySessionStore(cfg.Cache.SessionTTL, cfg.Cache.MaxHistory)
		logger.Info().Msg("using in-memory session store")
	default:
		redisStore := adapters.NewRedisSessionStore(cfg.Cache)
		if err := redisStore.Ping(ctx); err != nil {
			logger.Fatal().Err(err).Msg("redis unreachable")
		}
		defer redisStore.Close()
		sessions = redisStore
		logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("redis session store ready")
	}

	// Provider callback client doubles as the transfer backend.
	callbacks := salesiq.NewClient(cfg.Provider, logger)

	// Tool registry, validated at startup.
	registry, err := engine.NewRegistry(logger, cfg.Engine.ToolTimeout,
		tools.NewAvailabilityTool(),
		tools.NewSaveUserTool(userStore),
		tools.NewPriceListTool(priceCatalog, cfg.Catalog.Note),
		tools.NewTransferTool(callbacks),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("tool registry validation failed")
	}
	logger.Info().Int("tools", len(registry.Specs())).Msg("tool registry ready")

	orchestrator := engine.NewOrchestrator(
		adapters.NewOpenAIProvider(cfg.Completion, logger),
		sessions,
		registry,
		engine.NewPromptBuilder(systemPrompt(cfg)),
		engine.RetryPolicy{
			MaxAttempts: cfg.Engine.RetryMaxAttempts,
			BaseDelay:   cfg.Engine.RetryBaseDelay,
			JitterMax:   cfg.Engine.RetryJitterMax,
		},
		logger,
	)

	supervisor := worker.NewSupervisor(0, logger)
	coordinator := webhook.NewCoordinator(
		webhook.NewVerifier(cfg.Provider.PublicKeyPEM, logger),
		orchestrator,
		callbacks,
		supervisor,
		cfg.Provider.WelcomeText,
		cfg.Provider.PendingText,
		logger,
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      webhook.NewRouter(coordinator),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	// Let scheduled background units deliver their final callbacks.
	supervisor.Wait()
	logger.Info().Msg("bye")
}

func systemPrompt(cfg *config.Config) string {
	if cfg.Engine.SystemPrompt != "" {
		return cfg.Engine.SystemPrompt
	}
	return defaultSystemPrompt
}

const defaultSystemPrompt = `Eres el asistente virtual de la clínica.
Responde SIEMPRE en el idioma en que se hizo la pregunta.

Tu función es responder preguntas de clientes y pacientes utilizando toda la
información disponible sobre la clínica: procedimientos y tratamientos,
precios, médicos y especialistas, horarios, políticas y recomendaciones.

Reglas:
- No incluyas referencias ni nombres de documentos en tus respuestas.
- Responde de manera profesional, clara y con un tono amable y cercano.
- Concéntrate únicamente en dar respuestas útiles, directas y comprensibles.`
