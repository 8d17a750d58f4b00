package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jwebster45206/anima-narrator/internal/config"
	"github.com/jwebster45206/anima-narrator/internal/handlers"
	"github.com/jwebster45206/anima-narrator/internal/logger"
	"github.com/jwebster45206/anima-narrator/internal/middleware"
	"github.com/jwebster45206/anima-narrator/internal/services"
	"github.com/jwebster45206/anima-narrator/internal/services/events"
	"github.com/jwebster45206/anima-narrator/internal/storage"
	"github.com/jwebster45206/anima-narrator/internal/telemetry"
	"github.com/jwebster45206/anima-narrator/pkg/engine"
	"github.com/jwebster45206/anima-narrator/pkg/roll"
	"github.com/jwebster45206/anima-narrator/pkg/scenario"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Anima Narrator API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"storage", cfg.StorageBackend)

	shutdownTracing, err := telemetry.Setup(context.Background(), "anima-narrator", cfg.Environment, cfg.OtelEndpoint)
	if err != nil {
		log.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}

	var llmService services.LLMService
	switch cfg.LLMProvider {
	case "anthropic":
		llmService = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, log)
		log.Info("Using Anthropic LLM provider")
	case "venice":
		llmService = services.NewVeniceService(cfg.VeniceAPIKey, cfg.ModelName, log)
		log.Info("Using Venice LLM provider")
	case "mock":
		llmService = services.NewMockLLMAPI()
		log.Warn("Using mock LLM provider; every turn gets the same canned narration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := llmService.InitModel(ctx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	var (
		store storage.Storage
		bus   events.Bus
	)
	switch cfg.StorageBackend {
	case "redis":
		rs, err := storage.NewRedisStorage(cfg.RedisURL, cfg.SessionTTL, log)
		if err != nil {
			log.Error("Invalid Redis configuration", "error", err)
			os.Exit(1)
		}
		if err := rs.WaitForConnection(ctx, 30, 2*time.Second); err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		store = rs
		bus = events.NewBroadcaster(rs.Client(), log)
	case "sqlite":
		ss, err := storage.OpenSQLite(cfg.SQLitePath, cfg.SessionTTL, log)
		if err != nil {
			log.Error("Failed to open storage", "error", err, "path", cfg.SQLitePath)
			os.Exit(1)
		}
		store = ss
		bus = events.NewHub()
		go purgeExpired(ss, cfg.SessionTTL, log)
	}
	log.Info("Storage connection established successfully")

	catalog, err := scenario.LoadDir(filepath.Join(cfg.DataDir, "scenario"), log)
	if err != nil {
		log.Error("Failed to load scenario content", "error", err)
		os.Exit(1)
	}
	if err := catalog.Validate(); err != nil {
		log.Error("Scenario content is invalid", "error", err)
		os.Exit(1)
	}
	log.Info("Scenario content loaded",
		"classes", len(catalog.Classes),
		"rooms", len(catalog.Rooms))

	narrator := services.NewNarratorService(llmService, cfg.ContentRating, cfg.NarratorTimeout, log)
	reducer := engine.NewReducer(roll.NewResolver(nil, cfg.MaxDicePerRoll), log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{"storage": store}, log)
	mux.Handle("/health", healthHandler)

	catalogHandler := handlers.NewCatalogHandler(log, catalog)
	mux.Handle("/v1/classes", catalogHandler)

	gameHandler := handlers.NewGameHandler(store, catalog, reducer, narrator, bus, log,
		handlers.WithLockTTL(cfg.NarratorTimeout+30*time.Second))
	gameHandler.Register(mux)

	mux.Handle("GET /v1/games/{id}/events", handlers.NewEventsHandler(bus, log))
	mux.Handle("GET /v1/games/{id}/journal.pdf", handlers.NewJournalHandler(store, log))

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the events stream stays open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	log.Info("Server exited")
}

// purgeExpired sweeps expired SQLite games; Redis expires keys itself.
func purgeExpired(s *storage.SQLiteStorage, ttl time.Duration, log *slog.Logger) {
	interval := min(ttl/4, time.Hour)
	if interval <= 0 {
		interval = time.Hour
	}
	for range time.Tick(interval) {
		n, err := s.PurgeExpired(context.Background())
		if err != nil {
			logger.WithError(log, err).Warn("Failed to purge expired games")
			continue
		}
		if n > 0 {
			log.Info("Purged expired games", "count", n)
		}
	}
}
