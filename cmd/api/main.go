package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jwebster45206/table-assist/internal/config"
	"github.com/jwebster45206/table-assist/internal/dispatcher"
	"github.com/jwebster45206/table-assist/internal/handlers"
	"github.com/jwebster45206/table-assist/internal/logger"
	"github.com/jwebster45206/table-assist/internal/middleware"
	"github.com/jwebster45206/table-assist/internal/services"
	"github.com/jwebster45206/table-assist/internal/storage"
	"github.com/jwebster45206/table-assist/pkg/fuzzy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Table Assist API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"world_system", cfg.WorldSystem)

	retry := services.RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, Backoff: cfg.RetryBackoff}

	var llmService services.LLMService
	switch strings.ToLower(cfg.LLMProvider) {
	case "anthropic":
		llmService = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, cfg.Temperature, retry, log)
		log.Info("Using Anthropic LLM provider")
	case "openai":
		llmService = services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.ModelName, cfg.Temperature, retry, log)
		log.Info("Using OpenAI LLM provider")
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider, "supported", []string{"openai", "anthropic"})
		os.Exit(1)
	}

	store, err := storage.NewRedisStorage(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx, 10, 2*time.Second); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	worldSystem := cfg.WorldSystem
	if cfg.WorldFile != "" {
		world, err := storage.LoadWorldFile(cfg.WorldFile)
		if err != nil {
			log.Error("Failed to load world file", "error", err, "path", cfg.WorldFile)
			os.Exit(1)
		}
		if err := world.Seed(storageCtx, store); err != nil {
			log.Error("Failed to seed world", "error", err, "path", cfg.WorldFile)
			os.Exit(1)
		}
		if world.System != "" {
			worldSystem = world.System
		}
		log.Info("World seeded",
			"path", cfg.WorldFile,
			"system", worldSystem,
			"users", len(world.Users),
			"actors", len(world.Actors))
	}

	sink := storage.NewChatSink(store, store.Client(), log)
	recent := fuzzy.NewRecentItemContext(cfg.RecentItemTTL, time.Now)
	d := dispatcher.New(store, llmService, sink, fuzzy.NewMatcher(recent), dispatcher.Options{
		WorldSystem:   worldSystem,
		PromptSystem:  cfg.GameSystem,
		CustomPrompt:  cfg.GamePrompt,
		ContextLength: cfg.ContextLength,
	}, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	chatHandler := handlers.NewChatHandler(d, log)
	mux.Handle("/v1/chat", chatHandler)

	chatLogHandler := handlers.NewChatLogHandler(store, sink, log)
	mux.Handle("/v1/chatlog", chatLogHandler)
	mux.Handle("/v1/chatlog/stream", chatLogHandler)

	mux.Handle("/v1/users", handlers.NewUsersHandler(store, log))
	mux.Handle("/v1/models", handlers.NewModelsHandler(llmService, log))

	historyHandler := handlers.NewHistoryHandler(store, cfg.ContextLength, log)
	mux.Handle("/v1/history/", historyHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: completion calls and the chat log stream run long.
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

	log.Info("Server exited")
}
