package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pdfchat-backend/internal/config"
	"pdfchat-backend/internal/database"
	"pdfchat-backend/internal/handlers"
	"pdfchat-backend/internal/logging"
	"pdfchat-backend/internal/middleware"
	"pdfchat-backend/internal/repository"
	"pdfchat-backend/internal/router"
	"pdfchat-backend/internal/services"
	"pdfchat-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	// ──── Step 2: Initialize Logger ────
	logger, err := logging.New(cfg.Env, cfg.LogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("starting pdf chat backend", zap.String("env", cfg.Env))

	// ──── Step 3: Initialize Session Store ────
	var (
		sessionStore repository.SessionStore
		pubsubClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisClients.Close()

		sessionStore = repository.NewRedisSessionRepo(redisClients.Sessions, cfg.SessionTTL)
		pubsubClient = redisClients.PubSub
		logger.Info("redis connected, using shared session store")
	} else {
		memoryStore := repository.NewMemorySessionRepo(cfg.SessionTTL)
		defer memoryStore.Close()

		sessionStore = memoryStore
		logger.Info("REDIS_URL not set, using in-memory session store")
	}

	// ──── Step 4: Initialize Services ────
	sessionAuth := middleware.NewSessionAuth(cfg.SessionSecret, cfg.SessionTTL)
	sessionAuth.SecureCookie = cfg.IsProduction()
	wsHub := websocket.NewHub(pubsubClient, sessionAuth, logger)
	defer wsHub.Close()

	completionClient := services.NewCompletionClient(cfg.OpenAIBaseURL, logger)
	fileExtractService := services.NewFileExtractService()
	chatService := services.NewChatService(
		sessionStore,
		completionClient,
		fileExtractService,
		wsHub,
		cfg.DefaultModel,
		logger,
	)

	// ──── Step 5: Initialize Handlers ────
	appHandler := handlers.NewAppHandler(chatService.DefaultModel(), cfg.AssetsPath, cfg.LogoFile)
	sessionHandler := handlers.NewSessionHandler(chatService, sessionAuth)
	chatHandler := handlers.NewChatHandler(chatService, cfg.MaxUploadBytes())

	// ──── Step 6: Start HTTP Server ────
	r := router.New(
		sessionAuth,
		appHandler,
		sessionHandler,
		chatHandler,
		wsHub,
		cfg.FrontendURL,
		logger,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("pdf chat backend ready",
		zap.String("api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)),
		zap.String("ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port)),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
	<-done
}
