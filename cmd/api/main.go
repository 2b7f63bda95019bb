package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/moodmate/backend/internal/config"
	"github.com/zhouzirui/moodmate/backend/internal/handler"
	"github.com/zhouzirui/moodmate/backend/internal/logging"
	"github.com/zhouzirui/moodmate/backend/internal/model/persona"
	"github.com/zhouzirui/moodmate/backend/internal/service/ai"
	"github.com/zhouzirui/moodmate/backend/internal/service/mood"
	"github.com/zhouzirui/moodmate/backend/internal/service/session"
	"github.com/zhouzirui/moodmate/backend/internal/service/turn"
	"github.com/zhouzirui/moodmate/backend/internal/view"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Warn("failed to load .env file, continuing with system environment variables only", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", "err", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		log.Fatal("failed to build logger", "err", err)
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		logger.Fatal("failed to initialize chat model", "provider", cfg.AI.Provider, "err", err)
	}
	if cfg.AI.Provider == config.ProviderGroq && cfg.AI.APIKey == "" {
		logger.Warn("GROQ_API_KEY is not set, every reply will be an error message")
	}
	logger.Info("chat model ready", "provider", cfg.AI.Provider, "model", cfg.AI.ModelName())

	companion := persona.MoodMate()
	store := session.NewStore()
	store.GetOrInit()

	moodService, err := mood.NewService(ctx, chatModel, mood.Config{
		Source:       cfg.Mood.Source,
		HistoryLimit: cfg.Mood.HistoryLimit,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize mood service", "err", err)
	}
	logger.Info("mood chart source", "source", moodService.Source())

	hub := view.NewHub(companion, moodService, logger)
	controller := turn.NewController(store, ai.NewClient(chatModel, companion, logger), hub, logger)

	router := handler.NewRouter(companion, store, controller, hub, logger)

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *log.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("MoodMate backend listening", "addr", addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", "err", err)
	}
	logger.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
