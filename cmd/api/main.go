package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/tgl-chat/backend/internal/config"
	"github.com/zhouzirui/tgl-chat/backend/internal/handler"
	"github.com/zhouzirui/tgl-chat/backend/internal/logging"
	"github.com/zhouzirui/tgl-chat/backend/internal/service/ai"
	"github.com/zhouzirui/tgl-chat/backend/internal/service/chat"
	leadstore "github.com/zhouzirui/tgl-chat/backend/internal/store/lead"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, continuing with system environment variables only", zap.Error(envErr))
	}

	chatService := chat.NewService()
	responder := newResponder(ctx, cfg.AI, logger)

	leads, err := newLeadStore(cfg.Lead)
	if err != nil {
		logger.Fatal("failed to open lead store", zap.Error(err))
	}
	defer leads.Close()

	router := handler.NewRouter(chatService, responder, leads, logger)

	startServer(ctx, cfg.Server, router, logger)
}

func newResponder(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) ai.Responder {
	if !cfg.Enabled() {
		logger.Info("Ark credentials not configured, using canned replies")
		return ai.NewCannedResponder()
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err == nil {
		var svc *ai.Service
		svc, err = ai.NewService(ctx, chatModel, logger.Named("ai"))
		if err == nil {
			logger.Info("AI service initialized successfully", zap.String("model", cfg.Model))
			return svc
		}
	}

	logger.Warn("failed to initialize AI service, continuing with canned replies", zap.Error(err))
	return ai.NewCannedResponder()
}

func newLeadStore(cfg config.LeadConfig) (leadstore.Store, error) {
	if cfg.StorePath == "" {
		return leadstore.NewMemoryStore(), nil
	}
	return leadstore.NewBoltStore(cfg.StorePath)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("chat gateway listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
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
