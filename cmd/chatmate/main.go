package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatmate/chatmate/internal/api"
	"github.com/chatmate/chatmate/internal/biz"
	"github.com/chatmate/chatmate/internal/conf"
	"github.com/chatmate/chatmate/internal/data"
	"github.com/chatmate/chatmate/internal/infra/openai"
	"github.com/chatmate/chatmate/internal/infra/token"
	"github.com/chatmate/chatmate/internal/logger"
	"github.com/chatmate/chatmate/internal/server"
	"github.com/chatmate/chatmate/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatmate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := conf.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize clients and repositories
	llmClient := openai.NewClient(cfg.ToOpenAIConfig())
	if llmClient == nil {
		logger.Warn("LLM_API_KEY not set, AI features use local fallbacks")
	}

	repos, err := data.NewRepositories(ctx, cfg, llmClient)
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			logger.Error("close repositories failed", zap.Error(err))
		}
	}()

	// Initialize usecase layer
	uc := biz.NewUsecases(biz.Deps{
		Messages:      repos.Message,
		Users:         repos.User,
		AgentSessions: repos.AgentSession,
		LLM:           repos.LLM,
		Tokens:        token.NewIssuer(cfg.TokenSecret(), cfg.Auth.JWTTTL),
		Prompts:       cfg.ToPromptConfig(),
		LLMTimeout:    cfg.LLM.Timeout,
	})

	// Initialize service layer
	hub := service.NewHub(uc.Message, uc.Auth, uc.Agent, repos.Presence, cfg.Redis.PresenceTTL)
	if cfg.Redis.Enabled() {
		refresher := service.NewPresenceRefresher(hub, repos.Presence, cfg.Redis.PresenceTTL)
		refresher.Start(ctx)
		defer refresher.Stop()
	}

	// Initialize transport
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	ws := server.NewWSServer(hub, uc.Auth, cfg.Server.ClientURL, !cfg.IsProduction())
	handler := api.NewHandler(uc.Auth, uc.Message, uc.Agent, cfg.Server.Env)
	router := api.NewRouter(handler, uc.Auth, api.RouterOptions{
		ClientURL: cfg.Server.ClientURL,
		WS:        ws.Handle,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("chatmate listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("env", cfg.Server.Env),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("llm", uc.Gateway.IsLLMEnabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Close(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	return nil
}
