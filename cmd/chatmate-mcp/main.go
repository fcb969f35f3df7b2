package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chatmate/chatmate/internal/biz/usecase"
	"github.com/chatmate/chatmate/internal/conf"
	"github.com/chatmate/chatmate/internal/data"
	"github.com/chatmate/chatmate/internal/infra/openai"
	"github.com/chatmate/chatmate/internal/logger"
	"github.com/chatmate/chatmate/internal/mcp"
)

var version = "dev"

// chatmate-mcp serves the message tools to MCP clients over stdio.
// Stdout carries the protocol, so logs go to stderr.
func main() {
	cfg, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatmate-mcp: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitTo(os.Stderr, cfg.Log.Level, "json"); err != nil {
		fmt.Fprintf(os.Stderr, "chatmate-mcp: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	llm := data.NewLLMRepo(openai.NewClient(cfg.ToOpenAIConfig()))
	gateway := usecase.NewGatewayUsecase(llm, cfg.ToPromptConfig(), cfg.LLM.Timeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mcp.NewServer(gateway, version).Run(ctx); err != nil && ctx.Err() == nil {
		logger.Errorf("mcp server stopped: %v", err)
		os.Exit(1)
	}
}
