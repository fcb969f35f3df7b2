package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/usecase"
	"github.com/chatmate/chatmate/internal/logger"
)

// ErrEmptyText is returned by tools that need text to work on
var ErrEmptyText = errors.New("text is required")

// Server exposes the message gateway as MCP tools
type Server struct {
	server  *mcp.Server
	gateway *usecase.GatewayUsecase
	log     *zap.Logger
}

// NewServer creates a new MCP server and registers its tools
func NewServer(gateway *usecase.GatewayUsecase, version string) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "chatmate-tools",
			Version: version,
		}, nil),
		gateway: gateway,
		log:     logger.Named("mcp"),
	}
	s.registerTools()
	return s
}

// Run serves the tools over stdio until the client disconnects or ctx is done
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("mcp server running on stdio", zap.Bool("llm", s.gateway.IsLLMEnabled()))
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "annotate_message",
		Description: "Classify a chat message: language, tone, relationship, sentiment, keywords and whether it asks or answers a question.",
	}, s.handleAnnotate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "correct_grammar",
		Description: "Fix grammar and spelling of a message while keeping its meaning. Returns the text unchanged if no model is configured.",
	}, s.handleCorrectGrammar)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "adjust_tone",
		Description: "Rewrite a message in another tone: " + strings.Join(s.gateway.Tones(), ", ") + ". The neutral tone leaves it unchanged.",
	}, s.handleAdjustTone)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "room_id",
		Description: "Get the chat room identifier shared by two users.",
	}, s.handleRoomID)
}

// TextInput is the input of the single-text tools
type TextInput struct {
	Text string `json:"text" jsonschema:"the message text"`
}

// AnnotateOutput is the output of annotate_message
type AnnotateOutput struct {
	Annotation domain.Annotation `json:"annotation"`
}

func (s *Server) handleAnnotate(ctx context.Context, req *mcp.CallToolRequest, input TextInput) (*mcp.CallToolResult, AnnotateOutput, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, AnnotateOutput{}, ErrEmptyText
	}
	return nil, AnnotateOutput{Annotation: s.gateway.AnalyzeForAnnotation(ctx, text)}, nil
}

// RewriteOutput is the output of the rewriting tools
type RewriteOutput struct {
	Text    string `json:"text"`
	Changed bool   `json:"changed"`
}

func (s *Server) handleCorrectGrammar(ctx context.Context, req *mcp.CallToolRequest, input TextInput) (*mcp.CallToolResult, RewriteOutput, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, RewriteOutput{}, ErrEmptyText
	}
	out := s.gateway.CorrectGrammar(ctx, text)
	return nil, RewriteOutput{Text: out, Changed: out != text}, nil
}

// AdjustToneInput is the input of adjust_tone
type AdjustToneInput struct {
	Text string `json:"text" jsonschema:"the message text"`
	Tone string `json:"tone" jsonschema:"target tone, one of the tones listed in the tool description"`
}

func (s *Server) handleAdjustTone(ctx context.Context, req *mcp.CallToolRequest, input AdjustToneInput) (*mcp.CallToolResult, RewriteOutput, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, RewriteOutput{}, ErrEmptyText
	}
	tone := strings.ToLower(strings.TrimSpace(input.Tone))
	if tone == "" || tone == "neutral" {
		return nil, RewriteOutput{Text: text}, nil
	}
	out := s.gateway.AdjustTone(ctx, text, tone)
	return nil, RewriteOutput{Text: out, Changed: out != text}, nil
}

// RoomIDInput is the input of room_id
type RoomIDInput struct {
	UserA string `json:"user_a" jsonschema:"first user ID"`
	UserB string `json:"user_b" jsonschema:"second user ID"`
}

// RoomIDOutput is the output of room_id
type RoomIDOutput struct {
	RoomID string `json:"room_id"`
}

func (s *Server) handleRoomID(ctx context.Context, req *mcp.CallToolRequest, input RoomIDInput) (*mcp.CallToolResult, RoomIDOutput, error) {
	a, b := strings.TrimSpace(input.UserA), strings.TrimSpace(input.UserB)
	if a == "" || b == "" {
		return nil, RoomIDOutput{}, errors.New("user_a and user_b are required")
	}
	return nil, RoomIDOutput{RoomID: domain.RoomID(a, b)}, nil
}
