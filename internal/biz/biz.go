package biz

import (
	"time"

	"github.com/chatmate/chatmate/internal/biz/repo"
	"github.com/chatmate/chatmate/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Gateway *usecase.GatewayUsecase
	Message *usecase.MessageUsecase
	Auth    *usecase.AuthUsecase
	Agent   *usecase.AgentUsecase
}

// Deps are the repositories and settings the usecases are built from
type Deps struct {
	Messages      repo.MessageRepo
	Users         repo.UserRepo
	AgentSessions repo.AgentSessionRepo
	LLM           repo.LLMRepo // nil disables the LLM
	Tokens        usecase.TokenIssuer
	Prompts       usecase.PromptConfig
	LLMTimeout    time.Duration
}

// NewUsecases wires all usecases
func NewUsecases(d Deps) *Usecases {
	gateway := usecase.NewGatewayUsecase(d.LLM, d.Prompts, d.LLMTimeout)
	return &Usecases{
		Gateway: gateway,
		Message: usecase.NewMessageUsecase(d.Messages, d.Users, gateway),
		Auth:    usecase.NewAuthUsecase(d.Users, d.Tokens),
		Agent:   usecase.NewAgentUsecase(d.AgentSessions, d.Messages, d.Users, gateway),
	}
}
