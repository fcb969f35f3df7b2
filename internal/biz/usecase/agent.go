package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/repo"
	"github.com/chatmate/chatmate/internal/logger"
)

// AgentHistoryLimit caps the messages fetched for one analysis
const AgentHistoryLimit = 100

// Agent replies
const (
	replyApology = "Sorry, I encountered an error. Please try again."

	replyAskDuration  = "Great! I can help you continue your conversation. First, let me know - would you like me to analyze your chat history from the last 1 day or 1 week to provide better suggestions?"
	replyAskPartner   = "I can help you start a new conversation! Tell me a bit about the person you want to chat with. Are they a friend, colleague, someone you're interested in romantically, or someone else?"
	replyAskRequest   = "Sure! Tell me what you need help with."
	replyMenu         = "Hi there! 👋 I'm your chat assistant. How can I help you today?\n\n1. Get suggestions to continue an existing conversation\n2. Help you start a new conversation with someone\n3. Any other specific request\n\nJust let me know what you'd like to do!"
	replyDayChosen    = "Got it! I'll analyze your chat history from the last 1 day. Please provide the user ID or phone number of the person you want to continue chatting with."
	replyWeekChosen   = "Perfect! I'll analyze your chat history from the last 1 week. Please provide the user ID or phone number of the person you want to continue chatting with."
	replyPickDuration = "Please choose either '1 day' or '1 week' for the chat history analysis."
	replyNoPartner    = "No user found with this ID or phone number. Please check and try again."
	replyNoMessages   = "No recent messages found with this person. Would you like me to help you start a new conversation instead?"
	replySuggestions  = "Based on your chat history, here are 3 message suggestions:\n\n%s\n\nWould you like 3 more suggestions? (yes/no)"
	replyMore         = "Here are 3 more suggestions:\n\n%s\n\nWould you like even more suggestions? (yes/no)"
	replyFarewell     = "You're welcome! Feel free to ask for help anytime. Have a great conversation! 😊"
	replyYesNo        = "Please respond with 'yes' for more suggestions or 'no' if you're satisfied."
	replyAskTopic     = "Great! Now tell me, what would you like to talk about with them? (e.g., asking about their day, sharing something interesting, making plans, etc.)"
	replyStarter      = "Here's a great conversation starter:\n\n%s\n\nFeel free to ask for more suggestions anytime!"
	replyHistory      = "I can help with that! Would you like me to analyze your chat history from the last 1 day or 1 week?"
)

// transition is the outcome of one agent step.
// A nil next stage clears the session.
type transition struct {
	next  domain.AgentStage
	reply string
}

func advance(stage domain.AgentStage, reply string) transition {
	return transition{next: stage, reply: reply}
}

func finish(reply string) transition {
	return transition{reply: reply}
}

// AgentUsecase drives the scripted suggestion agent
type AgentUsecase struct {
	sessionRepo repo.AgentSessionRepo
	messageRepo repo.MessageRepo
	userRepo    repo.UserRepo
	gateway     *GatewayUsecase
	now         func() time.Time
	log         *zap.Logger
}

// NewAgentUsecase creates a new agent usecase
func NewAgentUsecase(
	sessionRepo repo.AgentSessionRepo,
	messageRepo repo.MessageRepo,
	userRepo repo.UserRepo,
	gateway *GatewayUsecase,
) *AgentUsecase {
	return &AgentUsecase{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		now:         time.Now,
		log:         logger.Named("agent"),
	}
}

// HandleMessage runs one step of the dialogue and returns the reply.
// On error the session is left unchanged and a fixed apology is returned.
func (uc *AgentUsecase) HandleMessage(ctx context.Context, userID, text string) string {
	reply, err := uc.handle(ctx, userID, text)
	if err != nil {
		uc.log.Error("agent step failed", zap.String("user_id", userID), zap.Error(err))
		return replyApology
	}
	return reply
}

func (uc *AgentUsecase) handle(ctx context.Context, userID, text string) (string, error) {
	session, err := uc.loadSession(ctx, userID)
	if err != nil {
		return "", err
	}

	raw := strings.TrimSpace(text)
	msg := strings.ToLower(raw)

	var t transition
	switch stage := session.Stage.(type) {
	case domain.StageAskingDuration:
		t = uc.onAskingDuration(msg)
	case domain.StageAnalyzing:
		t, err = uc.onAnalyzing(ctx, userID, raw, stage)
	case domain.StageSuggestions:
		t, err = uc.onSuggestions(ctx, userID, msg, stage)
	case domain.StageCustomRequest:
		t = uc.onCustomRequest(ctx, msg, stage)
	default:
		t = uc.onGreeting(msg)
	}
	if err != nil {
		return "", err
	}

	if t.next == nil {
		if err := uc.sessionRepo.Delete(ctx, userID); err != nil {
			return "", fmt.Errorf("delete session: %w", err)
		}
		return t.reply, nil
	}

	session.Advance(t.next)
	if err := uc.sessionRepo.Save(ctx, session); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return t.reply, nil
}

// loadSession gets the session of a user or starts a new one at greeting
func (uc *AgentUsecase) loadSession(ctx context.Context, userID string) (*domain.AgentSession, error) {
	session, err := uc.sessionRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		session = domain.NewAgentSession(userID)
	}
	return session, nil
}

// ========== Stage handlers ==========

func (uc *AgentUsecase) onGreeting(msg string) transition {
	switch {
	case containsAny(msg, "suggest", "continue", "chat"):
		return advance(domain.StageAskingDuration{}, replyAskDuration)
	case containsAny(msg, "initiate", "start", "new"):
		return advance(domain.StageCustomRequest{Initiate: true}, replyAskPartner)
	case containsAny(msg, "other", "request"):
		return advance(domain.StageCustomRequest{}, replyAskRequest)
	default:
		return advance(domain.StageGreeting{}, replyMenu)
	}
}

func (uc *AgentUsecase) onAskingDuration(msg string) transition {
	switch {
	case strings.Contains(msg, "day"):
		return advance(domain.StageAnalyzing{Duration: domain.DurationOneDay}, replyDayChosen)
	case strings.Contains(msg, "week"):
		return advance(domain.StageAnalyzing{Duration: domain.DurationOneWeek}, replyWeekChosen)
	default:
		return advance(domain.StageAskingDuration{}, replyPickDuration)
	}
}

func (uc *AgentUsecase) onAnalyzing(ctx context.Context, userID, identifier string, stage domain.StageAnalyzing) (transition, error) {
	partner, err := uc.userRepo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return transition{}, fmt.Errorf("resolve partner: %w", err)
	}
	if partner == nil {
		return advance(stage, replyNoPartner), nil
	}

	history, err := uc.history(ctx, userID, partner.UserID, stage.Duration)
	if err != nil {
		return transition{}, err
	}
	if len(history) == 0 {
		return advance(stage, replyNoMessages), nil
	}

	suggestions := uc.gateway.Suggest(ctx, BuildSuggestRequest(userID, history, false))
	next := domain.StageSuggestions{
		PartnerID:   partner.UserID,
		Duration:    stage.Duration,
		Batch:       1,
		Suggestions: suggestions,
	}
	return advance(next, fmt.Sprintf(replySuggestions, suggestions)), nil
}

func (uc *AgentUsecase) onSuggestions(ctx context.Context, userID, msg string, stage domain.StageSuggestions) (transition, error) {
	switch {
	case containsAny(msg, "yes", "more"):
		history, err := uc.history(ctx, userID, stage.PartnerID, stage.Duration)
		if err != nil {
			return transition{}, err
		}
		suggestions := uc.gateway.Suggest(ctx, BuildSuggestRequest(userID, history, true))
		stage.Batch++
		stage.Suggestions = suggestions
		return advance(stage, fmt.Sprintf(replyMore, suggestions)), nil
	case containsAny(msg, "no", "thank"):
		return finish(replyFarewell), nil
	default:
		return advance(stage, replyYesNo), nil
	}
}

func (uc *AgentUsecase) onCustomRequest(ctx context.Context, msg string, stage domain.StageCustomRequest) transition {
	if stage.Initiate {
		if stage.Relationship == "" {
			stage.Relationship = msg
			return advance(stage, replyAskTopic)
		}
		starter := uc.gateway.ConversationStarter(ctx, stage.Relationship, msg)
		return finish(fmt.Sprintf(replyStarter, starter))
	}

	if containsAny(msg, "chat", "history") {
		return advance(domain.StageAskingDuration{}, replyHistory)
	}
	return finish(uc.gateway.GeneralHelp(ctx, msg))
}

// history fetches the conversation window, oldest first
func (uc *AgentUsecase) history(ctx context.Context, userID, partnerID string, d domain.HistoryDuration) ([]domain.Message, error) {
	msgs, err := uc.messageRepo.ListSince(ctx, userID, partnerID, d.Since(uc.now()), AgentHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return msgs, nil
}

// ClearSession deletes the session of a user, no error if none exists
func (uc *AgentUsecase) ClearSession(ctx context.Context, userID string) error {
	if err := uc.sessionRepo.Delete(ctx, userID); err != nil {
		return domain.NewStoreError("clear agent session", err)
	}
	return nil
}

// Stage returns the current stage of a user, greeting if no session exists
func (uc *AgentUsecase) Stage(ctx context.Context, userID string) (domain.AgentStage, error) {
	session, err := uc.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	return session.Stage, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
