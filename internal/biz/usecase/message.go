package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/repo"
	"github.com/chatmate/chatmate/internal/logger"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// MessageUsecase handles the message pipeline (annotate, store, read state)
type MessageUsecase struct {
	messageRepo repo.MessageRepo
	userRepo    repo.UserRepo
	gateway     *GatewayUsecase
	now         func() time.Time
	log         *zap.Logger
}

// NewMessageUsecase creates a new message usecase
func NewMessageUsecase(
	messageRepo repo.MessageRepo,
	userRepo repo.UserRepo,
	gateway *GatewayUsecase,
) *MessageUsecase {
	return &MessageUsecase{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		now:         time.Now,
		log:         logger.Named("message"),
	}
}

// SendRequest represents a message send request
type SendRequest struct {
	Sender       string
	Receiver     string
	Text         string
	OriginalText string
	AIProcessed  bool
	Deliver      bool // Recipient holds a live connection
}

// Send annotates and stores a message, then marks it delivered if requested
func (uc *MessageUsecase) Send(ctx context.Context, req SendRequest) (*domain.Message, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, domain.NewValidationError("Message cannot be empty.")
	}
	if req.Receiver == "" {
		return nil, domain.NewValidationError("Receiver is required")
	}

	// Embedding runs alongside annotation
	gateway := uc.gateway
	embedded := make(chan []float32, 1)
	go func() {
		embedded <- gateway.Embed(ctx, text)
	}()
	annotation := gateway.AnalyzeForAnnotation(ctx, text)

	msg := &domain.Message{
		Sender:       req.Sender,
		Receiver:     req.Receiver,
		Text:         text,
		OriginalText: req.OriginalText,
		AIProcessed:  req.AIProcessed,
		Annotation:   annotation,
		Embedding:    <-embedded,
	}
	if err := uc.messageRepo.Save(ctx, msg); err != nil {
		return nil, domain.NewStoreError("save message", err)
	}

	if req.Deliver {
		if err := uc.messageRepo.MarkDelivered(ctx, msg.ID); err != nil {
			// The message is stored; only the flag is stale
			uc.log.Warn("mark delivered failed", zap.String("message_id", msg.ID), zap.Error(err))
		} else {
			msg.MarkDelivered()
		}
	}
	return msg, nil
}

// List returns one page of the conversation between caller and partner, oldest first
func (uc *MessageUsecase) List(ctx context.Context, caller, partner string, page, limit int) ([]domain.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	msgs, err := uc.messageRepo.ListBetween(ctx, caller, partner, (page-1)*limit, limit)
	if err != nil {
		return nil, domain.NewStoreError("list messages", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Conversations returns one summary per partner, most recent first
func (uc *MessageUsecase) Conversations(ctx context.Context, caller string) ([]domain.ConversationSummary, error) {
	msgs, err := uc.messageRepo.ListInvolving(ctx, caller)
	if err != nil {
		return nil, domain.NewStoreError("list conversations", err)
	}

	summaries := domain.GroupConversations(caller, msgs)
	for i := range summaries {
		partner, err := uc.userRepo.FindByUserID(ctx, summaries[i].PartnerID)
		if err != nil {
			return nil, domain.NewStoreError("find partner", err)
		}
		if partner != nil {
			summaries[i].Partner = partner.Profile()
		}
	}
	return summaries, nil
}

// MarkConversationRead marks every unread message from partner to caller as read
func (uc *MessageUsecase) MarkConversationRead(ctx context.Context, caller, partner string) (int64, error) {
	if partner == "" {
		return 0, domain.NewValidationError("Partner ID is required")
	}
	n, err := uc.messageRepo.MarkRead(ctx, caller, partner, uc.now())
	if err != nil {
		return 0, domain.NewStoreError("mark read", err)
	}
	return n, nil
}

// MarkMessageRead marks a single message read by its receiver
func (uc *MessageUsecase) MarkMessageRead(ctx context.Context, reader, messageID string) (*domain.Message, error) {
	msg, err := uc.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, domain.NewStoreError("get message", err)
	}
	if msg == nil {
		return nil, domain.NewNotFoundError("Message not found")
	}
	if msg.Receiver != reader {
		return nil, domain.NewValidationError("Only the receiver can mark a message read")
	}
	if msg.Read {
		return msg, nil
	}

	at := uc.now()
	if err := uc.messageRepo.MarkMessageRead(ctx, messageID, at); err != nil {
		return nil, domain.NewStoreError("mark message read", err)
	}
	msg.MarkRead(at)
	return msg, nil
}

// ProcessRequest represents a process-ai request
type ProcessRequest struct {
	Sender           string
	Receiver         string
	Message          string
	GrammarCheck     bool
	ToneAdjust       bool
	Tone             string
	IncludeEmbedding bool
	Save             bool
}

// ProcessResult represents the process-ai pipeline output
type ProcessResult struct {
	OriginalMessage  string         `json:"originalMessage"`
	ProcessedMessage string         `json:"processedMessage"`
	Changed          bool           `json:"changed"`
	Vector           ProcessVector  `json:"vector"`
	Applied          ProcessApplied `json:"applied"`
	Saved            bool           `json:"saved"`
	SavedMessageID   string         `json:"savedMessageId,omitempty"`
}

// ProcessVector is the semantic part of a process-ai result
type ProcessVector struct {
	EmbeddingPresent bool              `json:"embeddingPresent"`
	Embedding        []float32         `json:"embedding,omitempty"`
	Analysis         domain.Annotation `json:"analysis"`
}

// ProcessApplied reports which transforms ran
type ProcessApplied struct {
	GrammarCheck bool   `json:"grammarCheck"`
	ToneAdjust   bool   `json:"toneAdjust"`
	Tone         string `json:"tone"`
}

// Process runs grammar correction, tone adjustment and analysis on a draft
func (uc *MessageUsecase) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	original := strings.TrimSpace(req.Message)
	if original == "" {
		return nil, domain.NewValidationError("Message cannot be empty.")
	}

	processed := original
	if req.GrammarCheck {
		processed = uc.gateway.CorrectGrammar(ctx, processed)
	}
	toneApplied := req.ToneAdjust && req.Tone != "" && req.Tone != "neutral"
	if toneApplied {
		processed = uc.gateway.AdjustTone(ctx, processed, req.Tone)
	}

	embedding := uc.gateway.Embed(ctx, processed)
	analysis := uc.gateway.AnalyzeForAnnotation(ctx, processed)

	result := &ProcessResult{
		OriginalMessage:  original,
		ProcessedMessage: processed,
		Changed:          processed != original,
		Vector: ProcessVector{
			EmbeddingPresent: len(embedding) > 0,
			Analysis:         analysis,
		},
		Applied: ProcessApplied{
			GrammarCheck: req.GrammarCheck,
			ToneAdjust:   toneApplied,
			Tone:         req.Tone,
		},
	}
	if req.IncludeEmbedding {
		result.Vector.Embedding = embedding
	}

	if req.Save && req.Receiver != "" {
		msg := &domain.Message{
			Sender:       req.Sender,
			Receiver:     req.Receiver,
			Text:         processed,
			OriginalText: original,
			AIProcessed:  true,
			Annotation:   analysis,
			Embedding:    embedding,
		}
		if err := uc.messageRepo.Save(ctx, msg); err != nil {
			return nil, domain.NewStoreError("save processed message", err)
		}
		result.Saved = true
		result.SavedMessageID = msg.ID
	}
	return result, nil
}
