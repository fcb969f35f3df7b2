package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/usecase"
	"github.com/chatmate/chatmate/internal/logger"
)

const (
	msgNotAString      = "Message is required and must be a string."
	msgOptionsRequired = "Options object is required."
	msgServerError     = "Server error"
	msgInvalidBody     = "Invalid request body"
)

// Handler serves the REST API
type Handler struct {
	authUC    *usecase.AuthUsecase
	messageUC *usecase.MessageUsecase
	agentUC   *usecase.AgentUsecase
	env       string
	now       func() time.Time
	log       *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(authUC *usecase.AuthUsecase, messageUC *usecase.MessageUsecase, agentUC *usecase.AgentUsecase, env string) *Handler {
	return &Handler{
		authUC:    authUC,
		messageUC: messageUC,
		agentUC:   agentUC,
		env:       env,
		now:       time.Now,
		log:       logger.Named("api"),
	}
}

// ============ Views ============

type messageView struct {
	ID              string            `json:"id"`
	Sender          string            `json:"sender"`
	Receiver        string            `json:"receiver"`
	Message         string            `json:"message"`
	OriginalMessage string            `json:"originalMessage,omitempty"`
	AIProcessed     bool              `json:"aiProcessed"`
	Annotation      domain.Annotation `json:"annotation"`
	Delivered       bool              `json:"delivered"`
	Read            bool              `json:"read"`
	ReadAt          *time.Time        `json:"readAt,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

func newMessageView(m domain.Message) messageView {
	return messageView{
		ID:              m.ID,
		Sender:          m.Sender,
		Receiver:        m.Receiver,
		Message:         m.Text,
		OriginalMessage: m.OriginalText,
		AIProcessed:     m.AIProcessed,
		Annotation:      m.Annotation,
		Delivered:       m.Delivered,
		Read:            m.Read,
		ReadAt:          m.ReadAt,
		Timestamp:       m.CreatedAt,
	}
}

type conversationView struct {
	PartnerID       string              `json:"partnerId"`
	Partner         *domain.UserProfile `json:"partner"`
	LastMessage     string              `json:"lastMessage"`
	LastMessageTime time.Time           `json:"lastMessageTime"`
	UnreadCount     int                 `json:"unreadCount"`
}

// ============ Helpers ============

// fail writes the status and message matching the error kind
func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.PublicMessage(err)})
	case domain.KindAuth:
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.PublicMessage(err)})
	case domain.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": domain.PublicMessage(err)})
	default:
		h.log.Error(op+" failed", zap.String("user_id", c.GetString(CtxUserID)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgServerError})
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return def
}

// ============ Health ============

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   h.now(),
		"environment": h.env,
	})
}

// ============ Auth Handlers ============

type registerBody struct {
	UserID      string `json:"userId"`
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name"`
	Password    string `json:"password"`
}

// Register creates an account
func (h *Handler) Register(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	res, err := h.authUC.Register(c.Request.Context(), usecase.RegisterRequest{
		UserID:      body.UserID,
		PhoneNumber: body.PhoneNumber,
		Name:        body.Name,
		Password:    body.Password,
	})
	if err != nil {
		h.fail(c, "register", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   res.Token,
		"user":    res.User,
	})
}

type loginBody struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Login exchanges credentials for a token
func (h *Handler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	res, err := h.authUC.Login(c.Request.Context(), body.Identifier, body.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

// Logout marks the caller offline
func (h *Handler) Logout(c *gin.Context) {
	if err := h.authUC.Logout(c.Request.Context(), c.GetString(CtxUserID)); err != nil {
		h.fail(c, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Search looks up another user by ID or phone number
func (h *Handler) Search(c *gin.Context) {
	user, err := h.authUC.Search(c.Request.Context(), c.GetString(CtxUserID), c.Query("identifier"))
	if err != nil {
		h.fail(c, "search", err)
		return
	}
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"found": false, "message": "No user found with this ID or phone number"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "user": user})
}

// ============ Chat Handlers ============

// Conversations lists the caller's conversations, most recent first
func (h *Handler) Conversations(c *gin.Context) {
	summaries, err := h.messageUC.Conversations(c.Request.Context(), c.GetString(CtxUserID))
	if err != nil {
		h.fail(c, "conversations", err)
		return
	}

	views := make([]conversationView, len(summaries))
	for i, s := range summaries {
		views[i] = conversationView{
			PartnerID:       s.PartnerID,
			Partner:         s.Partner,
			LastMessage:     s.LastMessage,
			LastMessageTime: s.LastMessageTime,
			UnreadCount:     s.UnreadCount,
		}
	}
	c.JSON(http.StatusOK, views)
}

// Messages returns one page of the conversation with a partner, oldest first
func (h *Handler) Messages(c *gin.Context) {
	msgs, err := h.messageUC.List(c.Request.Context(),
		c.GetString(CtxUserID),
		c.Param("partnerId"),
		queryInt(c, "page", 1),
		queryInt(c, "limit", usecase.DefaultPageSize),
	)
	if err != nil {
		h.fail(c, "list messages", err)
		return
	}

	views := make([]messageView, len(msgs))
	for i, m := range msgs {
		views[i] = newMessageView(m)
	}
	c.JSON(http.StatusOK, views)
}

type markReadBody struct {
	PartnerID string `json:"partnerId"`
}

// MarkRead marks every message from a partner as read
func (h *Handler) MarkRead(c *gin.Context) {
	var body markReadBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	n, err := h.messageUC.MarkConversationRead(c.Request.Context(), c.GetString(CtxUserID), body.PartnerID)
	if err != nil {
		h.fail(c, "mark read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}

type processBody struct {
	Message json.RawMessage `json:"message"`
	Options json.RawMessage `json:"options"`
}

type processOptions struct {
	GrammarCheck               bool   `json:"grammarCheck"`
	ToneAdjust                 bool   `json:"toneAdjust"`
	Tone                       string `json:"tone"`
	Save                       bool   `json:"save"`
	Receiver                   string `json:"receiver"`
	IncludeEmbeddingInResponse bool   `json:"includeEmbeddingInResponse"`
}

// ProcessAI runs the grammar, tone and analysis pipeline on a draft
func (h *Handler) ProcessAI(c *gin.Context) {
	var body processBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNotAString})
		return
	}

	var message string
	if err := json.Unmarshal(body.Message, &message); err != nil || message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNotAString})
		return
	}
	if strings.TrimSpace(message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty."})
		return
	}

	var opts processOptions
	raw := bytes.TrimSpace(body.Options)
	if len(raw) == 0 || raw[0] != '{' || json.Unmarshal(raw, &opts) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgOptionsRequired})
		return
	}

	res, err := h.messageUC.Process(c.Request.Context(), usecase.ProcessRequest{
		Sender:           c.GetString(CtxUserID),
		Receiver:         strings.TrimSpace(opts.Receiver),
		Message:          message,
		GrammarCheck:     opts.GrammarCheck,
		ToneAdjust:       opts.ToneAdjust,
		Tone:             opts.Tone,
		IncludeEmbedding: opts.IncludeEmbeddingInResponse,
		Save:             opts.Save,
	})
	if err != nil {
		h.fail(c, "process ai", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ============ Agent Handlers ============

type agentChatBody struct {
	Message json.RawMessage `json:"message"`
}

// AgentChat sends one message to the caller's coaching agent
func (h *Handler) AgentChat(c *gin.Context) {
	var body agentChatBody
	var message string
	if err := c.ShouldBindJSON(&body); err != nil || json.Unmarshal(body.Message, &message) != nil || message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNotAString})
		return
	}

	response := h.agentUC.HandleMessage(c.Request.Context(), c.GetString(CtxUserID), strings.TrimSpace(message))
	c.JSON(http.StatusOK, gin.H{"response": response, "timestamp": h.now()})
}

// AgentReset drops the caller's agent session
func (h *Handler) AgentReset(c *gin.Context) {
	if err := h.agentUC.ClearSession(c.Request.Context(), c.GetString(CtxUserID)); err != nil {
		h.fail(c, "reset agent", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Agent session reset successfully"})
}
