package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatmate/chatmate/internal/biz/usecase"
	"github.com/chatmate/chatmate/internal/logger"
)

// RouterOptions configures the HTTP engine
type RouterOptions struct {
	ClientURL string
	// WS serves the websocket endpoint, nil to leave /ws unmounted
	WS http.HandlerFunc
}

// NewRouter creates the gin engine with the REST API under /api plus /health and /ws
func NewRouter(h *Handler, authUC *usecase.AuthUsecase, opts RouterOptions) *gin.Engine {
	log := logger.Named("http")

	r := gin.New()
	r.Use(Recovery(log), RequestLogger(log), CORS(opts.ClientURL))

	r.GET("/health", h.Health)
	if opts.WS != nil {
		r.GET("/ws", gin.WrapF(opts.WS))
	}

	api := r.Group("/api")
	auth := AuthRequired(authUC)

	a := api.Group("/auth")
	{
		a.POST("/register", h.Register)
		a.POST("/login", h.Login)
		a.POST("/logout", auth, h.Logout)
		a.GET("/search", auth, h.Search)
	}

	chat := api.Group("/chat", auth)
	{
		chat.GET("/conversations", h.Conversations)
		chat.GET("/messages/:partnerId", h.Messages)
		chat.POST("/mark-read", h.MarkRead)
		chat.POST("/process-ai", h.ProcessAI)
	}

	agent := api.Group("/agent", auth)
	{
		agent.POST("/chat", h.AgentChat)
		agent.POST("/reset", h.AgentReset)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return r
}
