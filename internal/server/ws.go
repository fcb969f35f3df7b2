package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/usecase"
	"github.com/chatmate/chatmate/internal/logger"
	"github.com/chatmate/chatmate/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// WSServer upgrades authenticated requests and pumps frames between sockets and the hub
type WSServer struct {
	hub      *service.Hub
	authUC   *usecase.AuthUsecase
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewWSServer creates a new websocket server.
// Browsers may connect from clientURL, or from any origin if anyOrigin is set.
func NewWSServer(hub *service.Hub, authUC *usecase.AuthUsecase, clientURL string, anyOrigin bool) *WSServer {
	return &WSServer{
		hub:    hub,
		authUC: authUC,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return anyOrigin || origin == "" || origin == clientURL
			},
		},
		log: logger.Named("ws"),
	}
}

// tokenFromRequest extracts the access token from the Authorization header,
// the token query parameter or the websocket subprotocol
func tokenFromRequest(r *http.Request) (token string, viaProtocol bool) {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer "), false
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t, false
	}
	if protocols := websocket.Subprotocols(r); len(protocols) > 0 {
		return protocols[len(protocols)-1], true
	}
	return "", false
}

// Handle authenticates and upgrades the request, then serves the connection until it closes
func (s *WSServer) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, viaProtocol := tokenFromRequest(r)
	userID, err := s.authUC.Authenticate(token)
	if err != nil {
		http.Error(w, domain.PublicMessage(err), http.StatusUnauthorized)
		return
	}
	user, err := s.authUC.CurrentUser(ctx, userID)
	if err != nil {
		if domain.KindOf(err) == domain.KindStore {
			s.log.Error("load user failed", zap.String("user_id", userID), zap.Error(err))
			http.Error(w, "Server error", http.StatusInternalServerError)
			return
		}
		http.Error(w, domain.PublicMessage(err), http.StatusUnauthorized)
		return
	}

	var header http.Header
	if viaProtocol {
		// Browsers drop the connection unless the requested protocol is echoed
		header = http.Header{"Sec-WebSocket-Protocol": {token}}
	}
	conn, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		s.log.Warn("upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := service.NewClient(user.UserID, user.DisplayName())
	if err := s.hub.Register(ctx, client); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go s.writePump(conn, client)
	s.readPump(r, conn, client)
}

// readPump dispatches inbound frames in arrival order until the connection fails.
// Slow handlers run on the client worker so pongs keep being read.
func (s *WSServer) readPump(r *http.Request, conn *websocket.Conn, c *service.Client) {
	ctx := r.Context()
	defer func() {
		s.hub.Unregister(ctx, c)
		c.Close()
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("read failed", zap.String("user_id", c.UserID), zap.Error(err))
			}
			return
		}

		var env service.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			s.hub.EmitError(c, service.MsgInvalidPayload)
			continue
		}
		s.hub.Dispatch(ctx, c, env)
	}
}

// writePump writes queued frames and keeps the connection alive with pings
func (s *WSServer) writePump(conn *websocket.Conn, c *service.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame := <-c.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
