package service

import (
	"context"
	"encoding/json"
	"errors"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/repo"
	"github.com/chatmate/chatmate/internal/biz/usecase"
	"github.com/chatmate/chatmate/internal/logger"
)

// Inbound events
const (
	EventStartChat    = "start-chat"
	EventAcceptChat   = "accept-chat"
	EventSendMessage  = "send-message"
	EventMessageRead  = "message-read"
	EventTyping       = "typing"
	EventJoinChat     = "join-chat"
	EventLeaveChat    = "leave-chat"
	EventAgentMessage = "agent-message"
)

// Outbound events
const (
	EventError               = "error"
	EventChatRequest         = "chat-request"
	EventChatStarted         = "chat-started"
	EventChatAccepted        = "chat-accepted"
	EventNewMessage          = "new-message"
	EventMessageNotification = "message-notification"
	EventReadReceipt         = "message-read-receipt"
	EventUserTyping          = "user-typing"
	EventUserOffline         = "user-offline"
	EventAgentResponse       = "agent-response"
	EventAgentError          = "agent-error"
)

// Error texts sent to clients
const (
	MsgInvalidPayload   = "Invalid payload"
	MsgUnknownEvent     = "Unknown event"
	MsgNoSuchUser       = "No user found with this ID or phone number"
	MsgStartChatFailed  = "Failed to start chat"
	MsgSendFailed       = "Failed to send message"
	MsgAgentUnavailable = "AI agent is currently unavailable"
	MsgBusy             = "Too many pending requests"
)

// notificationPreviewLen is the maximum preview length of a message notification
const notificationPreviewLen = 50

// DefaultPresenceTTL is the lifetime of a presence record between refreshes
const DefaultPresenceTTL = 90 * time.Second

// ErrHubClosed is returned by Register after Close
var ErrHubClosed = errors.New("hub closed")

// ========== Payloads ==========

type errorPayload struct {
	Message string `json:"message"`
}

type partnerPayload struct {
	PartnerID string `json:"partnerId"`
}

type acceptChatPayload struct {
	ChatRoomID string `json:"chatRoomId"`
	FromUserID string `json:"fromUserId"`
}

type sendMessagePayload struct {
	PartnerID       string `json:"partnerId"`
	Message         string `json:"message"`
	OriginalMessage string `json:"originalMessage"`
	AIProcessed     bool   `json:"aiProcessed"`
}

type messageReadPayload struct {
	MessageID string `json:"messageId"`
	PartnerID string `json:"partnerId"`
}

type typingPayload struct {
	PartnerID string `json:"partnerId"`
	Typing    bool   `json:"typing"`
}

type agentMessagePayload struct {
	Message string `json:"message"`
}

type chatRequestEvent struct {
	From       string `json:"from"`
	FromName   string `json:"fromName"`
	ChatRoomID string `json:"chatRoomId"`
}

type chatStartedEvent struct {
	PartnerID     string `json:"partnerId"`
	PartnerName   string `json:"partnerName"`
	PartnerAvatar string `json:"partnerAvatar"`
	IsOnline      bool   `json:"isOnline"`
	ChatRoomID    string `json:"chatRoomId"`
}

type chatAcceptedEvent struct {
	By         string `json:"by"`
	ByName     string `json:"byName"`
	ChatRoomID string `json:"chatRoomId"`
}

// NewMessageEvent is the room broadcast of a stored message
type NewMessageEvent struct {
	ID              string            `json:"id"`
	Sender          string            `json:"sender"`
	Receiver        string            `json:"receiver"`
	Message         string            `json:"message"`
	OriginalMessage string            `json:"originalMessage,omitempty"`
	AIProcessed     bool              `json:"aiProcessed"`
	Annotation      domain.Annotation `json:"annotation"`
	Timestamp       time.Time         `json:"timestamp"`
	Delivered       bool              `json:"delivered"`
	Read            bool              `json:"read"`
}

type notificationEvent struct {
	From      string    `json:"from"`
	FromName  string    `json:"fromName"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type readReceiptEvent struct {
	MessageID string    `json:"messageId"`
	ReadBy    string    `json:"readBy"`
	ReadAt    time.Time `json:"readAt"`
}

type userTypingEvent struct {
	UserID    string    `json:"userId"`
	Typing    bool      `json:"typing"`
	Timestamp time.Time `json:"timestamp"`
}

type userOfflineEvent struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type agentResponseEvent struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ========== Hub ==========

// Hub owns live presence and room membership and routes websocket events
type Hub struct {
	messageUC   *usecase.MessageUsecase
	authUC      *usecase.AuthUsecase
	agentUC     *usecase.AgentUsecase
	presence    repo.PresenceRepo
	presenceTTL time.Duration

	mu     sync.RWMutex
	users  map[string]*Client
	rooms  map[string]map[*Client]struct{}
	closed bool

	now func() time.Time
	log *zap.Logger
}

// NewHub creates a new hub
func NewHub(
	messageUC *usecase.MessageUsecase,
	authUC *usecase.AuthUsecase,
	agentUC *usecase.AgentUsecase,
	presence repo.PresenceRepo,
	presenceTTL time.Duration,
) *Hub {
	if presenceTTL <= 0 {
		presenceTTL = DefaultPresenceTTL
	}
	return &Hub{
		messageUC:   messageUC,
		authUC:      authUC,
		agentUC:     agentUC,
		presence:    presence,
		presenceTTL: presenceTTL,
		users:       make(map[string]*Client),
		rooms:       make(map[string]map[*Client]struct{}),
		now:         time.Now,
		log:         logger.Named("hub"),
	}
}

// Register makes the client the user's live connection.
// An earlier connection of the same user is closed.
func (h *Hub) Register(ctx context.Context, c *Client) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	old := h.users[c.UserID]
	h.users[c.UserID] = c
	if old != nil {
		h.leaveAllLocked(old)
	}
	h.mu.Unlock()

	if old != nil {
		h.log.Info("connection replaced", zap.String("user_id", c.UserID), zap.String("old_conn", old.ID))
		old.Close()
	}

	if err := h.authUC.SetPresence(ctx, c.UserID, true); err != nil {
		h.log.Warn("set online failed", zap.String("user_id", c.UserID), zap.Error(err))
	}
	if err := h.presence.MarkOnline(ctx, c.UserID, c.ID, h.presenceTTL); err != nil {
		h.log.Warn("presence mirror failed", zap.String("user_id", c.UserID), zap.Error(err))
	}
	h.log.Info("user connected", zap.String("user_id", c.UserID), zap.String("conn", c.ID))
	return nil
}

// Unregister removes the client. A client that was already replaced only leaves its rooms.
func (h *Hub) Unregister(ctx context.Context, c *Client) {
	h.mu.Lock()
	if h.users[c.UserID] != c {
		h.leaveAllLocked(c)
		h.mu.Unlock()
		return
	}
	delete(h.users, c.UserID)
	peers := h.peersLocked(c)
	h.leaveAllLocked(c)
	h.mu.Unlock()

	h.goOffline(ctx, c, peers)
}

func (h *Hub) goOffline(ctx context.Context, c *Client, peers []*Client) {
	if err := h.authUC.SetPresence(ctx, c.UserID, false); err != nil {
		h.log.Warn("set offline failed", zap.String("user_id", c.UserID), zap.Error(err))
	}

	event := userOfflineEvent{UserID: c.UserID, Timestamp: h.now()}
	for _, peer := range peers {
		h.emit(peer, EventUserOffline, event)
	}

	if err := h.presence.MarkOffline(ctx, c.UserID); err != nil {
		h.log.Warn("presence mirror failed", zap.String("user_id", c.UserID), zap.Error(err))
	}
	h.log.Info("user disconnected", zap.String("user_id", c.UserID), zap.String("conn", c.ID))
}

// Close disconnects every client and rejects new registrations
func (h *Hub) Close(ctx context.Context) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*Client, 0, len(h.users))
	for _, c := range h.users {
		clients = append(clients, c)
		h.leaveAllLocked(c)
	}
	h.users = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		h.goOffline(ctx, c, nil)
		c.Close()
	}
}

// IsOnline checks whether the user holds a live connection
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.users[userID]
	return ok
}

// ActiveRooms returns the rooms joined by the user's live connection, sorted
func (h *Hub) ActiveRooms(userID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c := h.users[userID]
	if c == nil {
		return nil
	}
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Connections returns user ID -> connection ID for every live connection
func (h *Hub) Connections() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make(map[string]string, len(h.users))
	for userID, c := range h.users {
		conns[userID] = c.ID
	}
	return conns
}

// ========== Dispatch ==========

// Dispatch routes one inbound frame. Handler panics are recovered.
// LLM-bound events run on the client's worker and Dispatch returns without waiting for them.
func (h *Hub) Dispatch(ctx context.Context, c *Client, env Envelope) {
	defer h.recoverHandler(c, env.Event)

	switch env.Event {
	case EventStartChat:
		h.onStartChat(ctx, c, env.Data)
	case EventAcceptChat:
		h.onAcceptChat(c, env.Data)
	case EventSendMessage:
		h.offload(ctx, c, env.Event, func(ctx context.Context) {
			h.onSendMessage(ctx, c, env.Data)
		}, func() { h.emitError(c, MsgBusy) })
	case EventMessageRead:
		h.onMessageRead(ctx, c, env.Data)
	case EventTyping:
		h.onTyping(c, env.Data)
	case EventJoinChat:
		h.onJoinChat(c, env.Data)
	case EventLeaveChat:
		h.onLeaveChat(c, env.Data)
	case EventAgentMessage:
		h.offload(ctx, c, env.Event, func(ctx context.Context) {
			h.onAgentMessage(ctx, c, env.Data)
		}, func() { h.emit(c, EventAgentError, errorPayload{Message: MsgAgentUnavailable}) })
	default:
		h.emitError(c, MsgUnknownEvent)
	}
}

// offload queues handle on the client's worker, detached from the connection's cancellation.
// busy runs instead when the worker is backed up.
func (h *Hub) offload(ctx context.Context, c *Client, event string, handle func(ctx context.Context), busy func()) {
	ctx = context.WithoutCancel(ctx)
	queued := c.Go(func() {
		defer h.recoverHandler(c, event)
		handle(ctx)
	})
	if !queued {
		h.log.Warn("task queue full", zap.String("event", event), zap.String("user_id", c.UserID))
		busy()
	}
}

func (h *Hub) recoverHandler(c *Client, event string) {
	if r := recover(); r != nil {
		h.log.Error("handler panic",
			zap.String("event", event),
			zap.String("user_id", c.UserID),
			zap.Any("panic", r),
			zap.ByteString("stack", debug.Stack()),
		)
	}
}

// EmitError sends an error event to the client
func (h *Hub) EmitError(c *Client, message string) {
	h.emitError(c, message)
}

func (h *Hub) onStartChat(ctx context.Context, c *Client, data json.RawMessage) {
	var p partnerPayload
	if !h.decode(c, data, &p) {
		return
	}

	partner, err := h.authUC.ResolvePartner(ctx, p.PartnerID)
	if err != nil {
		h.log.Error("start chat failed", zap.String("user_id", c.UserID), zap.Error(err))
		h.emitError(c, MsgStartChatFailed)
		return
	}
	if partner == nil {
		h.emitError(c, MsgNoSuchUser)
		return
	}

	room := domain.RoomID(c.UserID, partner.UserID)
	h.join(c, room)

	pc := h.client(partner.UserID)
	if pc != nil {
		h.emit(pc, EventChatRequest, chatRequestEvent{From: c.UserID, FromName: c.Name, ChatRoomID: room})
	}

	h.emit(c, EventChatStarted, chatStartedEvent{
		PartnerID:     partner.UserID,
		PartnerName:   partner.Name,
		PartnerAvatar: partner.Avatar,
		IsOnline:      pc != nil || h.onlineElsewhere(ctx, partner.UserID),
		ChatRoomID:    room,
	})
}

func (h *Hub) onAcceptChat(c *Client, data json.RawMessage) {
	var p acceptChatPayload
	if !h.decode(c, data, &p) {
		return
	}
	// Only the two participants may enter a room
	if p.FromUserID == "" || p.ChatRoomID != domain.RoomID(c.UserID, p.FromUserID) {
		h.log.Warn("accept chat refused",
			zap.String("user_id", c.UserID),
			zap.String("room", p.ChatRoomID),
			zap.String("from", p.FromUserID),
		)
		h.emitError(c, MsgInvalidPayload)
		return
	}
	h.join(c, p.ChatRoomID)

	if from := h.client(p.FromUserID); from != nil {
		h.emit(from, EventChatAccepted, chatAcceptedEvent{By: c.UserID, ByName: c.Name, ChatRoomID: p.ChatRoomID})
	}
}

func (h *Hub) onSendMessage(ctx context.Context, c *Client, data json.RawMessage) {
	var p sendMessagePayload
	if !h.decode(c, data, &p) {
		return
	}

	pc := h.client(p.PartnerID)
	msg, err := h.messageUC.Send(ctx, usecase.SendRequest{
		Sender:       c.UserID,
		Receiver:     p.PartnerID,
		Text:         p.Message,
		OriginalText: p.OriginalMessage,
		AIProcessed:  p.AIProcessed,
		Deliver:      pc != nil,
	})
	if err != nil {
		h.log.Error("send message failed", zap.String("user_id", c.UserID), zap.Error(err))
		h.emitError(c, MsgSendFailed)
		return
	}

	room := domain.RoomID(c.UserID, p.PartnerID)
	h.broadcast(room, EventNewMessage, NewMessageEvent{
		ID:              msg.ID,
		Sender:          msg.Sender,
		Receiver:        msg.Receiver,
		Message:         msg.Text,
		OriginalMessage: msg.OriginalText,
		AIProcessed:     msg.AIProcessed,
		Annotation:      msg.Annotation,
		Timestamp:       msg.CreatedAt,
		Delivered:       msg.Delivered,
		Read:            false,
	}, nil)

	if pc != nil && !h.inRoom(pc, room) {
		h.emit(pc, EventMessageNotification, notificationEvent{
			From:      c.UserID,
			FromName:  c.Name,
			Message:   msg.Preview(notificationPreviewLen),
			Timestamp: msg.CreatedAt,
		})
	}
}

func (h *Hub) onMessageRead(ctx context.Context, c *Client, data json.RawMessage) {
	var p messageReadPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.log.Warn("message read: bad payload", zap.String("user_id", c.UserID), zap.Error(err))
		return
	}

	msg, err := h.messageUC.MarkMessageRead(ctx, c.UserID, p.MessageID)
	if err != nil {
		h.log.Warn("message read failed",
			zap.String("user_id", c.UserID),
			zap.String("message_id", p.MessageID),
			zap.Error(err),
		)
		return
	}

	readAt := h.now()
	if msg.ReadAt != nil {
		readAt = *msg.ReadAt
	}
	h.broadcast(domain.RoomID(c.UserID, p.PartnerID), EventReadReceipt, readReceiptEvent{
		MessageID: p.MessageID,
		ReadBy:    c.UserID,
		ReadAt:    readAt,
	}, nil)
}

func (h *Hub) onTyping(c *Client, data json.RawMessage) {
	var p typingPayload
	if !h.decode(c, data, &p) {
		return
	}
	h.broadcast(domain.RoomID(c.UserID, p.PartnerID), EventUserTyping, userTypingEvent{
		UserID:    c.UserID,
		Typing:    p.Typing,
		Timestamp: h.now(),
	}, c)
}

func (h *Hub) onJoinChat(c *Client, data json.RawMessage) {
	var p partnerPayload
	if !h.decode(c, data, &p) {
		return
	}
	h.join(c, domain.RoomID(c.UserID, p.PartnerID))
}

func (h *Hub) onLeaveChat(c *Client, data json.RawMessage) {
	var p partnerPayload
	if !h.decode(c, data, &p) {
		return
	}
	h.leave(c, domain.RoomID(c.UserID, p.PartnerID))
}

func (h *Hub) onAgentMessage(ctx context.Context, c *Client, data json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("agent panic", zap.String("user_id", c.UserID), zap.Any("panic", r))
			h.emit(c, EventAgentError, errorPayload{Message: MsgAgentUnavailable})
		}
	}()

	var p agentMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || h.agentUC == nil {
		h.emit(c, EventAgentError, errorPayload{Message: MsgAgentUnavailable})
		return
	}

	reply := h.agentUC.HandleMessage(ctx, c.UserID, p.Message)
	h.emit(c, EventAgentResponse, agentResponseEvent{Message: reply, Timestamp: h.now()})
}

// onlineElsewhere checks the shared presence store for a connection held by another process
func (h *Hub) onlineElsewhere(ctx context.Context, userID string) bool {
	_, online, err := h.presence.Lookup(ctx, userID)
	if err != nil {
		h.log.Warn("presence lookup failed", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return online
}

// ========== Rooms ==========

func (h *Hub) client(userID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.users[userID]
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[c.UserID] != c {
		// replaced or gone
		return
	}
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	if members := h.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) leaveAllLocked(c *Client) {
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
}

func (h *Hub) inRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

// peersLocked returns every other member of the client's rooms
func (h *Hub) peersLocked(c *Client) []*Client {
	seen := make(map[*Client]struct{})
	var peers []*Client
	for room := range c.rooms {
		for member := range h.rooms[room] {
			if member == c {
				continue
			}
			if _, ok := seen[member]; ok {
				continue
			}
			seen[member] = struct{}{}
			peers = append(peers, member)
		}
	}
	return peers
}

// broadcast sends an event to every member of the room except exclude
func (h *Hub) broadcast(room, event string, data interface{}, exclude *Client) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for member := range h.rooms[room] {
		if member != exclude {
			members = append(members, member)
		}
	}
	h.mu.RUnlock()

	for _, member := range members {
		h.emit(member, event, data)
	}
}

func (h *Hub) emit(c *Client, event string, data interface{}) {
	if !c.Emit(event, data) {
		h.log.Warn("frame dropped", zap.String("event", event), zap.String("user_id", c.UserID), zap.String("conn", c.ID))
	}
}

func (h *Hub) emitError(c *Client, message string) {
	h.emit(c, EventError, errorPayload{Message: message})
}

func (h *Hub) decode(c *Client, data json.RawMessage, v interface{}) bool {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		h.log.Debug("bad payload", zap.String("user_id", c.UserID), zap.Error(err))
		h.emitError(c, MsgInvalidPayload)
		return false
	}
	return true
}
