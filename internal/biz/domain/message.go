package domain

import (
	"sort"
	"strings"
	"time"
)

// Message represents a stored chat message between two users
type Message struct {
	ID           string
	Sender       string
	Receiver     string
	Text         string
	OriginalText string // Text as typed, before AI rewriting (empty if none)
	AIProcessed  bool
	Annotation   Annotation
	Embedding    []float32 // Optional semantic vector, empty when no provider is configured
	Delivered    bool
	Read         bool
	ReadAt       *time.Time
	CreatedAt    time.Time
}

// MarkDelivered marks the message as delivered to a live recipient
func (m *Message) MarkDelivered() {
	m.Delivered = true
}

// MarkRead marks the message as read.
// A read message is always delivered, and ReadAt is set iff Read is true.
func (m *Message) MarkRead(at time.Time) {
	if m.Read {
		return
	}
	m.Delivered = true
	m.Read = true
	m.ReadAt = &at
}

// PartnerOf returns the counterpart of userID in this message
func (m *Message) PartnerOf(userID string) string {
	if m.Sender == userID {
		return m.Receiver
	}
	return m.Sender
}

// Involves checks if the message is between the two users (either direction)
func (m *Message) Involves(a, b string) bool {
	return (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a)
}

// IsAfter checks if the message is after the specified time
func (m *Message) IsAfter(t time.Time) bool {
	return m.CreatedAt.After(t)
}

// Preview returns the notification preview of the message text
func (m *Message) Preview(max int) string {
	preview := TruncateRunes(m.Text, max)
	if preview != m.Text {
		preview += "..."
	}
	return preview
}

// RoomSeparator joins the two participant identifiers of a room
const RoomSeparator = "_"

// RoomID returns the deterministic room identifier of a one-to-one chat.
// RoomID(a, b) == RoomID(b, a).
func RoomID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, RoomSeparator)
}
