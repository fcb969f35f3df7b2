package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestRoomID_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"alice", "bob"},
		{"zed", "amy"},
		{"user_1", "user_10"},
		{"same", "same"},
	}

	for _, p := range pairs {
		if RoomID(p[0], p[1]) != RoomID(p[1], p[0]) {
			t.Errorf("Expected symmetric room id for %v", p)
		}
	}

	if got := RoomID("bob", "alice"); got != "alice_bob" {
		t.Errorf("Expected alice_bob, got %s", got)
	}
}

func TestMessage_MarkRead(t *testing.T) {
	m := &Message{ID: "1"}
	at := time.Now()

	m.MarkRead(at)

	if !m.Read || !m.Delivered {
		t.Error("Expected read message to also be delivered")
	}
	if m.ReadAt == nil || !m.ReadAt.Equal(at) {
		t.Error("Expected ReadAt to be set")
	}

	// Second call keeps the first timestamp
	m.MarkRead(at.Add(time.Hour))
	if !m.ReadAt.Equal(at) {
		t.Error("Expected ReadAt to be unchanged on re-read")
	}
}

func TestMessage_Preview(t *testing.T) {
	short := &Message{Text: "hi"}
	if got := short.Preview(50); got != "hi" {
		t.Errorf("Expected 'hi', got %q", got)
	}

	long := &Message{Text: strings.Repeat("a", 60)}
	got := long.Preview(50)
	if got != strings.Repeat("a", 50)+"..." {
		t.Errorf("Expected 50 chars plus ellipsis, got %q", got)
	}
}

func TestAnnotation_Normalize(t *testing.T) {
	a := Annotation{
		Language:     "klingon",
		Tone:         "sarcastic",
		Relationship: "",
		Sentiment:    "mixed",
		Keywords:     []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"},
		Context:      strings.Repeat("x", 200),
	}

	a.Normalize()

	if a.Language != LanguageEnglish || a.Tone != ToneNeutral || a.Relationship != RelationshipUnknown || a.Sentiment != SentimentNeutral {
		t.Errorf("Expected defaults, got %+v", a)
	}
	if len(a.Keywords) != MaxKeywords {
		t.Errorf("Expected %d keywords, got %d", MaxKeywords, len(a.Keywords))
	}
	if len(a.Context) != MaxContextLen {
		t.Errorf("Expected context of %d, got %d", MaxContextLen, len(a.Context))
	}
}

func TestErrorKinds(t *testing.T) {
	storeErr := NewStoreError("save message", errors.New("connection refused"))
	wrapped := fmt.Errorf("send: %w", storeErr)

	if KindOf(wrapped) != KindStore {
		t.Errorf("Expected store kind, got %s", KindOf(wrapped))
	}
	if PublicMessage(wrapped) != "save message" {
		t.Errorf("Expected public message 'save message', got %q", PublicMessage(wrapped))
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("Expected unknown kind for plain error")
	}
	if KindOf(NewValidationError("bad")) != KindValidation {
		t.Error("Expected validation kind")
	}
}
