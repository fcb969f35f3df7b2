package usecase

import (
	"strconv"
	"strings"
	"testing"

	"github.com/chatmate/chatmate/internal/biz/domain"
)

func TestRender(t *testing.T) {
	got := render("Hi {{name}}, {{name}} says {{msg}} {{unknown}}", map[string]string{
		"name": "Bob",
		"msg":  "hello",
	})
	want := "Hi Bob, Bob says hello {{unknown}}"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestFormatExcerpt(t *testing.T) {
	msgs := []domain.Message{
		{Sender: "bob", Text: "hey"},
		{Sender: "alice", Text: "hi!"},
	}

	got := FormatExcerpt("alice", msgs)
	if got != "Them: hey\nYou: hi!" {
		t.Errorf("Unexpected excerpt: %q", got)
	}
	if FormatExcerpt("alice", nil) != "" {
		t.Error("Expected empty excerpt for no messages")
	}
}

func TestBuildSuggestRequest_Windows(t *testing.T) {
	var msgs []domain.Message
	// The office marker only appears outside the 10-message context window
	msgs = append(msgs, domain.Message{Sender: "bob", Text: "see you at the office"})
	for i := 1; i <= 10; i++ {
		msgs = append(msgs, domain.Message{Sender: "bob", Text: "line " + strconv.Itoa(i)})
	}

	req := BuildSuggestRequest("alice", msgs, true)

	if req.Context.Relationship != "friend" || req.Context.Tone != "casual" {
		t.Errorf("Expected default context, got %+v", req.Context)
	}
	lines := strings.Split(req.Recent, "\n")
	if len(lines) != 5 || lines[0] != "Them: line 6" || lines[4] != "Them: line 10" {
		t.Errorf("Expected last 5 messages, got %v", lines)
	}
	if !req.SecondBatch {
		t.Error("Expected second batch flag")
	}
}

func TestBuildSuggestRequest_Colleague(t *testing.T) {
	msgs := []domain.Message{
		{Sender: "bob", Text: "Meeting moved to 3pm"},
		{Sender: "alice", Text: "thanks sir"},
	}

	req := BuildSuggestRequest("alice", msgs, false)
	if req.Context.Relationship != "colleague" || req.Context.Tone != "professional" {
		t.Errorf("Expected colleague/professional, got %+v", req.Context)
	}
}
