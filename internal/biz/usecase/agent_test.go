package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chatmate/chatmate/internal/biz/domain"
)

// Mock implementations

type mockAgentSessionRepo struct {
	sessions map[string]*domain.AgentSession
	saveErr  error
}

func newMockAgentSessionRepo() *mockAgentSessionRepo {
	return &mockAgentSessionRepo{sessions: make(map[string]*domain.AgentSession)}
}

func (m *mockAgentSessionRepo) Get(ctx context.Context, userID string) (*domain.AgentSession, error) {
	s, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockAgentSessionRepo) Save(ctx context.Context, session *domain.AgentSession) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *session
	m.sessions[session.UserID] = &cp
	return nil
}

func (m *mockAgentSessionRepo) Delete(ctx context.Context, userID string) error {
	delete(m.sessions, userID)
	return nil
}

type agentFixture struct {
	uc       *AgentUsecase
	sessions *mockAgentSessionRepo
	messages *mockMessageRepo
	llm      *mockLLMRepo
}

func newAgentFixture(llm *mockLLMRepo) *agentFixture {
	sessions := newMockAgentSessionRepo()
	messages := newMockMessageRepo()
	users := newMockUserRepo(
		&domain.User{UserID: "alice", PhoneNumber: "1111111111"},
		&domain.User{UserID: "Bob", PhoneNumber: "2222222222"},
	)
	uc := NewAgentUsecase(sessions, messages, users, newTestGateway(llm))
	uc.now = func() time.Time { return messages.clock.Add(time.Hour) }
	return &agentFixture{uc: uc, sessions: sessions, messages: messages, llm: llm}
}

func (f *agentFixture) stage(t *testing.T, userID string) domain.AgentStage {
	t.Helper()
	stage, err := f.uc.Stage(context.Background(), userID)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	return stage
}

// Tests

func TestAgent_ContinueThenWeek(t *testing.T) {
	f := newAgentFixture(nil)
	ctx := context.Background()

	if name := f.stage(t, "alice").Name(); name != domain.StageNameGreeting {
		t.Errorf("Expected greeting, got %s", name)
	}

	reply := f.uc.HandleMessage(ctx, "alice", "I want to continue chatting")
	if reply != replyAskDuration {
		t.Errorf("Unexpected reply: %s", reply)
	}
	if name := f.stage(t, "alice").Name(); name != domain.StageNameAskingDuration {
		t.Errorf("Expected asking_duration, got %s", name)
	}

	f.uc.HandleMessage(ctx, "alice", "1 week")
	stage, ok := f.stage(t, "alice").(domain.StageAnalyzing)
	if !ok {
		t.Fatalf("Expected analyzing stage, got %T", f.stage(t, "alice"))
	}
	if stage.Duration != domain.DurationOneWeek {
		t.Errorf("Expected duration 1week, got %s", stage.Duration)
	}
}

func TestAgent_GreetingMenu(t *testing.T) {
	f := newAgentFixture(nil)

	reply := f.uc.HandleMessage(context.Background(), "alice", "hello")
	if reply != replyMenu {
		t.Errorf("Expected menu, got %s", reply)
	}
	if name := f.stage(t, "alice").Name(); name != domain.StageNameGreeting {
		t.Errorf("Expected greeting, got %s", name)
	}
}

func TestAgent_DurationReprompt(t *testing.T) {
	f := newAgentFixture(nil)
	ctx := context.Background()

	f.uc.HandleMessage(ctx, "alice", "suggest something")
	reply := f.uc.HandleMessage(ctx, "alice", "a month")
	if reply != replyPickDuration {
		t.Errorf("Expected re-prompt, got %s", reply)
	}
	f.uc.HandleMessage(ctx, "alice", "Today")
	stage, ok := f.stage(t, "alice").(domain.StageAnalyzing)
	if !ok || stage.Duration != domain.DurationOneDay {
		t.Errorf("Expected analyzing 1day, got %#v", f.stage(t, "alice"))
	}
}

func TestAgent_AnalyzeAndSuggest(t *testing.T) {
	llm := &mockLLMRepo{reply: "1. a\n2. b\n3. c"}
	f := newAgentFixture(llm)
	ctx := context.Background()

	f.messages.Save(ctx, &domain.Message{Sender: "Bob", Receiver: "alice", Text: "kya kar rahe ho"})
	f.messages.Save(ctx, &domain.Message{Sender: "alice", Receiver: "Bob", Text: "kuch nahi"})

	f.sessions.Save(ctx, &domain.AgentSession{UserID: "alice", Stage: domain.StageAnalyzing{Duration: domain.DurationOneDay}})

	reply := f.uc.HandleMessage(ctx, "alice", "  Bob ")
	if !strings.HasPrefix(reply, "Based on your chat history, here are 3 message suggestions:\n\n1. a") {
		t.Errorf("Unexpected reply: %s", reply)
	}
	if !strings.Contains(llm.prompts[0], "Them: kya kar rahe ho\nYou: kuch nahi") {
		t.Errorf("Expected excerpt in prompt, got %q", llm.prompts[0])
	}
	if !strings.Contains(llm.prompts[0], "Language used: roman_hindi") {
		t.Errorf("Expected roman_hindi context, got %q", llm.prompts[0])
	}

	stage, ok := f.stage(t, "alice").(domain.StageSuggestions)
	if !ok || stage.PartnerID != "Bob" || stage.Batch != 1 {
		t.Fatalf("Expected suggestions stage for Bob, got %#v", f.stage(t, "alice"))
	}

	reply = f.uc.HandleMessage(ctx, "alice", "yes please")
	if !strings.HasPrefix(reply, "Here are 3 more suggestions:") {
		t.Errorf("Unexpected reply: %s", reply)
	}
	if !strings.Contains(llm.prompts[1], "3 different message suggestions") {
		t.Errorf("Expected second batch prompt, got %q", llm.prompts[1])
	}
	if stage := f.stage(t, "alice").(domain.StageSuggestions); stage.Batch != 2 {
		t.Errorf("Expected batch 2, got %d", stage.Batch)
	}

	if reply := f.uc.HandleMessage(ctx, "alice", "hmm"); reply != replyYesNo {
		t.Errorf("Expected yes/no re-prompt, got %s", reply)
	}

	reply = f.uc.HandleMessage(ctx, "alice", "No thanks")
	if reply != replyFarewell {
		t.Errorf("Expected farewell, got %s", reply)
	}
	if _, ok := f.sessions.sessions["alice"]; ok {
		t.Error("Expected session to be cleared")
	}
}

func TestAgent_AnalyzeByPhoneNoMessages(t *testing.T) {
	f := newAgentFixture(nil)
	ctx := context.Background()
	f.sessions.Save(ctx, &domain.AgentSession{UserID: "alice", Stage: domain.StageAnalyzing{Duration: domain.DurationOneWeek}})

	reply := f.uc.HandleMessage(ctx, "alice", "2222222222")
	if reply != replyNoMessages {
		t.Errorf("Expected no-messages reply, got %s", reply)
	}
	if _, ok := f.stage(t, "alice").(domain.StageAnalyzing); !ok {
		t.Error("Expected to stay in analyzing")
	}

	reply = f.uc.HandleMessage(ctx, "alice", "nobody")
	if reply != replyNoPartner {
		t.Errorf("Expected no-partner reply, got %s", reply)
	}
}

func TestAgent_AnalyzeIgnoresOldMessages(t *testing.T) {
	f := newAgentFixture(nil)
	ctx := context.Background()

	old := f.messages.clock.Add(-48 * time.Hour)
	f.messages.Save(ctx, &domain.Message{Sender: "Bob", Receiver: "alice", Text: "ancient", CreatedAt: old})
	f.sessions.Save(ctx, &domain.AgentSession{UserID: "alice", Stage: domain.StageAnalyzing{Duration: domain.DurationOneDay}})

	if reply := f.uc.HandleMessage(ctx, "alice", "Bob"); reply != replyNoMessages {
		t.Errorf("Expected no-messages reply for a 1-day window, got %s", reply)
	}
}

func TestAgent_InitiateFlow(t *testing.T) {
	f := newAgentFixture(nil)
	ctx := context.Background()

	if reply := f.uc.HandleMessage(ctx, "alice", "start a new chat"); reply != replyAskDuration {
		// "chat" matches the first branch
		t.Errorf("Expected duration prompt, got %s", reply)
	}
	f.uc.ClearSession(ctx, "alice")

	if reply := f.uc.HandleMessage(ctx, "alice", "Initiate please"); reply != replyAskPartner {
		t.Errorf("Expected relationship prompt, got %s", reply)
	}
	if reply := f.uc.HandleMessage(ctx, "alice", "A Colleague"); reply != replyAskTopic {
		t.Errorf("Expected topic prompt, got %s", reply)
	}
	stage := f.stage(t, "alice").(domain.StageCustomRequest)
	if !stage.Initiate || stage.Relationship != "a colleague" {
		t.Errorf("Unexpected stage: %#v", stage)
	}

	reply := f.uc.HandleMessage(ctx, "alice", "the project deadline")
	if reply != "Here's a great conversation starter:\n\nHi! How are you doing?\n\nFeel free to ask for more suggestions anytime!" {
		t.Errorf("Unexpected starter reply: %s", reply)
	}
	if _, ok := f.sessions.sessions["alice"]; ok {
		t.Error("Expected session to be cleared")
	}
}

func TestAgent_OtherRequest(t *testing.T) {
	f := newAgentFixture(nil)
	ctx := context.Background()

	if reply := f.uc.HandleMessage(ctx, "alice", "other request"); reply != replyAskRequest {
		t.Errorf("Expected request prompt, got %s", reply)
	}
	if reply := f.uc.HandleMessage(ctx, "alice", "look at my history"); reply != replyHistory {
		t.Errorf("Expected history redirect, got %s", reply)
	}
	if name := f.stage(t, "alice").Name(); name != domain.StageNameAskingDuration {
		t.Errorf("Expected asking_duration, got %s", name)
	}

	f.sessions.Save(ctx, &domain.AgentSession{UserID: "alice", Stage: domain.StageCustomRequest{}})
	if reply := f.uc.HandleMessage(ctx, "alice", "how do I apologize?"); reply != helpFallback {
		t.Errorf("Expected help fallback, got %s", reply)
	}
	if _, ok := f.sessions.sessions["alice"]; ok {
		t.Error("Expected session to be cleared")
	}
}

func TestAgent_ErrorLeavesSessionUnchanged(t *testing.T) {
	f := newAgentFixture(nil)
	ctx := context.Background()

	f.uc.HandleMessage(ctx, "alice", "suggest")
	f.sessions.saveErr = errors.New("redis down")

	reply := f.uc.HandleMessage(ctx, "alice", "1 day")
	if reply != replyApology {
		t.Errorf("Expected apology, got %s", reply)
	}
	if name := f.stage(t, "alice").Name(); name != domain.StageNameAskingDuration {
		t.Errorf("Expected session unchanged at asking_duration, got %s", name)
	}
}

func TestAgent_ClearSessionIdempotent(t *testing.T) {
	f := newAgentFixture(nil)
	ctx := context.Background()

	f.uc.HandleMessage(ctx, "alice", "suggest")
	if err := f.uc.ClearSession(ctx, "alice"); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}
	if err := f.uc.ClearSession(ctx, "alice"); err != nil {
		t.Fatalf("Second ClearSession failed: %v", err)
	}
	if name := f.stage(t, "alice").Name(); name != domain.StageNameGreeting {
		t.Errorf("Expected greeting after reset, got %s", name)
	}
}
