package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chatmate/chatmate/internal/biz/domain"
)

// mockLLMRepo returns canned output or errors
type mockLLMRepo struct {
	reply    string
	err      error
	vector   []float32
	embedErr error
	prompts    []string
	block      bool
	embedBlock bool
}

func (m *mockLLMRepo) Complete(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return m.reply, m.err
}

func (m *mockLLMRepo) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedBlock {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.vector, m.embedErr
}

func newTestGateway(llm *mockLLMRepo) *GatewayUsecase {
	if llm == nil {
		return NewGatewayUsecase(nil, DefaultPromptConfig, time.Second)
	}
	return NewGatewayUsecase(llm, DefaultPromptConfig, time.Second)
}

func TestCorrectGrammar_FailingClientReturnsInput(t *testing.T) {
	gw := newTestGateway(&mockLLMRepo{err: errors.New("boom")})

	got := gw.CorrectGrammar(context.Background(), "helo")
	if got != "helo" {
		t.Errorf("Expected 'helo', got '%s'", got)
	}
}

func TestCorrectGrammar_NoClientReturnsInput(t *testing.T) {
	gw := newTestGateway(nil)

	got := gw.CorrectGrammar(context.Background(), "helo wrld")
	if got != "helo wrld" {
		t.Errorf("Expected input unchanged, got '%s'", got)
	}
}

func TestCorrectGrammar_StripsQuotes(t *testing.T) {
	llm := &mockLLMRepo{reply: "  \"Hello world\"\n"}
	gw := newTestGateway(llm)

	got := gw.CorrectGrammar(context.Background(), "helo wrld")
	if got != "Hello world" {
		t.Errorf("Expected 'Hello world', got '%s'", got)
	}
	if len(llm.prompts) != 1 || !strings.HasSuffix(llm.prompts[0], "Input: helo wrld") {
		t.Errorf("Expected prompt ending with input, got %v", llm.prompts)
	}
}

func TestCorrectGrammar_EmptyReplyReturnsInput(t *testing.T) {
	gw := newTestGateway(&mockLLMRepo{reply: "   "})

	got := gw.CorrectGrammar(context.Background(), "helo")
	if got != "helo" {
		t.Errorf("Expected 'helo', got '%s'", got)
	}
}

func TestCorrectGrammar_TimeoutFallsBack(t *testing.T) {
	gw := NewGatewayUsecase(&mockLLMRepo{block: true}, DefaultPromptConfig, 20*time.Millisecond)

	got := gw.CorrectGrammar(context.Background(), "helo")
	if got != "helo" {
		t.Errorf("Expected 'helo' after timeout, got '%s'", got)
	}
}

func TestApplySimpleTone(t *testing.T) {
	tests := []struct {
		text string
		tone string
		want string
	}{
		{"hey, yeah thanks", "formal", "Hello, Yes Thank you"},
		{"nope okay", "formal", "No Certainly"},
		{"Hello there, thank you", "casual", "Hey there, Thanks"},
		{"see you", "friendly", "see you! 😊"},
		{"see you!", "friendly", "see you! 😊"},
		{"THE REPORT IS READY", "professional", "I would like to mention that The report is ready."},
		{"whatever", "flirty", "whatever"},
	}

	for _, tt := range tests {
		got := ApplySimpleTone(tt.text, tt.tone)
		if got != tt.want {
			t.Errorf("ApplySimpleTone(%q, %q): expected %q, got %q", tt.text, tt.tone, tt.want, got)
		}
	}
}

func TestAdjustTone_UsesInstruction(t *testing.T) {
	llm := &mockLLMRepo{reply: "'Good evening.'"}
	gw := newTestGateway(llm)

	got := gw.AdjustTone(context.Background(), "hey", "formal")
	if got != "Good evening." {
		t.Errorf("Expected 'Good evening.', got '%s'", got)
	}
	if !strings.Contains(llm.prompts[0], "Make it formal and professional.") {
		t.Errorf("Expected formal instruction in prompt, got %q", llm.prompts[0])
	}
}

func TestAdjustTone_UnknownToneInstruction(t *testing.T) {
	llm := &mockLLMRepo{reply: "ok"}
	gw := newTestGateway(llm)

	gw.AdjustTone(context.Background(), "hi", "sarcastic")
	if !strings.Contains(llm.prompts[0], "Adjust tone to sarcastic") {
		t.Errorf("Expected fallback instruction in prompt, got %q", llm.prompts[0])
	}
}

func TestAdjustTone_FailureUsesRules(t *testing.T) {
	gw := newTestGateway(&mockLLMRepo{err: errors.New("down")})

	got := gw.AdjustTone(context.Background(), "hey", "formal")
	if got != "Hello" {
		t.Errorf("Expected 'Hello', got '%s'", got)
	}
}

func TestParseAnnotation(t *testing.T) {
	raw := "```json\n{\"language\": \"hindi\", \"tone\": \"happy\", \"keywords\": [\"chai\"], \"isQuestion\": true}\n```"
	a, err := ParseAnnotation(raw)
	if err != nil {
		t.Fatalf("ParseAnnotation failed: %v", err)
	}
	if a.Language != domain.LanguageHindi || a.Tone != domain.ToneHappy || !a.IsQuestion {
		t.Errorf("Unexpected annotation: %+v", a)
	}
}

func TestParseAnnotation_RepairsBareKeys(t *testing.T) {
	raw := "{language: 'english', tone: 'casual', sentiment: 'positive'}"
	a, err := ParseAnnotation(raw)
	if err != nil {
		t.Fatalf("ParseAnnotation failed: %v", err)
	}
	if a.Language != domain.LanguageEnglish || a.Sentiment != domain.SentimentPositive {
		t.Errorf("Unexpected annotation: %+v", a)
	}
}

func TestAnalyzeForAnnotation_GarbageFallsBackToHeuristic(t *testing.T) {
	gw := newTestGateway(&mockLLMRepo{reply: "I cannot do that"})

	a := gw.AnalyzeForAnnotation(context.Background(), "How are you?")
	if !a.IsQuestion {
		t.Error("Expected heuristic annotation with isQuestion=true")
	}
	if a.Keywords == nil {
		t.Error("Expected normalized keywords slice")
	}
}

func TestAnalyzeForAnnotation_ClampsInvalidEnums(t *testing.T) {
	gw := newTestGateway(&mockLLMRepo{reply: `{"language":"klingon","tone":"smug","relationship":"rival","sentiment":"meh"}`})

	a := gw.AnalyzeForAnnotation(context.Background(), "qapla")
	if a.Language != domain.LanguageEnglish || a.Tone != domain.ToneNeutral ||
		a.Relationship != domain.RelationshipUnknown || a.Sentiment != domain.SentimentNeutral {
		t.Errorf("Expected clamped defaults, got %+v", a)
	}
}

func TestEmbed(t *testing.T) {
	gw := newTestGateway(&mockLLMRepo{vector: []float32{0.1, 0.2}})
	if v := gw.Embed(context.Background(), "hi"); len(v) != 2 {
		t.Errorf("Expected 2-dim vector, got %v", v)
	}

	gw = newTestGateway(&mockLLMRepo{embedErr: errors.New("quota")})
	if v := gw.Embed(context.Background(), "hi"); v != nil {
		t.Errorf("Expected nil vector on error, got %v", v)
	}

	gw = newTestGateway(nil)
	if v := gw.Embed(context.Background(), "hi"); v != nil {
		t.Errorf("Expected nil vector without client, got %v", v)
	}
}

func TestSuggest_Fallbacks(t *testing.T) {
	req := SuggestRequest{Recent: "Them: hi"}

	if got := newTestGateway(nil).Suggest(context.Background(), req); got != suggestNoClient {
		t.Errorf("Expected no-client fallback, got %q", got)
	}
	if got := newTestGateway(&mockLLMRepo{reply: ""}).Suggest(context.Background(), req); got != suggestEmpty {
		t.Errorf("Expected empty fallback, got %q", got)
	}
	if got := newTestGateway(&mockLLMRepo{err: errors.New("x")}).Suggest(context.Background(), req); got != suggestFailed {
		t.Errorf("Expected error fallback, got %q", got)
	}
}

func TestSuggest_SecondBatchPrompt(t *testing.T) {
	llm := &mockLLMRepo{reply: "1. a\n2. b\n3. c"}
	gw := newTestGateway(llm)

	gw.Suggest(context.Background(), SuggestRequest{SecondBatch: true})
	if !strings.Contains(llm.prompts[0], "provide 3 different message suggestions") {
		t.Errorf("Expected 'different' variant in prompt, got %q", llm.prompts[0])
	}
	if !strings.Contains(llm.prompts[0], "Generate 3 alternative message suggestions") {
		t.Errorf("Expected 'alternative' variant in prompt, got %q", llm.prompts[0])
	}
}

func TestConversationStarterAndHelp_Fallbacks(t *testing.T) {
	ctx := context.Background()

	if got := newTestGateway(nil).ConversationStarter(ctx, "friend", "movies"); got != starterFallback {
		t.Errorf("Expected starter fallback, got %q", got)
	}
	if got := newTestGateway(&mockLLMRepo{err: errors.New("x")}).ConversationStarter(ctx, "friend", "movies"); got != starterFailed {
		t.Errorf("Expected starter error fallback, got %q", got)
	}
	if got := newTestGateway(nil).GeneralHelp(ctx, "help"); got != helpFallback {
		t.Errorf("Expected help fallback, got %q", got)
	}
	if got := newTestGateway(&mockLLMRepo{reply: " "}).GeneralHelp(ctx, "help"); got != helpEmpty {
		t.Errorf("Expected help empty fallback, got %q", got)
	}
}

func TestTones_ListsConfiguredInstructions(t *testing.T) {
	gw := newTestGateway(nil)

	got := strings.Join(gw.Tones(), ",")
	want := "casual,flirty,formal,friendly,professional,romantic"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}
