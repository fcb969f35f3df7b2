package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/heuristic"
	"github.com/chatmate/chatmate/internal/biz/repo"
	"github.com/chatmate/chatmate/internal/logger"
)

// DefaultLLMTimeout bounds a single LLM call
const DefaultLLMTimeout = 30 * time.Second

// Fixed fallbacks for the agent's LLM calls
const (
	suggestNoClient = "1. How's your day going?\n2. Hope you're doing well!\n3. Let's catch up soon!"
	suggestEmpty    = "1. How are you?\n2. What's up?\n3. Hope you're doing well!"
	suggestFailed   = "1. How's everything going?\n2. Hope you're having a good day!\n3. Let's chat soon!"

	starterFallback = "Hi! How are you doing?"
	starterFailed   = "Hi! Hope you're having a great day!"

	helpFallback = "I'm here to help with your conversations! You can ask me to suggest messages or help start new chats."
	helpEmpty    = "I'm here to help with your conversations! Feel free to ask for message suggestions or conversation starters."
)

var (
	quoteTrimRe = regexp.MustCompile(`^["']|["']$`)
	codeFenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*|\\s*```$")
	bareKeyRe   = regexp.MustCompile(`([a-zA-Z0-9_]+)\s*:`)

	formalRules = []toneRule{
		{regexp.MustCompile(`(?i)\bhey\b`), "Hello"},
		{regexp.MustCompile(`(?i)\byeah\b`), "Yes"},
		{regexp.MustCompile(`(?i)\bnope\b`), "No"},
		{regexp.MustCompile(`(?i)\bokay\b`), "Certainly"},
		{regexp.MustCompile(`(?i)\bthanks\b`), "Thank you"},
	}
	casualRules = []toneRule{
		{regexp.MustCompile(`(?i)\bHello\b`), "Hey"},
		{regexp.MustCompile(`(?i)\bThank you\b`), "Thanks"},
	}
)

type toneRule struct {
	re   *regexp.Regexp
	repl string
}

// errEmptyResponse marks a completion that came back blank
var errEmptyResponse = errors.New("empty response")

// GatewayUsecase wraps the optional LLM with deterministic fallbacks.
// No method returns an error: every failure degrades to a fallback value.
type GatewayUsecase struct {
	llm     repo.LLMRepo // nil if no credential configured
	prompts PromptConfig
	timeout time.Duration
	log     *zap.Logger
}

// NewGatewayUsecase creates a new gateway usecase
func NewGatewayUsecase(llm repo.LLMRepo, prompts PromptConfig, timeout time.Duration) *GatewayUsecase {
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	return &GatewayUsecase{
		llm:     llm,
		prompts: prompts,
		timeout: timeout,
		log:     logger.Named("gateway"),
	}
}

// IsLLMEnabled returns whether an LLM client is configured
func (uc *GatewayUsecase) IsLLMEnabled() bool {
	return uc.llm != nil
}

// withFallback runs primary under the call deadline and returns fallback() on any error
func withFallback[T any](ctx context.Context, uc *GatewayUsecase, op string, primary func(ctx context.Context) (T, error), fallback func(err error) T) T {
	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	result, err := primary(callCtx)
	if err != nil {
		uc.log.Warn("llm call failed, using fallback", zap.String("op", op), zap.Error(err))
		return fallback(err)
	}
	return result
}

// complete sends a prompt and rejects blank output
func (uc *GatewayUsecase) complete(ctx context.Context, prompt string) (string, error) {
	out, err := uc.llm.Complete(ctx, prompt)
	if err != nil {
		return "", domain.NewExternalError("llm completion", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errEmptyResponse
	}
	return out, nil
}

// ========== Text operations ==========

// CorrectGrammar returns the corrected text, or the input unchanged on any failure
func (uc *GatewayUsecase) CorrectGrammar(ctx context.Context, text string) string {
	if uc.llm == nil {
		return text
	}
	prompt := render(uc.prompts.Grammar, map[string]string{"text": text})
	return withFallback(ctx, uc, "correct_grammar",
		func(ctx context.Context) (string, error) {
			out, err := uc.complete(ctx, prompt)
			if err != nil {
				return "", err
			}
			return quoteTrimRe.ReplaceAllString(out, ""), nil
		},
		func(error) string { return text },
	)
}

// AdjustTone rewrites text in the requested tone, falling back to rule substitution
func (uc *GatewayUsecase) AdjustTone(ctx context.Context, text, tone string) string {
	if uc.llm == nil {
		return ApplySimpleTone(text, tone)
	}
	prompt := render(uc.prompts.Tone, map[string]string{
		"instruction": uc.toneInstruction(tone),
		"text":        text,
	})
	return withFallback(ctx, uc, "adjust_tone",
		func(ctx context.Context) (string, error) {
			out, err := uc.complete(ctx, prompt)
			if err != nil {
				return "", err
			}
			return quoteTrimRe.ReplaceAllString(out, ""), nil
		},
		func(error) string { return ApplySimpleTone(text, tone) },
	)
}

// Tones returns the tones that have a rewrite instruction, sorted
func (uc *GatewayUsecase) Tones() []string {
	tones := make([]string, 0, len(uc.prompts.ToneInstructions))
	for tone := range uc.prompts.ToneInstructions {
		tones = append(tones, tone)
	}
	sort.Strings(tones)
	return tones
}

func (uc *GatewayUsecase) toneInstruction(tone string) string {
	if instr, ok := uc.prompts.ToneInstructions[strings.ToLower(tone)]; ok {
		return instr
	}
	return render(uc.prompts.ToneFallback, map[string]string{"tone": tone})
}

// ApplySimpleTone is the rule-based tone rewrite used without an LLM
func ApplySimpleTone(text, tone string) string {
	switch strings.ToLower(tone) {
	case "formal":
		return applyRules(text, formalRules)
	case "casual":
		return applyRules(text, casualRules)
	case "friendly":
		if strings.HasSuffix(text, "!") {
			return text + " 😊"
		}
		return text + "! 😊"
	case "professional":
		runes := []rune(strings.ToLower(text))
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		return "I would like to mention that " + string(runes) + "."
	default:
		return text
	}
}

func applyRules(text string, rules []toneRule) string {
	for _, r := range rules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}

// AnalyzeForAnnotation asks the LLM for an annotation and falls back to the heuristics.
// The result is always normalized.
func (uc *GatewayUsecase) AnalyzeForAnnotation(ctx context.Context, text string) domain.Annotation {
	if uc.llm == nil {
		return heuristic.Annotate(text)
	}
	prompt := render(uc.prompts.Analysis, map[string]string{"text": text})
	a := withFallback(ctx, uc, "analyze",
		func(ctx context.Context) (domain.Annotation, error) {
			out, err := uc.complete(ctx, prompt)
			if err != nil {
				return domain.Annotation{}, err
			}
			return ParseAnnotation(out)
		},
		func(error) domain.Annotation { return heuristic.Annotate(text) },
	)
	a.Normalize()
	return a
}

// ParseAnnotation decodes the model's JSON answer, repairing bare keys and single quotes once
func ParseAnnotation(raw string) (domain.Annotation, error) {
	raw = codeFenceRe.ReplaceAllString(strings.TrimSpace(raw), "")

	var a domain.Annotation
	if err := json.Unmarshal([]byte(raw), &a); err == nil {
		return a, nil
	}

	repaired := bareKeyRe.ReplaceAllString(raw, `"$1":`)
	repaired = strings.ReplaceAll(repaired, "'", `"`)
	if err := json.Unmarshal([]byte(repaired), &a); err != nil {
		return domain.Annotation{}, fmt.Errorf("parse annotation: %w", err)
	}
	return a, nil
}

// Embed returns the embedding of text, or nil when unavailable
func (uc *GatewayUsecase) Embed(ctx context.Context, text string) []float32 {
	if uc.llm == nil {
		return nil
	}
	return withFallback(ctx, uc, "embed",
		func(ctx context.Context) ([]float32, error) {
			v, err := uc.llm.Embed(ctx, text)
			if err != nil {
				return nil, domain.NewExternalError("llm embedding", err)
			}
			return v, nil
		},
		func(error) []float32 { return nil },
	)
}

// ========== Agent operations ==========

// Suggest returns three numbered reply suggestions for a conversation
func (uc *GatewayUsecase) Suggest(ctx context.Context, req SuggestRequest) string {
	if uc.llm == nil {
		return suggestNoClient
	}
	variant, alt := "", ""
	if req.SecondBatch {
		variant, alt = "different ", "alternative "
	}
	prompt := render(uc.prompts.Suggestions, map[string]string{
		"variant":      variant,
		"alt":          alt,
		"language":     req.Context.Language,
		"relationship": req.Context.Relationship,
		"tone":         req.Context.Tone,
		"recent":       req.Recent,
	})
	return withFallback(ctx, uc, "suggest",
		func(ctx context.Context) (string, error) { return uc.complete(ctx, prompt) },
		func(err error) string {
			if errors.Is(err, errEmptyResponse) {
				return suggestEmpty
			}
			return suggestFailed
		},
	)
}

// ConversationStarter returns an opening message for a new conversation
func (uc *GatewayUsecase) ConversationStarter(ctx context.Context, relationship, topic string) string {
	if uc.llm == nil {
		return starterFallback
	}
	prompt := render(uc.prompts.Starter, map[string]string{
		"relationship": relationship,
		"topic":        topic,
	})
	return withFallback(ctx, uc, "starter",
		func(ctx context.Context) (string, error) { return uc.complete(ctx, prompt) },
		func(err error) string {
			if errors.Is(err, errEmptyResponse) {
				return starterFallback
			}
			return starterFailed
		},
	)
}

// GeneralHelp answers a free-form request
func (uc *GatewayUsecase) GeneralHelp(ctx context.Context, request string) string {
	if uc.llm == nil {
		return helpFallback
	}
	prompt := render(uc.prompts.GeneralHelp, map[string]string{"request": request})
	return withFallback(ctx, uc, "general_help",
		func(ctx context.Context) (string, error) { return uc.complete(ctx, prompt) },
		func(err error) string {
			if errors.Is(err, errEmptyResponse) {
				return helpEmpty
			}
			return helpFallback
		},
	)
}
