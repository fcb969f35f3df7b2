package usecase

import (
	"strings"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/heuristic"
)

// PromptConfig contains prompt configuration.
// Templates use {{name}} placeholders.
type PromptConfig struct {
	Grammar          string            // {{text}}
	Tone             string            // {{instruction}}, {{text}}
	ToneInstructions map[string]string // tone -> instruction
	ToneFallback     string            // {{tone}}, used for tones without an instruction
	Analysis         string            // {{text}}

	Suggestions string // {{variant}}, {{alt}}, {{language}}, {{relationship}}, {{tone}}, {{recent}}
	Starter     string // {{relationship}}, {{topic}}
	GeneralHelp string // {{request}}
}

// DefaultPromptConfig contains default prompt configuration
var DefaultPromptConfig = PromptConfig{
	Grammar: `Correct the grammar and spelling of the following sentence (may be English, Roman Hindi, or Hindi). Return ONLY the corrected sentence (no extra commentary).

Input: {{text}}`,

	Tone: `Rewrite the following sentence to be: {{instruction}}
Keep same language as input. Return only the rewritten sentence.

Input: {{text}}`,

	ToneInstructions: map[string]string{
		"formal":       "Make it formal and professional.",
		"casual":       "Make it casual and relaxed.",
		"friendly":     "Make it sound warm and friendly.",
		"professional": "Make it professional and concise.",
		"flirty":       "Make it more flirtatious and playful.",
		"romantic":     "Make it more romantic and loving.",
	},
	ToneFallback: "Adjust tone to {{tone}}",

	Analysis: `Analyze this message and return ONLY a JSON object:
{
  "language": "english|hindi|roman_hindi|mixed",
  "tone": "formal|casual|friendly|flirty|romantic|professional|angry|sad|happy|neutral",
  "relationship": "friend|colleague|boss|romantic|family|unknown",
  "context": "brief description (1-2 words)",
  "sentiment": "positive|negative|neutral",
  "keywords": ["key","words"],
  "isQuestion": true/false,
  "isResponse": true/false
}

Message: {{text}}`,

	Suggestions: `Analyze this chat conversation and provide 3 {{variant}}message suggestions to continue the conversation naturally.

Chat Context:
- Language used: {{language}}
- Relationship type: {{relationship}}
- Conversation tone: {{tone}}
- Recent messages:
{{recent}}

Generate 3 {{alt}}message suggestions that:
1. Match the established tone and language
2. Are appropriate for the relationship type
3. Continue the conversation naturally
4. Are culturally appropriate

Format as:
1. [suggestion 1]
2. [suggestion 2]
3. [suggestion 3]`,

	Starter: `Generate a friendly conversation starter for someone who is a {{relationship}}.
The person wants to talk about: {{topic}}

Create a warm, natural message that:
1. Is appropriate for the relationship
2. Addresses the topic naturally
3. Is engaging and likely to get a response
4. Feels genuine and not scripted

Just return the message, nothing else.`,

	GeneralHelp: `The user has made this request: "{{request}}"

If this is related to chatting, messaging, or communication, provide helpful advice.
If it's not related to communication, politely redirect them to chat-related assistance.

Keep the response friendly and helpful.`,
}

// render replaces {{key}} placeholders in template
func render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// SuggestRequest describes one batch of reply suggestions
type SuggestRequest struct {
	Context     heuristic.ChatContext
	Recent      string // Formatted excerpt of the last messages
	SecondBatch bool
}

const (
	contextWindow = 10 // Messages scanned for chat context
	excerptWindow = 5  // Messages quoted in the suggestion prompt
)

// BuildSuggestRequest builds a suggestion request from a conversation window (oldest first)
func BuildSuggestRequest(userID string, messages []domain.Message, secondBatch bool) SuggestRequest {
	return SuggestRequest{
		Context:     heuristic.Summarize(texts(tail(messages, contextWindow))),
		Recent:      FormatExcerpt(userID, tail(messages, excerptWindow)),
		SecondBatch: secondBatch,
	}
}

// FormatExcerpt formats messages as "You: ..." / "Them: ..." lines
func FormatExcerpt(userID string, messages []domain.Message) string {
	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		if m.Sender == userID {
			sb.WriteString("You: ")
		} else {
			sb.WriteString("Them: ")
		}
		sb.WriteString(m.Text)
	}
	return sb.String()
}

func tail(messages []domain.Message, n int) []domain.Message {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

func texts(messages []domain.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Text
	}
	return out
}
