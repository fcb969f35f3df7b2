// Package heuristic implements rule-based message annotation.
// Every detector is pure and deterministic; ordered rule lists are
// evaluated first-match-wins.
package heuristic

import (
	"strings"
	"unicode"

	"github.com/chatmate/chatmate/internal/biz/domain"
)

// Annotate derives an annotation from text without any external call
func Annotate(text string) domain.Annotation {
	a := domain.Annotation{
		Language:     DetectLanguage(text),
		Tone:         DetectTone(text),
		Relationship: DetectRelationship(text),
		Context:      domain.TruncateRunes(text, domain.MaxContextLen),
		Sentiment:    DetectSentiment(text),
		Keywords:     ExtractKeywords(text),
		IsQuestion:   IsQuestion(text),
		IsResponse:   IsResponse(text),
	}
	a.Normalize()
	return a
}

// DetectLanguage classifies text as english, hindi, roman_hindi or mixed
func DetectLanguage(text string) domain.Language {
	if text == "" {
		return domain.LanguageEnglish
	}

	hasDevanagari := containsDevanagari(text)
	hasLatin := containsLatin(text)

	romanHindiCount := 0
	for _, w := range tokenize(text) {
		if romanHindiWords.has(w) {
			romanHindiCount++
		}
	}
	hasRomanHindi := romanHindiCount > 0

	switch {
	case hasDevanagari && hasLatin:
		return domain.LanguageMixed
	case hasDevanagari && hasRomanHindi:
		return domain.LanguageMixed
	case hasLatin && romanHindiCount >= 2:
		return domain.LanguageRomanHindi
	case hasDevanagari:
		return domain.LanguageHindi
	case romanHindiCount >= 2:
		return domain.LanguageRomanHindi
	}
	return domain.LanguageEnglish
}

// DetectTone returns the first matching tone category.
// Romantic vocabulary is checked before every other category.
func DetectTone(text string) domain.Tone {
	if text == "" {
		return domain.ToneNeutral
	}
	lower := strings.ToLower(text)

	if containsAny(lower, romanticKeywords) || containsAny(lower, flirtyPhrases) {
		if containsAny(lower, flirtyMarkers) {
			return domain.ToneFlirty
		}
		return domain.ToneRomantic
	}

	for _, rule := range toneRules {
		if rule.pattern.MatchString(lower) {
			return domain.Tone(rule.tone)
		}
	}
	return domain.ToneNeutral
}

// DetectRelationship returns the first matching relationship category
func DetectRelationship(text string) domain.Relationship {
	if text == "" {
		return domain.RelationshipUnknown
	}
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, romanticIndicators) || containsAny(lower, petNames):
		return domain.RelationshipRomantic
	case containsAny(lower, professionalIndicators):
		return domain.RelationshipColleague
	case containsAny(lower, familyIndicators):
		return domain.RelationshipFamily
	case containsAny(lower, friendIndicators):
		return domain.RelationshipFriend
	}
	return domain.RelationshipUnknown
}

// DetectSentiment compares the number of positive and negative terms present.
// A tie is neutral.
func DetectSentiment(text string) domain.Sentiment {
	if text == "" {
		return domain.SentimentNeutral
	}
	lower := strings.ToLower(text)

	pos := countContained(lower, positiveWords)
	neg := countContained(lower, negativeWords)

	switch {
	case pos > neg:
		return domain.SentimentPositive
	case neg > pos:
		return domain.SentimentNegative
	}
	return domain.SentimentNeutral
}

// ExtractKeywords returns up to 8 non-stopword tokens longer than two characters,
// in original order
func ExtractKeywords(text string) []string {
	keywords := []string{}
	for _, w := range tokenize(text) {
		if len(w) <= 2 || stopWords.has(w) {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == domain.MaxKeywords {
			break
		}
	}
	return keywords
}

// IsQuestion reports whether the text contains a question mark
func IsQuestion(text string) bool {
	return strings.Contains(text, "?")
}

// IsResponse reports whether the text contains a short-response marker
func IsResponse(text string) bool {
	if text == "" {
		return false
	}
	return containsAny(strings.ToLower(text), responseIndicators)
}

// tokenize lowercases, drops everything except ASCII word characters and
// whitespace, and splits on whitespace
func tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if isASCIIWord(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}

func isASCIIWord(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func containsDevanagari(text string) bool {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}

func containsLatin(text string) bool {
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func countContained(s string, needles []string) int {
	n := 0
	for _, w := range needles {
		if strings.Contains(s, w) {
			n++
		}
	}
	return n
}
