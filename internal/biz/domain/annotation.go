package domain

import "unicode/utf8"

// Language is the detected script/language of a message
type Language string

const (
	LanguageEnglish    Language = "english"
	LanguageHindi      Language = "hindi"
	LanguageRomanHindi Language = "roman_hindi"
	LanguageMixed      Language = "mixed"
)

// Tone is the detected tone of a message
type Tone string

const (
	ToneFormal       Tone = "formal"
	ToneCasual       Tone = "casual"
	ToneFriendly     Tone = "friendly"
	ToneFlirty       Tone = "flirty"
	ToneRomantic     Tone = "romantic"
	ToneProfessional Tone = "professional"
	ToneAngry        Tone = "angry"
	ToneSad          Tone = "sad"
	ToneHappy        Tone = "happy"
	ToneNeutral      Tone = "neutral"
)

// Relationship is the inferred relationship between sender and receiver
type Relationship string

const (
	RelationshipFriend    Relationship = "friend"
	RelationshipColleague Relationship = "colleague"
	RelationshipBoss      Relationship = "boss"
	RelationshipRomantic  Relationship = "romantic"
	RelationshipFamily    Relationship = "family"
	RelationshipUnknown   Relationship = "unknown"
)

// Sentiment is the polarity of a message
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

const (
	// MaxKeywords is the maximum number of keywords kept on an annotation
	MaxKeywords = 8
	// MaxContextLen is the maximum context length in runes
	MaxContextLen = 120
)

// Annotation is the semantic summary attached to a message at send time.
// It is never updated after the message is stored.
type Annotation struct {
	Language     Language     `json:"language"`
	Tone         Tone         `json:"tone"`
	Relationship Relationship `json:"relationship"`
	Context      string       `json:"context"`
	Sentiment    Sentiment    `json:"sentiment"`
	Keywords     []string     `json:"keywords"`
	IsQuestion   bool         `json:"isQuestion"`
	IsResponse   bool         `json:"isResponse"`
}

// Valid reports whether the language is one of the known values
func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageHindi, LanguageRomanHindi, LanguageMixed:
		return true
	}
	return false
}

// Valid reports whether the tone is one of the known values
func (t Tone) Valid() bool {
	switch t {
	case ToneFormal, ToneCasual, ToneFriendly, ToneFlirty, ToneRomantic,
		ToneProfessional, ToneAngry, ToneSad, ToneHappy, ToneNeutral:
		return true
	}
	return false
}

// Valid reports whether the relationship is one of the known values
func (r Relationship) Valid() bool {
	switch r {
	case RelationshipFriend, RelationshipColleague, RelationshipBoss,
		RelationshipRomantic, RelationshipFamily, RelationshipUnknown:
		return true
	}
	return false
}

// Valid reports whether the sentiment is one of the known values
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Normalize clamps unknown enum values to their defaults and enforces size limits.
// Model output is untrusted, so every annotation passes through here before storage.
func (a *Annotation) Normalize() {
	if !a.Language.Valid() {
		a.Language = LanguageEnglish
	}
	if !a.Tone.Valid() {
		a.Tone = ToneNeutral
	}
	if !a.Relationship.Valid() {
		a.Relationship = RelationshipUnknown
	}
	if !a.Sentiment.Valid() {
		a.Sentiment = SentimentNeutral
	}
	if a.Keywords == nil {
		a.Keywords = []string{}
	}
	if len(a.Keywords) > MaxKeywords {
		a.Keywords = a.Keywords[:MaxKeywords]
	}
	a.Context = TruncateRunes(a.Context, MaxContextLen)
}

// TruncateRunes returns at most n runes of s
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
