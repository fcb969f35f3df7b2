package heuristic

import "strings"

// ChatContext is the coarse context of a recent conversation window
type ChatContext struct {
	Language     string
	Relationship string
	Tone         string
}

// Summarize scans the given texts (oldest first) for a coarse language,
// relationship and tone. It is lighter than Annotate and used to steer
// reply suggestions.
func Summarize(texts []string) ChatContext {
	ctx := ChatContext{
		Language:     "english",
		Relationship: "friend",
		Tone:         "casual",
	}

	all := strings.ToLower(strings.Join(texts, " "))
	tokens := tokenize(all)

	switch {
	case containsAny(all, devanagariMarkers):
		ctx.Language = "hindi"
	case anyToken(tokens, romanHindiMarkers):
		ctx.Language = "roman_hindi"
	}

	switch {
	case anyToken(tokens, newSet(colleagueMarkers...)):
		ctx.Relationship = "colleague"
		ctx.Tone = "professional"
	case containsAny(all, affectionateMarkers):
		ctx.Relationship = "romantic"
		ctx.Tone = "affectionate"
	}

	return ctx
}

func anyToken(tokens []string, s set) bool {
	for _, t := range tokens {
		if s.has(t) {
			return true
		}
	}
	return false
}
