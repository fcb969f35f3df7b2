package heuristic

import "regexp"

// ========== Language ==========

// romanHindiWords is matched against whole tokens. Multi-word entries are
// kept for parity with the phrase lists but never match a single token.
var romanHindiWords = newSet(
	"aap", "tum", "main", "meri", "tera", "teri", "mera", "tumhara", "tumhari",
	"kya", "kaise", "kahan", "kab", "kyun", "kaun", "kitna", "kitni",
	"hai", "hoon", "ho", "hain", "tha", "thi", "the",
	"kar", "karna", "karta", "karti", "karte", "kar raha", "kar rahi",
	"nahi", "nahin", "mat", "mujhe", "tujhe", "usse", "unhe",
	"acha", "accha", "bura", "baat", "samay", "waqt", "din", "raat", "ghar",
	"paisa", "paise", "kam", "kaam", "padhai", "shaadi", "pyaar", "mohabbat",
	"dost", "dosti", "yaad", "yaadein", "khana", "paani", "sona", "jaana",
	"aana", "lena", "dena", "bahut", "thoda", "zyada", "bilkul", "shayad", "zaroor",
)

// ========== Tone ==========

var romanticKeywords = []string{
	"love", "pyaar", "mohabbat", "ishq", "jaan", "jaanu", "baby", "babe",
	"darling", "sweetheart", "honey", "meri jaan", "meri zindagi", "yaad",
	"miss", "kiss", "hug", "cuddle", "romance", "romantic", "beautiful",
	"handsome", "cute", "sexy", "hot", "gorgeous",
}

var flirtyPhrases = []string{
	"i love you", "love you", "miss you", "thinking of you",
	"can't stop thinking", "you're so", "you look", "tujhse pyaar",
	"tumse mohabbat", "teri yaad", "tum kitne", "tum bahut", "mujhe tumse",
}

// flirtyMarkers narrows a romantic match down to flirty
var flirtyMarkers = []string{"love you", "miss you", "pyaar", "yaad"}

// toneRule is one entry of the ordered tone table; the first match wins
type toneRule struct {
	pattern *regexp.Regexp
	tone    string
}

var toneRules = []toneRule{
	{regexp.MustCompile(`\b(please|kindly|would you|could you|sir|madam)\b`), "formal"},
	{regexp.MustCompile(`\b(hey|yo|wassup|sup|bro|dude)\b`), "casual"},
	{regexp.MustCompile(`\b(damn|wtf|angry|mad|furious|pissed)\b`), "angry"},
	{regexp.MustCompile(`\b(sad|depressed|down|upset|crying)\b`), "sad"},
	{regexp.MustCompile(`\b(happy|excited|yay|awesome|amazing|great)\b`), "happy"},
	{regexp.MustCompile(`\b(thanks|thank you|grateful|appreciate)\b`), "friendly"},
}

// ========== Relationship ==========

var romanticIndicators = []string{
	"love you", "miss you", "baby", "babe", "darling", "sweetheart",
	"meri jaan", "jaanu", "pyaar", "mohabbat", "tujhse pyaar",
}

var petNames = []string{"motu", "chotu", "sweety", "cutie", "honey", "jaan", "jaanu"}

var professionalIndicators = []string{
	"sir", "madam", "boss", "manager", "colleague", "meeting", "project",
	"deadline", "office", "work", "report",
}

var familyIndicators = []string{
	"mom", "dad", "mother", "father", "sister", "brother", "mama", "papa",
	"mummy", "daddy", "bhai", "didi",
}

var friendIndicators = []string{"dost", "yaar", "buddy", "friend", "bro", "dude", "mate"}

// ========== Sentiment ==========

var positiveWords = []string{
	"good", "great", "awesome", "happy", "love", "excellent", "amazing",
	"wonderful", "fantastic", "perfect", "beautiful", "nice", "glad", "excited",
	"thrilled", "delighted", "pleased", "satisfied",
	"acha", "accha", "badiya", "mast", "zabardast", "kamaal",
}

var negativeWords = []string{
	"bad", "terrible", "sad", "hate", "awful", "horrible", "angry", "worst",
	"disappointed", "upset", "frustrated", "annoyed", "mad", "furious",
	"depressed", "miserable", "pathetic",
	"bura", "ganda", "bekaar", "ghatiya", "pareshan",
}

// ========== Keywords ==========

var stopWords = newSet(
	"the", "and", "for", "are", "but", "not", "you", "all", "can", "had",
	"her", "was", "one", "our", "out", "day", "get", "has", "him", "his",
	"how", "its", "new", "now", "old", "see", "two", "way", "who", "boy",
	"did", "man", "may", "she", "use", "what", "with", "this", "that",
	"from", "they", "know", "want", "been", "good", "much", "some", "time",
	"hai", "hoon", "ho", "hain", "ka", "ki", "ke", "ko", "se", "me", "par",
)

// ========== Responses ==========

var responseIndicators = []string{
	"yes", "no", "okay", "ok", "sure", "alright", "got it", "thanks",
	"welcome", "yeah", "yep", "nope", "right", "correct", "exactly",
	"haan", "han", "nahi", "nahin", "theek", "accha", "bilkul",
}

// ========== Chat context scan ==========

var (
	devanagariMarkers   = []string{"है", "हैं", "का", "की", "के", "में", "से", "को", "पर", "और", "या", "नहीं"}
	romanHindiMarkers   = newSet("hai", "hain", "kar", "ki", "ke", "mein", "se", "ko", "par", "aur", "ya", "nahi", "kya", "kaise")
	colleagueMarkers    = []string{"sir", "madam", "boss", "manager", "office", "meeting", "work"}
	affectionateMarkers = []string{"love", "baby", "darling", "sweetheart", "miss you", "love you"}
)

type set map[string]struct{}

func newSet(words ...string) set {
	s := make(set, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func (s set) has(w string) bool {
	_, ok := s[w]
	return ok
}
