// Package confirm classifies free-text replies as affirmative, negative, or
// ambiguous across Hindi (Devanagari and romanized), Gujarati, Kannada, and
// English, and provides the short-phrase greeting heuristic.
//
// Coverage comes purely from the curated lists below; there is no fuzzy
// matching. Substring containment is applied only to short inputs to cap false
// positives from long sentences that merely mention a keyword.
package confirm

import "strings"

// Verdict is the three-way confirmation outcome.
type Verdict string

const (
	// Yes indicates an affirmative reply.
	Yes Verdict = "yes"
	// No indicates a negative reply.
	No Verdict = "no"
	// Ambiguous indicates the reply matched both lists or neither; the caller
	// must reprompt with an explicit two-choice instruction.
	Ambiguous Verdict = "ambiguous"
)

// maxSubstringLen caps the raw input length for the substring fallback.
const maxSubstringLen = 15

// edgePunctuation is the fixed punctuation set stripped from both ends of the
// input. Includes the Devanagari danda.
const edgePunctuation = ".,।"

// affirmatives is the curated yes list. Entries are matched exactly against the
// normalized, cleaned, and raw-trimmed forms, then by containment for short
// inputs. Keep entries at least three bytes in romanized scripts so the
// containment fallback does not fire on incidental letter pairs.
var affirmatives = []string{
	// Hindi (Devanagari)
	"हाँ", "हां", "हा", "जी", "जी हाँ", "कर दो", "करो", "ठीक", "हो जाएगा", "चलेगा",
	// Hindi (romanized)
	"haan", "haanji", "han ji", "kar do", "kardo", "karo", "chalega", "pakka", "sahi hai",
	// Gujarati
	"હા", "હાં", "ભલે", "કરી દો",
	"bhale", "kari do",
	// Kannada
	"ಹೌದು", "ಸರಿ", "ಆಯ್ತು", "ಮಾಡಿ",
	"howdu", "aaytu", "madi",
	// English
	"yes", "yeah", "yep", "sure", "ok", "okay", "confirm", "confirmed", "done", "go ahead",
}

// negatives is the curated no list.
var negatives = []string{
	// Hindi (Devanagari)
	"नहीं", "नही", "ना", "मत", "रहने दो", "नहीं चाहिए", "बदलो",
	// Hindi (romanized)
	"nahi", "nahin", "nako", "mat karo", "rehne do", "badlo", "galat",
	// Gujarati
	"નહીં", "ના", "નથી",
	"nathi",
	// Kannada
	"ಇಲ್ಲ", "ಬೇಡ",
	"illa", "beda",
	// English
	"no", "nope", "cancel", "wrong", "change it", "not yet",
}

// greetings is the short fixed phrase list backing the orchestrator's greeting
// heuristic. Independent of the external classifier.
var greetings = []string{
	"hi", "hello", "hey", "namaste", "namaskar", "नमस्ते", "नमस्कार",
	"hii", "hiii", "good morning", "good evening", "good afternoon",
}

// Normalize trims the input, strips leading and trailing punctuation from the
// fixed set, and lowercases. Exposed for callers that store normalized answers.
func Normalize(raw string) string {
	return strings.ToLower(clean(raw))
}

// clean trims whitespace and strips edge punctuation without lowering.
func clean(raw string) string {
	trimmed := strings.TrimSpace(raw)
	stripped := strings.Trim(trimmed, edgePunctuation)
	return strings.TrimSpace(stripped)
}

// Resolve classifies rawText as Yes, No, or Ambiguous.
//
// Each list is tested against three representations: the normalized form, the
// cleaned (un-lowered) form, and the raw trimmed form. When no exact match is
// found and the raw trimmed input is at most 15 characters, containment against
// the normalized form is used as a fallback. Yes and no checks are independent;
// if both or neither fire, the result is Ambiguous.
func Resolve(rawText string) Verdict {
	trimmed := strings.TrimSpace(rawText)
	cleaned := clean(rawText)
	normalized := strings.ToLower(cleaned)

	yes := matches(affirmatives, trimmed, cleaned, normalized)
	no := matches(negatives, trimmed, cleaned, normalized)

	switch {
	case yes && !no:
		return Yes
	case no && !yes:
		return No
	default:
		return Ambiguous
	}
}

// matches reports whether any list entry matches the input representations.
func matches(list []string, trimmed, cleaned, normalized string) bool {
	for _, entry := range list {
		if entry == normalized || entry == cleaned || entry == trimmed {
			return true
		}
	}
	// Substring fallback, short inputs only.
	if len(trimmed) > maxSubstringLen {
		return false
	}
	for _, entry := range list {
		if strings.Contains(normalized, entry) {
			return true
		}
	}
	return false
}

// IsGreeting reports whether rawText matches the greeting phrase list. The
// match is exact on the normalized form, or on its first word for inputs like
// "hello there".
func IsGreeting(rawText string) bool {
	normalized := Normalize(rawText)
	if normalized == "" {
		return false
	}
	firstWord, _, _ := strings.Cut(normalized, " ")
	for _, g := range greetings {
		if normalized == g || firstWord == g {
			return true
		}
	}
	return false
}
