package resolve

import (
	"strings"
	"unicode"
)

// tokenize splits text into comparable tokens, case- and
// language-agnostic: runs of ASCII letters/digits become lowercased
// words, while each CJK rune stands alone so Chinese descriptors
// overlap without segmentation.
func tokenize(text string) []string {
	var tokens []string
	var word strings.Builder

	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, strings.ToLower(word.String()))
			word.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokenize(text) {
		set[t] = true
	}
	return set
}

// lastPhrases are the literal references that deterministically select
// the most recently created record, bypassing text scoring.
var lastPhrases = []string{
	"last", "most recent", "latest", "previous one",
	"最后", "上一笔", "刚才", "刚刚",
}

// IsLastReference reports whether the descriptor contains a literal
// "last/most recent" reference. Phrases match on token boundaries
// anywhere in the descriptor, so "the last one" counts and
// "breakfast" does not.
func IsLastReference(descriptor string) bool {
	d := " " + strings.Join(tokenize(descriptor), " ") + " "
	for _, p := range lastPhrases {
		if strings.Contains(d, " "+strings.Join(tokenize(p), " ")+" ") {
			return true
		}
	}
	return false
}
