package exam

import (
	"strings"
	"unicode"
)

// stopWords are excluded from similarity and topic extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "of": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
	"with": true, "and": true, "or": true, "but": true, "which": true,
	"what": true, "who": true, "this": true, "that": true, "these": true,
	"those": true, "from": true, "by": true, "as": true, "it": true,
	"its": true, "has": true, "have": true, "had": true, "not": true,
	"does": true, "did": true, "do": true, "following": true,
}

// contentWords lowercases, strips punctuation and returns the set of
// significant words (longer than 2 chars, not a stop word).
func contentWords(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(normalizeText(s)) {
		if len(w) > 2 && !stopWords[w] {
			out[w] = struct{}{}
		}
	}
	return out
}

// jaccard is |A∩B| / |A∪B|, used for duplicate detection between prompts.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// jaccardContainment is |A∩B| / |A|: the share of the question's words found
// in the (much larger) source document.
func jaccardContainment(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a))
}

// normalizeText lowercases, replaces punctuation with spaces and collapses
// whitespace.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

// fingerprint reduces a question to a normalized dedup key: the type plus the
// first eight significant-cased words of the prompt. The type prefix keeps
// differently-typed questions with shared wording from being merged.
func fingerprint(q Question) string {
	words := strings.Fields(normalizeText(q.Prompt))
	if len(words) > 8 {
		words = words[:8]
	}
	return string(q.Type) + "|" + strings.Join(words, " ")
}
