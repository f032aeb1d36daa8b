package anchor

import (
	"strings"
	"unicode"
)

// tokenize lowercases text and splits on non-alphanumeric runes, the same
// shape as the teacher's fulltext tokenizer.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
}

// stopWords is a minimal list of truly generic words; domain-generic terms
// live in genericTerms/genericPhrases below so the two concerns (language
// stopwords vs. site-specific boilerplate anchors) stay separable.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "he": true, "in": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "to": true, "was": true, "were": true,
	"with": true, "this": true, "but": true, "they": true,
	"we": true, "you": true, "your": true, "my": true, "their": true,
	"been": true, "do": true, "does": true, "did": true,
}

func isStopWord(word string) bool {
	return stopWords[word]
}

// genericTerms are words too generic to count as "distinctive" even though
// they aren't language stopwords (e.g. "guide", "tips").
var genericTerms = map[string]bool{
	"guide": true, "tips": true, "best": true, "top": true, "how": true,
	"what": true, "why": true, "when": true, "ways": true, "tricks": true,
	"complete": true, "ultimate": true, "comprehensive": true, "article": true,
	"post": true, "blog": true,
}

// genericPhrases are boilerplate phrases that never make good anchors.
var genericPhrases = []string{
	"click here", "read more", "learn more", "find out more",
	"this article", "this post", "check it out", "see here",
}

func containsGenericPhrase(lower string) bool {
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// distinctiveWords tokenizes title, drops language stopwords and
// domain-generic terms, and returns what remains — the words a candidate
// anchor must reference to be considered relevant.
func distinctiveWords(title string) []string {
	var out []string
	for _, w := range tokenize(title) {
		if len(w) < 2 || isStopWord(w) || genericTerms[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// countMatches returns how many of words appear as a whole token in
// lowered text.
func countMatches(words []string, lowered string) int {
	tokens := make(map[string]bool)
	for _, t := range tokenize(lowered) {
		tokens[t] = true
	}
	count := 0
	for _, w := range words {
		if tokens[w] {
			count++
		}
	}
	return count
}
