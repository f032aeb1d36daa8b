// Package anchor implements the anchor finder (spec component G): given a
// source article's body and a target article, it proposes the single
// highest-scoring verbatim anchor phrase a link to the target could use.
// Tokenization and position-scoring are grounded on the teacher's
// fulltext-index tokenizer and phrase-search position scoring
// (pkg/search/fulltext_index.go).
package anchor

import (
	"sort"
	"strings"
)

// Position classifies where in the source body a candidate anchor sits.
type Position string

const (
	PositionIntro      Position = "intro"
	PositionBody       Position = "body"
	PositionConclusion Position = "conclusion"
)

// CandidateType distinguishes how an anchor candidate was generated.
type CandidateType string

const (
	TypeSentence   CandidateType = "sentence"
	TypePhrase     CandidateType = "phrase"
	TypeContextual CandidateType = "contextual"
)

// Candidate is a proposed anchor with its score breakdown.
type Candidate struct {
	Text          string        `json:"text"`
	Context       string        `json:"context"`
	Position      Position      `json:"position"`
	Score         float64       `json:"score"`
	Type          CandidateType `json:"type"`
	MatchingWords int           `json:"matchingWords"`

	// offset is the candidate's character index in the source plaintext,
	// used only to break ties when two candidates score equally.
	offset int
}

const (
	introMultiplier      = 1.5
	conclusionMultiplier = 1.3
	bodyMultiplier       = 1.0
)

// Find returns the best anchor for target (identified by targetTitle) in
// sourceBodyHTML, or (Candidate{}, false) when no candidate qualifies —
// either the title is too generic (no distinctive words) or nothing
// survives the used-anchor exclusion.
func Find(sourceBodyHTML, targetTitle string, usedAnchors map[string]bool) (Candidate, bool) {
	distinctive := distinctiveWords(targetTitle)
	if len(distinctive) == 0 {
		return Candidate{}, false
	}

	plain, err := PlainText(sourceBodyHTML)
	if err != nil || plain == "" {
		return Candidate{}, false
	}

	introBoundary := float64(len(plain)) * 0.2
	if introBoundary > 500 {
		introBoundary = 500
	}
	conclusionBoundary := float64(len(plain)) * 0.8

	positionAt := func(idx int) (Position, float64) {
		f := float64(idx)
		switch {
		case f <= introBoundary:
			return PositionIntro, introMultiplier
		case f >= conclusionBoundary:
			return PositionConclusion, conclusionMultiplier
		default:
			return PositionBody, bodyMultiplier
		}
	}

	var candidates []Candidate
	candidates = append(candidates, sentenceCandidates(plain, distinctive, positionAt)...)
	candidates = append(candidates, phraseCandidates(plain, targetTitle, distinctive, positionAt)...)
	candidates = append(candidates, contextualCandidates(plain, distinctive, positionAt)...)

	eligible := candidates[:0:0]
	for _, c := range candidates {
		if usedAnchors[strings.ToLower(c.Text)] {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return Candidate{}, false
	}

	sortCandidatesDesc(eligible)
	return eligible[0], true
}

// sentenceCandidates splits plain into sentences on '.', '!', '?' and keeps
// those of length 20-150 chars containing >=2 distinctive words.
func sentenceCandidates(plain string, distinctive []string, positionAt func(int) (Position, float64)) []Candidate {
	var out []Candidate
	start := 0
	for i := 0; i < len(plain); i++ {
		c := plain[i]
		if c != '.' && c != '!' && c != '?' && i != len(plain)-1 {
			continue
		}
		end := i + 1
		if i == len(plain)-1 && c != '.' && c != '!' && c != '?' {
			end = len(plain)
		}
		raw := plain[start:end]
		trimmed := strings.TrimSpace(raw)
		leading := strings.Index(raw, trimmed)
		sentenceStart := start
		if leading > 0 {
			sentenceStart = start + leading
		}
		start = end

		if len(trimmed) < 20 || len(trimmed) > 150 {
			continue
		}
		matched := countMatches(distinctive, trimmed)
		if matched < 2 {
			continue
		}
		pos, mult := positionAt(sentenceStart)
		score := (float64(matched) / float64(len(distinctive))) * mult * 100
		out = append(out, Candidate{
			Text:          trimmed,
			Context:       trimmed,
			Position:      pos,
			Score:         score,
			Type:          TypeSentence,
			MatchingWords: matched,
			offset:        sentenceStart,
		})
	}
	return out
}

// phraseCandidates generates contiguous 3-6-word n-grams from the target's
// title and keeps those that occur verbatim (case-insensitively) somewhere
// in plain — an n-gram that never appears in the source text cannot be a
// verbatim anchor, so it is not a usable candidate regardless of score.
func phraseCandidates(plain, title string, distinctive []string, positionAt func(int) (Position, float64)) []Candidate {
	words := strings.Fields(title)
	lowerPlain := strings.ToLower(plain)

	var out []Candidate
	for n := 3; n <= 6; n++ {
		for i := 0; i+n <= len(words); i++ {
			gram := words[i : i+n]
			phrase := strings.Join(gram, " ")
			if len(phrase) < 12 {
				continue
			}
			lowerPhrase := strings.ToLower(phrase)
			if containsGenericPhrase(lowerPhrase) {
				continue
			}
			if countMatches(distinctive, lowerPhrase) < 1 {
				continue
			}
			idx := strings.Index(lowerPlain, lowerPhrase)
			if idx < 0 {
				continue
			}
			anchorText := plain[idx : idx+len(lowerPhrase)]
			pos, mult := positionAt(idx)
			score := 80 * mult * (float64(n) / 3.0)
			out = append(out, Candidate{
				Text:          anchorText,
				Context:       surroundingContext(plain, idx, len(anchorText)),
				Position:      pos,
				Score:         score,
				Type:          TypePhrase,
				MatchingWords: countMatches(distinctive, lowerPhrase),
				offset:        idx,
			})
		}
	}
	return out
}

// contextualCandidates builds a window of 0-30 chars either side of each
// occurrence of a distinctive word in plain, keeping windows of length
// 15-80 that don't contain a generic phrase.
func contextualCandidates(plain string, distinctive []string, positionAt func(int) (Position, float64)) []Candidate {
	lowerPlain := strings.ToLower(plain)
	var out []Candidate

	for _, word := range distinctive {
		searchFrom := 0
		for {
			idx := strings.Index(lowerPlain[searchFrom:], word)
			if idx < 0 {
				break
			}
			idx += searchFrom
			searchFrom = idx + len(word)

			windowStart := idx - 30
			if windowStart < 0 {
				windowStart = 0
			}
			windowEnd := idx + len(word) + 30
			if windowEnd > len(plain) {
				windowEnd = len(plain)
			}
			window := strings.TrimSpace(plain[windowStart:windowEnd])
			if len(window) < 15 || len(window) > 80 {
				continue
			}
			lowerWindow := strings.ToLower(window)
			if containsGenericPhrase(lowerWindow) {
				continue
			}
			matched := countMatches(distinctive, lowerWindow)
			pos, mult := positionAt(windowStart)
			score := 60 * mult * float64(matched)
			out = append(out, Candidate{
				Text:          window,
				Context:       window,
				Position:      pos,
				Score:         score,
				Type:          TypeContextual,
				MatchingWords: matched,
				offset:        windowStart,
			})
		}
	}
	return out
}

func surroundingContext(plain string, idx, length int) string {
	start := idx - 50
	if start < 0 {
		start = 0
	}
	end := idx + length + 50
	if end > len(plain) {
		end = len(plain)
	}
	return strings.TrimSpace(plain[start:end])
}

// sortCandidatesDesc orders candidates by descending score, breaking ties
// per spec §9: longer phrase first, then earlier position in the source,
// then lexicographically — so Find's choice among equal-scoring candidates
// is deterministic rather than an artifact of generation order.
func sortCandidatesDesc(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.Text) != len(b.Text) {
			return len(a.Text) > len(b.Text)
		}
		if a.offset != b.offset {
			return a.offset < b.offset
		}
		return a.Text < b.Text
	})
}
