package anchor

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the domain stem table and synonym table the SEO scorer's
// keyword-alignment step (spec §4.E step 4) uses to fold plurals/suffixes
// and expand synonyms before comparing anchor tokens against a target's
// title/topics/keywords/cluster.
type Lexicon struct {
	// Stems maps a surface form to its canonical stem, e.g. "running" -> "run".
	Stems map[string]string `yaml:"stems"`
	// Synonyms maps a term to a list of interchangeable terms.
	Synonyms map[string][]string `yaml:"synonyms"`
}

// DefaultLexicon returns a small built-in lexicon covering common content-
// marketing vocabulary, used when no YAML file is configured.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Stems: map[string]string{
			"running":  "run",
			"runs":     "run",
			"linking":  "link",
			"links":    "link",
			"linked":   "link",
			"ranking":  "rank",
			"ranks":    "rank",
			"ranked":   "rank",
			"writing":  "write",
			"writes":   "write",
			"written":  "write",
			"guides":   "guide",
			"articles": "article",
			"keywords": "keyword",
			"scoring":  "score",
			"scores":   "score",
		},
		Synonyms: map[string][]string{
			"seo":       {"search engine optimization", "search-engine-optimization"},
			"link":      {"hyperlink", "backlink"},
			"content":   {"article", "post"},
			"keyword":   {"search term", "query"},
			"guide":     {"tutorial", "walkthrough", "how-to"},
			"beginner":  {"novice", "newbie"},
			"advanced":  {"expert", "pro"},
		},
	}
}

// LoadLexicon reads stem/synonym tables from a YAML file at path. A missing
// path is not an error — DefaultLexicon covers it.
func LoadLexicon(path string) (Lexicon, error) {
	if path == "" {
		return DefaultLexicon(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, err
	}
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, err
	}
	if lex.Stems == nil {
		lex.Stems = map[string]string{}
	}
	if lex.Synonyms == nil {
		lex.Synonyms = map[string][]string{}
	}
	return lex, nil
}

// Stem returns word's canonical stem, or word unchanged if it has none.
func (l Lexicon) Stem(word string) string {
	if stem, ok := l.Stems[word]; ok {
		return stem
	}
	return word
}

// Expand returns word plus every registered synonym of word.
func (l Lexicon) Expand(word string) []string {
	out := []string{word}
	out = append(out, l.Synonyms[word]...)
	return out
}
