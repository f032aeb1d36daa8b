package anchor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFind_GenericTitleReturnsNoCandidate(t *testing.T) {
	_, ok := Find("<p>Some body text about things.</p>", "Guide", map[string]bool{})
	require.False(t, ok, "a title with only generic words should yield no distinctive words")
}

func TestFind_FindsSentenceCandidate(t *testing.T) {
	body := "<p>Intro paragraph here. Kubernetes autoscaling strategies reduce cloud costs significantly for most teams. A closing thought.</p>"
	c, ok := Find(body, "Kubernetes Autoscaling Strategies", map[string]bool{})
	require.True(t, ok)
	require.Contains(t, strings.ToLower(c.Text), "kubernetes")
}

func TestFind_RespectsUsedAnchors(t *testing.T) {
	body := "<p>Kubernetes autoscaling strategies reduce cloud costs for most teams running production workloads at scale today.</p>"
	first, ok := Find(body, "Kubernetes Autoscaling Strategies", map[string]bool{})
	require.True(t, ok)

	used := map[string]bool{strings.ToLower(first.Text): true}
	second, ok := Find(body, "Kubernetes Autoscaling Strategies", used)
	if ok {
		require.NotEqual(t, strings.ToLower(first.Text), strings.ToLower(second.Text))
	}
}

func TestFind_NoPlaintextReturnsNoCandidate(t *testing.T) {
	_, ok := Find("", "Kubernetes Autoscaling", map[string]bool{})
	require.False(t, ok)
}

func TestPlainText_StripsExistingLinksAndTags(t *testing.T) {
	html := `<p>See <a href="/other">this other article</a> for more on <strong>autoscaling</strong>.</p>`
	text, err := PlainText(html)
	require.NoError(t, err)
	require.NotContains(t, text, "this other article")
	require.Contains(t, text, "autoscaling")
}

func TestDistinctiveWords_FiltersStopwordsAndGenericTerms(t *testing.T) {
	words := distinctiveWords("The Ultimate Guide to Kubernetes Autoscaling")
	require.NotContains(t, words, "the")
	require.NotContains(t, words, "ultimate")
	require.NotContains(t, words, "guide")
	require.Contains(t, words, "kubernetes")
	require.Contains(t, words, "autoscaling")
}

func TestLexicon_StemAndExpand(t *testing.T) {
	lex := DefaultLexicon()
	require.Equal(t, "link", lex.Stem("linking"))
	require.Equal(t, "word", lex.Stem("word"))
	require.Contains(t, lex.Expand("seo"), "search engine optimization")
}
