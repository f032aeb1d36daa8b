package linkaudit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"linkatlas/internal/article"
	"linkatlas/internal/catalog"
	"linkatlas/internal/scoring"
)

// fakeEmbedder returns a fixed vector per input text so query results are
// deterministic; unknown text falls back to a zero vector.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) EmbedArticle(ctx context.Context, title, summary, body string) ([]float32, error) {
	return f.Embed(ctx, body)
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

func newTestCatalog(t *testing.T) catalog.Catalog {
	t.Helper()
	c, err := catalog.NewBadgerCatalog(catalog.BadgerOptions{DataDir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestAudit_FlagsBrokenLink(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	auditor := New(cat, embedder, scoring.New(scoring.DefaultWeights()))

	result, err := auditor.Audit(ctx, Request{
		PostID:        1,
		ExistingLinks: []ExistingLink{{TargetID: 999, AnchorText: "missing page"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Existing.Broken, 1)
	require.Equal(t, int64(999), result.Existing.Broken[0].TargetID)
	require.Equal(t, 1, result.Stats.BrokenCount)
}

func TestAudit_ValidLinkWhenNoBetterAlternative(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 2, Title: "Target", QualityScore: 80, Embedding: []float32{1, 0, 0}}))

	embedder := &fakeEmbedder{vectors: map[string][]float32{"anchor text": {1, 0, 0}}}
	auditor := New(cat, embedder, scoring.New(scoring.DefaultWeights()))

	result, err := auditor.Audit(ctx, Request{
		PostID:        1,
		ExistingLinks: []ExistingLink{{TargetID: 2, AnchorText: "anchor text"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Existing.Valid, 1)
	require.Empty(t, result.Existing.Suboptimal)
}

func TestAudit_SuboptimalLinkWhenBetterAlternativeExists(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 2, Title: "Weak target", QualityScore: 30, Embedding: []float32{1, 0, 0}}))
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 3, Title: "Strong target", QualityScore: 90, Embedding: []float32{0.99, 0.01, 0}}))

	embedder := &fakeEmbedder{vectors: map[string][]float32{"anchor text": {1, 0, 0}}}
	auditor := New(cat, embedder, scoring.New(scoring.DefaultWeights()))

	result, err := auditor.Audit(ctx, Request{
		PostID:        1,
		ExistingLinks: []ExistingLink{{TargetID: 2, AnchorText: "anchor text"}},
	})
	require.NoError(t, err)
	require.Empty(t, result.Existing.Valid)
	require.Len(t, result.Existing.Suboptimal, 1)
	require.Equal(t, int64(2), result.Existing.Suboptimal[0].TargetID)
	require.NotEmpty(t, result.Existing.Suboptimal[0].BetterOptions)
	require.Equal(t, int64(3), result.Existing.Suboptimal[0].BetterOptions[0].PostID)
}

func TestAudit_FindsMissingOpportunity(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 2, Title: "Great Guide To Widgets", QualityScore: 90, Embedding: []float32{1, 0, 0}}))

	content := "This article mentions the Great Guide To Widgets in passing."
	embedder := &fakeEmbedder{vectors: map[string][]float32{content: {1, 0, 0}}}
	auditor := New(cat, embedder, scoring.New(scoring.DefaultWeights()))

	result, err := auditor.Audit(ctx, Request{
		PostID:         1,
		Title:          "Source",
		Content:        content,
		MaxSuggestions: 5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Suggestions.Missing)
	require.Equal(t, int64(2), result.Suggestions.Missing[0].PostID)
}

func TestAudit_FlagsRedundantCluster(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 2, Title: "A", TopicCluster: "seo", QualityScore: 10, Embedding: []float32{1, 0, 0}}))
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 3, Title: "B", TopicCluster: "seo", QualityScore: 10, Embedding: []float32{1, 0, 0}}))
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 4, Title: "C", TopicCluster: "seo", QualityScore: 10, Embedding: []float32{1, 0, 0}}))

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0, 0}, "b": {1, 0, 0}, "c": {1, 0, 0},
	}}
	auditor := New(cat, embedder, scoring.New(scoring.DefaultWeights()))

	result, err := auditor.Audit(ctx, Request{
		PostID: 1,
		ExistingLinks: []ExistingLink{
			{TargetID: 2, AnchorText: "a"},
			{TargetID: 3, AnchorText: "b"},
			{TargetID: 4, AnchorText: "c"},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Suggestions.Redundant, 1)
	require.Equal(t, "seo", result.Suggestions.Redundant[0].Cluster)
	require.Equal(t, 3, result.Suggestions.Redundant[0].Count)
}

func TestRedundantClusters_NilLookupReturnsNil(t *testing.T) {
	out := redundantClusters(context.Background(), []ValidLink{{TargetID: 1}}, nil)
	require.Nil(t, out)
}
