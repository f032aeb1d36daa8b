package entitygraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"linkatlas/internal/article"
	"linkatlas/internal/catalog"
)

func TestFindCandidates_ScoresByOverlap(t *testing.T) {
	cat, err := catalog.NewBadgerCatalog(catalog.BadgerOptions{DataDir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	ctx := context.Background()
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 1, Entities: []string{"react", "hooks"}}))
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 2, Entities: []string{"react", "hooks", "redux"}}))
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 3, Entities: []string{"golang"}}))

	source, err := cat.Get(ctx, 1)
	require.NoError(t, err)

	retriever := New(cat)
	candidates, err := retriever.FindCandidates(ctx, source)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, int64(2), candidates[0].Article.PostID)
	require.Equal(t, 2, candidates[0].Overlap)
	require.InDelta(t, 0.7, candidates[0].Score, 1e-9)
}

func TestFindCandidates_NoEntitiesReturnsNil(t *testing.T) {
	cat, err := catalog.NewBadgerCatalog(catalog.BadgerOptions{DataDir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	retriever := New(cat)
	candidates, err := retriever.FindCandidates(context.Background(), article.Article{PostID: 1})
	require.NoError(t, err)
	require.Empty(t, candidates)
}
