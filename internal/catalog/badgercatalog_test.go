package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"linkatlas/internal/article"
)

func newTestCatalog(t *testing.T) *BadgerCatalog {
	t.Helper()
	c, err := NewBadgerCatalog(BadgerOptions{DataDir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBadgerCatalog_UpsertGet(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	a := article.Article{PostID: 1, Title: "Hello", Content: article.ContentPost, Embedding: []float32{1, 0, 0}}
	require.NoError(t, c.Upsert(ctx, a))

	got, err := c.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Hello", got.Title)
	require.Equal(t, article.ContentPost, got.Content)
}

func TestBadgerCatalog_GetNotFound(t *testing.T) {
	c := newTestCatalog(t)
	_, err := c.Get(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerCatalog_PillarRequiresPage(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	a := article.Article{PostID: 2, Content: article.ContentPost, IsPillar: true}
	require.NoError(t, c.Upsert(ctx, a))

	got, err := c.Get(ctx, 2)
	require.NoError(t, err)
	require.False(t, got.IsPillar, "isPillar must be cleared for non-page content")
}

func TestBadgerCatalog_Query(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, article.Article{PostID: 1, Embedding: []float32{1, 0, 0}}))
	require.NoError(t, c.Upsert(ctx, article.Article{PostID: 2, Embedding: []float32{0, 1, 0}}))
	require.NoError(t, c.Upsert(ctx, article.Article{PostID: 3, Embedding: []float32{0.9, 0.1, 0}}))

	results, err := c.Query(ctx, []float32{1, 0, 0}, 2, map[int64]bool{1: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, int64(3), results[0].Article.PostID, "closest remaining vector should rank first")
}

func TestBadgerCatalog_ListPillars(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, article.Article{PostID: 1, Content: article.ContentPage, IsPillar: true}))
	require.NoError(t, c.Upsert(ctx, article.Article{PostID: 2, Content: article.ContentPost}))

	pillars, err := c.ListPillars(ctx)
	require.NoError(t, err)
	require.Len(t, pillars, 1)
	require.Equal(t, int64(1), pillars[0].PostID)
}

func TestBadgerCatalog_IncrementInboundLinks(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, article.Article{PostID: 1}))
	require.NoError(t, c.IncrementInboundLinks(ctx, 1))
	require.NoError(t, c.IncrementInboundLinks(ctx, 1))

	got, err := c.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, got.InboundLinkCount)
}

func TestBadgerCatalog_IncrementInboundLinksNotFound(t *testing.T) {
	c := newTestCatalog(t)
	err := c.IncrementInboundLinks(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}
