package seo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"linkatlas/internal/article"
	"linkatlas/internal/catalog"
)

func newTestCatalog(t *testing.T) catalog.Catalog {
	t.Helper()
	c, err := catalog.NewBadgerCatalog(catalog.BadgerOptions{DataDir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRefresh_BuildsOrphansAndAnchorUsage(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)

	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 1, Title: "Source"}))
	require.NoError(t, cat.Upsert(ctx, article.Article{
		PostID: 2, Title: "Target", InboundLinkCount: 3,
		InboundAnchors: []article.InboundAnchor{{Text: "Great Guide", SourceID: 1, Type: article.AnchorExactMatch, CreatedAt: time.Now()}},
	}))
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 3, Title: "Orphan"}))

	c := New(cat)
	require.NoError(t, c.Refresh(ctx, true))

	require.True(t, c.IsOrphan(1))
	require.True(t, c.IsCriticalOrphan(1), "zero inbound links is the critical orphan subset")
	require.False(t, c.IsOrphan(2))
	require.True(t, c.IsOrphan(3))
	require.True(t, c.IsCriticalOrphan(3))
	require.Equal(t, 1, c.AnchorUseCount("great guide"))
	require.Equal(t, 1.0, c.AnchorTypeRatio(article.AnchorExactMatch))
}

func TestRefresh_OrphanThresholdIncludesLightlyLinkedArticles(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)

	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 1, InboundLinkCount: 2}))
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 2, InboundLinkCount: 3}))

	c := New(cat)
	require.NoError(t, c.Refresh(ctx, true))

	require.True(t, c.IsOrphan(1), "inboundLinkCount == 2 is still an orphan per spec §3")
	require.False(t, c.IsCriticalOrphan(1), "but not critical, since it has at least one inbound link")
	require.False(t, c.IsOrphan(2))
}

func TestRefresh_SkipsWhenNotStale(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 1}))

	c := New(cat)
	require.NoError(t, c.Refresh(ctx, true))

	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 2}))
	require.NoError(t, c.Refresh(ctx, false))

	_, ok := c.Meta(2)
	require.False(t, ok, "second article should not appear until the TTL elapses or force=true")
}

func TestFirstLink_KeepsEarliestAnchor(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	early := time.Now().Add(-time.Hour)
	late := time.Now()

	require.NoError(t, cat.Upsert(ctx, article.Article{
		PostID: 1,
		InboundAnchors: []article.InboundAnchor{
			{Text: "second", SourceID: 10, CreatedAt: late},
			{Text: "first", SourceID: 20, CreatedAt: early},
		},
	}))

	c := New(cat)
	require.NoError(t, c.Refresh(context.Background(), true))

	source, anchorText, ok := c.FirstLink(1)
	require.True(t, ok)
	require.Equal(t, int64(20), source)
	require.Equal(t, "first", anchorText)
}

func TestGlobalRank_PillarOutranksNonPillar(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 1, Content: article.ContentPage, IsPillar: true}))
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 2}))
	require.NoError(t, cat.Upsert(ctx, article.Article{
		PostID: 3,
		InboundAnchors: []article.InboundAnchor{
			{Text: "a", SourceID: 1, CreatedAt: time.Now()},
			{Text: "b", SourceID: 2, CreatedAt: time.Now()},
		},
	}))

	c := New(cat)
	require.NoError(t, c.Refresh(ctx, true))

	require.Greater(t, c.GlobalRank(1), c.GlobalRank(2))
}

func TestTrackAnchorUsage_UpdatesOrphanAndFirstLinkIncrementally(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 1}))
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 2}))

	c := New(cat)
	require.NoError(t, c.Refresh(ctx, true))
	require.True(t, c.IsOrphan(2))
	require.True(t, c.IsCriticalOrphan(2))

	err := c.TrackAnchorUsage(ctx, LinkUpdate{SourceID: 1, TargetID: 2, AnchorText: "new link", AnchorType: article.AnchorNatural, CreatedAt: time.Now()}, true)
	require.NoError(t, err)

	require.True(t, c.IsOrphan(2), "a single inbound link only brings the count to 1, still <= 2")
	require.False(t, c.IsCriticalOrphan(2), "no longer critical once it has any inbound link")
	require.True(t, c.LinksTo(1, 2))
	src, anchorText, ok := c.FirstLink(2)
	require.True(t, ok)
	require.Equal(t, int64(1), src)
	require.Equal(t, "new link", anchorText)

	target, err := cat.Get(ctx, 2)
	require.NoError(t, err)
	require.Len(t, target.InboundAnchors, 1)
	require.Equal(t, 1, target.InboundLinkCount)
}

func TestDismiss_DismissThenRestore(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	require.NoError(t, cat.Upsert(ctx, article.Article{PostID: 1}))

	c := New(cat)
	require.NoError(t, c.Dismiss(ctx, 1, []int64{2}, ActionDismiss, "low quality", true))
	require.True(t, c.IsDismissed(1, 2))

	require.NoError(t, c.Dismiss(ctx, 1, []int64{2}, ActionRestore, "", true))
	require.False(t, c.IsDismissed(1, 2))
}

func TestLoadDismissed_SeedsFromCatalog(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	require.NoError(t, cat.Upsert(ctx, article.Article{
		PostID:         1,
		DismissedLinks: []article.DismissedLink{{TargetID: 5}},
	}))

	c := New(cat)
	require.NoError(t, c.LoadDismissed(ctx, cat))
	require.True(t, c.IsDismissed(1, 5))
}
