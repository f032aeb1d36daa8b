package seo

import (
	"context"
	"time"

	"linkatlas/internal/article"
	"linkatlas/internal/catalog"
)

// LinkUpdate describes one link-insertion event to fold into the cache
// incrementally, without waiting for the next full refresh.
type LinkUpdate struct {
	SourceID   int64
	TargetID   int64
	AnchorText string
	AnchorType article.AnchorType
	CreatedAt  time.Time
}

// TrackAnchorUsage folds one link-insertion event into the cache (anchor
// counters, link graph, first-link if target had none, reciprocal-pair
// recomputation for the affected pair) and optionally persists it to the
// source/target article metadata in the catalog.
func (c *Cache) TrackAnchorUsage(ctx context.Context, u LinkUpdate, persist bool) error {
	c.applyIncremental(u)

	if !persist {
		return nil
	}
	return c.persistLink(ctx, u)
}

// BatchIncrementalCacheUpdate applies every update's in-memory effects
// without persisting any of them to the catalog. The recommender's
// auto-insert path does not call it; it folds each link in through
// TrackAnchorUsage with persistence on.
func (c *Cache) BatchIncrementalCacheUpdate(updates []LinkUpdate) {
	for _, u := range updates {
		c.applyIncremental(u)
	}
}

func (c *Cache) applyIncremental(u LinkUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.anchorUsage == nil {
		c.anchorUsage = make(map[string]int)
	}
	if c.linkGraph == nil {
		c.linkGraph = NewLinkGraph()
	}
	if c.firstLink == nil {
		c.firstLink = make(map[int64]firstLinkEntry)
	}
	if c.reciprocalPairs == nil {
		c.reciprocalPairs = make(map[[2]int64]bool)
	}
	if c.orphans == nil {
		c.orphans = make(map[int64]bool)
	}
	if c.critical == nil {
		c.critical = make(map[int64]bool)
	}
	if c.inboundLinkCounts == nil {
		c.inboundLinkCounts = make(map[int64]int)
	}

	c.anchorUsage[lowerTrim(u.AnchorText)]++
	c.anchorTypeCounts[u.AnchorType]++
	c.totalInboundAnchors++
	c.linkGraph.AddEdge(u.SourceID, u.TargetID)

	c.inboundLinkCounts[u.TargetID]++
	count := c.inboundLinkCounts[u.TargetID]
	c.orphans[u.TargetID] = count <= 2
	c.critical[u.TargetID] = count == 0

	if existing, ok := c.firstLink[u.TargetID]; !ok || u.CreatedAt.Before(existing.createdAt) {
		c.firstLink[u.TargetID] = firstLinkEntry{
			sourceID:  u.SourceID,
			anchor:    u.AnchorText,
			createdAt: u.CreatedAt,
		}
	}

	a, b := u.SourceID, u.TargetID
	if a > b {
		a, b = b, a
	}
	if c.linkGraph[u.SourceID][u.TargetID] && c.linkGraph[u.TargetID][u.SourceID] {
		c.reciprocalPairs[[2]int64{a, b}] = true
	}
}

func (c *Cache) persistLink(ctx context.Context, u LinkUpdate) error {
	source, err := c.catalog.Get(ctx, u.SourceID)
	if err != nil {
		return err
	}
	source.OutboundLinks = append(source.OutboundLinks, article.OutboundLink{
		TargetID:  u.TargetID,
		Anchor:    u.AnchorText,
		CreatedAt: u.CreatedAt,
	})
	if err := c.catalog.Upsert(ctx, source); err != nil {
		return err
	}

	target, err := c.catalog.Get(ctx, u.TargetID)
	if err != nil {
		return err
	}
	target.InboundAnchors = append(target.InboundAnchors, article.InboundAnchor{
		Text:      u.AnchorText,
		SourceID:  u.SourceID,
		Type:      u.AnchorType,
		CreatedAt: u.CreatedAt,
	})
	if err := c.catalog.Upsert(ctx, target); err != nil {
		return err
	}
	return c.catalog.IncrementInboundLinks(ctx, u.TargetID)
}

// DismissAction is the dismiss-opportunity operation requested.
type DismissAction string

const (
	ActionDismiss      DismissAction = "dismiss"
	ActionRestore      DismissAction = "restore"
	ActionBulkDismiss  DismissAction = "bulk_dismiss"
	ActionClear        DismissAction = "clear"
)

// Dismiss applies a dismiss/restore/bulk_dismiss/clear mutation to the
// per-source dismissed-target set, persisted to the source article's
// dismissedLinks metadata when persist is true. The in-memory set is
// preserved across cache refreshes per spec §4.E step 2.
func (c *Cache) Dismiss(ctx context.Context, sourceID int64, targetIDs []int64, action DismissAction, reason string, persist bool) error {
	c.mu.Lock()
	if c.dismissed == nil {
		c.dismissed = make(map[int64]map[int64]bool)
	}
	switch action {
	case ActionDismiss, ActionBulkDismiss:
		if c.dismissed[sourceID] == nil {
			c.dismissed[sourceID] = make(map[int64]bool)
		}
		for _, t := range targetIDs {
			c.dismissed[sourceID][t] = true
		}
	case ActionRestore:
		for _, t := range targetIDs {
			delete(c.dismissed[sourceID], t)
		}
	case ActionClear:
		delete(c.dismissed, sourceID)
	}
	c.mu.Unlock()

	if !persist {
		return nil
	}
	return c.persistDismissed(ctx, sourceID)
}

func (c *Cache) persistDismissed(ctx context.Context, sourceID int64) error {
	source, err := c.catalog.Get(ctx, sourceID)
	if err != nil {
		return err
	}

	c.mu.RLock()
	targets := c.dismissed[sourceID]
	c.mu.RUnlock()

	dismissed := make([]article.DismissedLink, 0, len(targets))
	now := time.Now()
	for t := range targets {
		dismissed = append(dismissed, article.DismissedLink{TargetID: t, DismissedAt: now})
	}
	source.DismissedLinks = dismissed
	return c.catalog.Upsert(ctx, source)
}

// IsDismissed reports whether target is dismissed for source.
func (c *Cache) IsDismissed(sourceID, targetID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dismissed[sourceID][targetID]
}

// LoadDismissed seeds the in-memory dismissed set from the catalog, used on
// startup so previously-persisted dismissals survive a process restart.
func (c *Cache) LoadDismissed(ctx context.Context, cat catalog.Catalog) error {
	articles, err := cat.ListAll(ctx, 0)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dismissed == nil {
		c.dismissed = make(map[int64]map[int64]bool)
	}
	for _, a := range articles {
		for _, d := range a.DismissedLinks {
			if c.dismissed[a.PostID] == nil {
				c.dismissed[a.PostID] = make(map[int64]bool)
			}
			c.dismissed[a.PostID][d.TargetID] = true
		}
	}
	return nil
}
