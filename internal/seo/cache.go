// Package seo implements the site-wide SEO cache & scorer (spec component
// E): an in-memory projection of the catalog maintaining anchor-usage
// counts, the directed link graph, reciprocal pairs, PageRank (global and
// topic), the orphan list, and first-link-per-target, refreshed on a TTL.
// The PageRank recurrence is grounded on apoc/algo.PageRank; the
// refresh/TTL/background-recompute shape follows the teacher's tiered
// decay Manager (pkg/decay/decay.go).
package seo

import (
	"context"
	"sync"
	"time"

	"linkatlas/internal/article"
	"linkatlas/internal/catalog"
)

// DefaultTTL is the SEO cache refresh interval spec §5 specifies (15 min).
const DefaultTTL = 15 * time.Minute

// ArticleMeta is the subset of an article the cache keeps hot for scoring,
// avoiding repeated full catalog fetches on the scoring hot path.
type ArticleMeta struct {
	PostID           int64
	Title            string
	Content          article.ContentType
	TopicCluster     string
	RelatedClusters  []string
	MainTopics       []string
	SemanticKeywords []string
	IsPillar         bool
	QualityScore     int
	UpdatedAt        time.Time
}

// Cache is the process-wide SEO projection. It is safe for concurrent use:
// Refresh builds every derived structure off-lock and installs them together
// under the write lock of one RWMutex, which also guards readers and
// incremental mutations.
type Cache struct {
	catalog catalog.Catalog
	ttl     time.Duration

	mu                sync.RWMutex
	lastRefresh        time.Time
	articleMetadata    map[int64]ArticleMeta
	inboundLinkCounts  map[int64]int // postId -> persisted inboundLinkCount, tracked live across incremental updates
	orphans            map[int64]bool
	critical           map[int64]bool // subset of orphans with inboundLinkCount == 0
	anchorUsage        map[string]int // lowercased anchor text -> inbound use count, site-wide
	anchorTypeCounts   map[article.AnchorType]int
	totalInboundAnchors int
	firstLink          map[int64]firstLinkEntry // targetId -> earliest inbound anchor
	linkGraph          LinkGraph
	reciprocalPairs    map[[2]int64]bool
	globalPageRank     map[int64]float64
	topicPageRank      map[string]map[int64]float64
	dismissed          map[int64]map[int64]bool // sourceId -> set of dismissed targetIds
}

type firstLinkEntry struct {
	sourceID  int64
	anchor    string
	createdAt time.Time
}

// New builds an empty Cache over cat with the default TTL.
func New(cat catalog.Catalog) *Cache {
	return &Cache{
		catalog: cat,
		ttl:     DefaultTTL,
		dismissed: make(map[int64]map[int64]bool),
	}
}

// Refresh rebuilds every derived structure from the catalog if the TTL has
// elapsed or force is true. dismissedOpportunities is preserved across
// refreshes per spec §4.E step 2.
func (c *Cache) Refresh(ctx context.Context, force bool) error {
	c.mu.RLock()
	stale := force || time.Since(c.lastRefresh) >= c.ttl
	c.mu.RUnlock()
	if !stale {
		return nil
	}

	articles, err := c.catalog.ListAll(ctx, 0)
	if err != nil {
		return err
	}

	articleMetadata := make(map[int64]ArticleMeta, len(articles))
	inboundLinkCounts := make(map[int64]int, len(articles))
	orphans := make(map[int64]bool, len(articles))
	critical := make(map[int64]bool, len(articles))
	anchorUsage := make(map[string]int)
	anchorTypeCounts := make(map[article.AnchorType]int)
	firstLink := make(map[int64]firstLinkEntry)
	linkGraph := NewLinkGraph()
	isPillar := make(map[int64]bool, len(articles))
	allNodes := make(map[int64]bool, len(articles))
	clusterNodes := make(map[string]map[int64]bool)
	totalInboundAnchors := 0

	for _, a := range articles {
		articleMetadata[a.PostID] = ArticleMeta{
			PostID:           a.PostID,
			Title:            a.Title,
			Content:          a.Content,
			TopicCluster:     a.TopicCluster,
			RelatedClusters:  a.RelatedClusters,
			MainTopics:       a.MainTopics,
			SemanticKeywords: a.SemanticKeywords,
			IsPillar:         a.IsPillar,
			QualityScore:     a.QualityScore,
			UpdatedAt:        a.UpdatedAt,
		}
		allNodes[a.PostID] = true
		isPillar[a.PostID] = a.IsPillar
		if a.TopicCluster != "" {
			if clusterNodes[a.TopicCluster] == nil {
				clusterNodes[a.TopicCluster] = make(map[int64]bool)
			}
			clusterNodes[a.TopicCluster][a.PostID] = true
		}

		// An article is an orphan at inboundLinkCount <= 2, and "critical"
		// at exactly 0 (spec §3).
		inboundLinkCounts[a.PostID] = a.InboundLinkCount
		orphans[a.PostID] = a.InboundLinkCount <= 2
		critical[a.PostID] = a.InboundLinkCount == 0

		for _, in := range a.InboundAnchors {
			totalInboundAnchors++
			anchorUsage[lowerTrim(in.Text)]++
			anchorTypeCounts[in.Type]++
			linkGraph.AddEdge(in.SourceID, a.PostID)

			existing, ok := firstLink[a.PostID]
			if !ok || in.CreatedAt.Before(existing.createdAt) {
				firstLink[a.PostID] = firstLinkEntry{
					sourceID:  in.SourceID,
					anchor:    in.Text,
					createdAt: in.CreatedAt,
				}
			}
		}
		for _, out := range a.OutboundLinks {
			linkGraph.AddEdge(a.PostID, out.TargetID)
		}
	}

	reciprocalPairs := linkGraph.ReciprocalPairs()
	globalPageRank := PageRank(allNodes, linkGraph, isPillar)

	topicPageRank := make(map[string]map[int64]float64, len(clusterNodes))
	for cluster, nodes := range clusterNodes {
		if len(nodes) < 2 {
			continue
		}
		topicPageRank[cluster] = TopicPageRank(nodes, linkGraph, isPillar)
	}

	c.mu.Lock()
	c.articleMetadata = articleMetadata
	c.inboundLinkCounts = inboundLinkCounts
	c.orphans = orphans
	c.critical = critical
	c.anchorUsage = anchorUsage
	c.anchorTypeCounts = anchorTypeCounts
	c.totalInboundAnchors = totalInboundAnchors
	c.firstLink = firstLink
	c.linkGraph = linkGraph
	c.reciprocalPairs = reciprocalPairs
	c.globalPageRank = globalPageRank
	c.topicPageRank = topicPageRank
	c.lastRefresh = time.Now()
	c.mu.Unlock()

	return nil
}

func lowerTrim(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		b = append(b, ch)
	}
	return string(b)
}

// Meta returns the cached metadata for postID.
func (c *Cache) Meta(postID int64) (ArticleMeta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.articleMetadata[postID]
	return m, ok
}

// IsOrphan reports whether postID has inboundLinkCount <= 2 as of the last
// refresh or incremental update (spec §3).
func (c *Cache) IsOrphan(postID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orphans[postID]
}

// Orphans returns every postId with inboundLinkCount <= 2.
func (c *Cache) Orphans() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]int64, 0, len(c.orphans))
	for id, orphan := range c.orphans {
		if orphan {
			out = append(out, id)
		}
	}
	return out
}

// IsCriticalOrphan reports whether postID has zero inbound links — the
// "critical" subset of orphans spec §3 calls out.
func (c *Cache) IsCriticalOrphan(postID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.critical[postID]
}

// CriticalOrphans returns every postId with zero inbound links.
func (c *Cache) CriticalOrphans() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]int64, 0, len(c.critical))
	for id, crit := range c.critical {
		if crit {
			out = append(out, id)
		}
	}
	return out
}

// InboundLinkCount returns postID's cached inbound link count as of the last
// refresh or incremental update.
func (c *Cache) InboundLinkCount(postID int64) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inboundLinkCounts[postID]
}

// AnchorUseCount returns how many inbound links site-wide use anchor text
// (case-insensitive).
func (c *Cache) AnchorUseCount(anchorText string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.anchorUsage[lowerTrim(anchorText)]
}

// AnchorTypeRatio returns the fraction of all inbound anchors classified as
// t, per spec §4.E step 5.
func (c *Cache) AnchorTypeRatio(t article.AnchorType) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.totalInboundAnchors == 0 {
		return 0
	}
	return float64(c.anchorTypeCounts[t]) / float64(c.totalInboundAnchors)
}

// FirstLink reports whether target already has a recorded first inbound
// link, and returns its source and anchor text.
func (c *Cache) FirstLink(target int64) (sourceID int64, anchorText string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, found := c.firstLink[target]
	if !found {
		return 0, "", false
	}
	return entry.sourceID, entry.anchor, true
}

// LinksTo reports whether source already links to target in the cached
// graph.
func (c *Cache) LinksTo(source, target int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.linkGraph[source][target]
}

// IsReciprocal reports whether (a, b) is in the reciprocal-pair set.
func (c *Cache) IsReciprocal(a, b int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if a > b {
		a, b = b, a
	}
	return c.reciprocalPairs[[2]int64{a, b}]
}

// GlobalRank returns postID's global PageRank (0-100).
func (c *Cache) GlobalRank(postID int64) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.globalPageRank[postID]
}

// TopicRank returns postID's PageRank within cluster (0-100), or 0 if the
// cluster has fewer than two articles.
func (c *Cache) TopicRank(cluster string, postID int64) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ranks, ok := c.topicPageRank[cluster]
	if !ok {
		return 0
	}
	return ranks[postID]
}

// PageRankDistribution returns every cached global PageRank, for the
// seo-metrics endpoint.
func (c *Cache) PageRankDistribution() map[int64]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int64]float64, len(c.globalPageRank))
	for k, v := range c.globalPageRank {
		out[k] = v
	}
	return out
}
