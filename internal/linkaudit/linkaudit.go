// Package linkaudit implements the link auditor (spec component I):
// classifying an article's existing outbound links as valid, broken, or
// suboptimal, proposing missing-opportunity links the hybrid scorer would
// have surfaced, and flagging clusters over-served by the same few targets.
// It is grounded on the same overlap/topology reasoning as
// internal/entitygraph (in turn grounded on pkg/linkpredict/topology.go)
// plus the hybrid scorer and anchor finder it reuses directly.
package linkaudit

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"linkatlas/internal/anchor"
	"linkatlas/internal/article"
	"linkatlas/internal/catalog"
	"linkatlas/internal/embedding"
	"linkatlas/internal/scoring"
)

const (
	alternativesTopK    = 10
	suboptimalSimMin    = 0.7
	missingOppTopK      = 30
	missingOppMinScore  = 40.0
	redundantClusterMin = 2
)

// ExistingLink is one link already present in the source article's body.
type ExistingLink struct {
	TargetID   int64
	AnchorText string
}

// Request is the input to Audit.
type Request struct {
	PostID          int64
	Title           string
	TopicCluster    string
	Content         string
	ExistingLinks   []ExistingLink
	MaxSuggestions  int
}

// ValidLink reports an existing link judged fine as-is.
type ValidLink struct {
	TargetID   int64  `json:"targetId"`
	AnchorText string `json:"anchorText"`
}

// BrokenLink reports an existing link whose target no longer exists.
type BrokenLink struct {
	TargetID   int64  `json:"targetId"`
	AnchorText string `json:"anchorText"`
}

// BetterOption is one alternative target a suboptimal link could point to
// instead.
type BetterOption struct {
	PostID       int64   `json:"postId"`
	Title        string  `json:"title"`
	QualityScore int     `json:"qualityScore"`
	Similarity   float64 `json:"similarity"`
}

// SuboptimalLink reports an existing link that has higher-quality
// alternatives.
type SuboptimalLink struct {
	TargetID      int64          `json:"targetId"`
	AnchorText    string         `json:"anchorText"`
	BetterOptions []BetterOption `json:"betterOptions"`
}

// MissingSuggestion is a candidate link the source doesn't have yet.
type MissingSuggestion struct {
	PostID     int64   `json:"postId"`
	Title      string  `json:"title"`
	AnchorText string  `json:"anchorText"`
	Score      float64 `json:"score"`
}

// RedundantCluster flags a topic cluster already over-linked from this
// source.
type RedundantCluster struct {
	Cluster string `json:"cluster"`
	Count   int    `json:"count"`
}

// Existing summarizes the classification of the links the request listed.
type Existing struct {
	Total       int              `json:"total"`
	Valid       []ValidLink      `json:"valid"`
	Broken      []BrokenLink     `json:"broken"`
	Suboptimal  []SuboptimalLink `json:"suboptimal"`
}

// Suggestions summarizes the auditor's recommended changes.
type Suggestions struct {
	Upgrades  []SuboptimalLink    `json:"upgrades"`
	Missing   []MissingSuggestion `json:"missing"`
	Redundant []RedundantCluster  `json:"redundant"`
}

// Stats carries summary counts the API response surfaces alongside Audit.
type Stats struct {
	ValidCount      int `json:"validCount"`
	BrokenCount     int `json:"brokenCount"`
	SuboptimalCount int `json:"suboptimalCount"`
	MissingCount    int `json:"missingCount"`
}

// Result is the full /api/link-audit payload.
type Result struct {
	Existing    Existing    `json:"existing"`
	Suggestions Suggestions `json:"suggestions"`
	Stats       Stats       `json:"stats"`
}

// Auditor runs link audits against the catalog, embedder, and hybrid
// scorer shared with the recommender.
type Auditor struct {
	Catalog  catalog.Catalog
	Embedder embedding.Client
	Scorer   *scoring.Scorer
}

// New builds an Auditor from its dependencies.
func New(cat catalog.Catalog, embedder embedding.Client, scorer *scoring.Scorer) *Auditor {
	return &Auditor{Catalog: cat, Embedder: embedder, Scorer: scorer}
}

// Audit classifies req.ExistingLinks and proposes missing/redundant-cluster
// suggestions, per spec §4.I.
func (a *Auditor) Audit(ctx context.Context, req Request) (*Result, error) {
	if req.MaxSuggestions <= 0 {
		req.MaxSuggestions = 5
	}

	source := article.Article{PostID: req.PostID, Title: req.Title, TopicCluster: req.TopicCluster}

	existing, suboptimal, err := a.classifyExisting(ctx, source, req.ExistingLinks)
	if err != nil {
		return nil, err
	}

	currentTargets := make(map[int64]bool, len(req.ExistingLinks)+1)
	currentTargets[req.PostID] = true
	for _, l := range req.ExistingLinks {
		currentTargets[l.TargetID] = true
	}

	missing, err := a.findMissing(ctx, source, req.Content, currentTargets, req.MaxSuggestions)
	if err != nil {
		return nil, err
	}

	redundant := redundantClusters(ctx, existing.Valid, a.clusterLookup)

	result := &Result{
		Existing: existing,
		Suggestions: Suggestions{
			Upgrades:  suboptimal,
			Missing:   missing,
			Redundant: redundant,
		},
		Stats: Stats{
			ValidCount:      len(existing.Valid),
			BrokenCount:     len(existing.Broken),
			SuboptimalCount: len(suboptimal),
			MissingCount:    len(missing),
		},
	}
	return result, nil
}

// clusterLookup fetches postID's TopicCluster from the catalog for
// redundancy detection, with no caching between calls. It returns "" when
// the lookup fails.
func (a *Auditor) clusterLookup(ctx context.Context, postID int64) string {
	art, err := a.Catalog.Get(ctx, postID)
	if err != nil {
		return ""
	}
	return art.TopicCluster
}

func (a *Auditor) classifyExisting(ctx context.Context, source article.Article, links []ExistingLink) (Existing, []SuboptimalLink, error) {
	existing := Existing{Total: len(links)}
	var upgrades []SuboptimalLink

	for _, link := range links {
		target, err := a.Catalog.Get(ctx, link.TargetID)
		if err != nil {
			if err == catalog.ErrNotFound {
				existing.Broken = append(existing.Broken, BrokenLink{TargetID: link.TargetID, AnchorText: link.AnchorText})
				continue
			}
			return Existing{}, nil, fmt.Errorf("linkaudit: lookup target %d: %w", link.TargetID, err)
		}

		vector, err := a.Embedder.Embed(ctx, link.AnchorText)
		if err != nil {
			return Existing{}, nil, fmt.Errorf("linkaudit: embed anchor %q: %w", link.AnchorText, err)
		}

		exclude := map[int64]bool{source.PostID: true, link.TargetID: true}
		alternatives, err := a.Catalog.Query(ctx, vector, alternativesTopK, exclude)
		if err != nil {
			return Existing{}, nil, fmt.Errorf("linkaudit: query alternatives: %w", err)
		}

		var better []BetterOption
		for _, alt := range alternatives {
			if alt.Score > suboptimalSimMin && alt.Article.QualityScore > target.QualityScore {
				better = append(better, BetterOption{
					PostID:       alt.Article.PostID,
					Title:        alt.Article.Title,
					QualityScore: alt.Article.QualityScore,
					Similarity:   alt.Score,
				})
			}
		}

		if len(better) > 0 {
			sort.SliceStable(better, func(i, j int) bool { return better[i].QualityScore > better[j].QualityScore })
			if len(better) > 2 {
				better = better[:2]
			}
			sub := SuboptimalLink{TargetID: link.TargetID, AnchorText: link.AnchorText, BetterOptions: better}
			existing.Suboptimal = append(existing.Suboptimal, sub)
			upgrades = append(upgrades, sub)
			continue
		}

		existing.Valid = append(existing.Valid, ValidLink{TargetID: link.TargetID, AnchorText: link.AnchorText})
	}

	return existing, upgrades, nil
}

func (a *Auditor) findMissing(ctx context.Context, source article.Article, content string, exclude map[int64]bool, maxSuggestions int) ([]MissingSuggestion, error) {
	vector, err := a.Embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("linkaudit: embed body: %w", err)
	}

	candidates, err := a.Catalog.Query(ctx, vector, missingOppTopK, exclude)
	if err != nil {
		return nil, fmt.Errorf("linkaudit: query candidates: %w", err)
	}

	type scored struct {
		article.Article
		score float64
	}
	var pool []scored
	for _, c := range candidates {
		breakdown := a.Scorer.Score(source, c.Article, c.Score)
		if breakdown.Total < missingOppMinScore {
			continue
		}
		pool = append(pool, scored{Article: c.Article, score: breakdown.Total})
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].score > pool[j].score })

	usedAnchors := make(map[string]bool)
	var suggestions []MissingSuggestion
	for _, c := range pool {
		if len(suggestions) >= maxSuggestions {
			break
		}
		cand, ok := anchor.Find(content, c.Title, usedAnchors)
		if !ok {
			continue
		}
		usedAnchors[strings.ToLower(cand.Text)] = true
		suggestions = append(suggestions, MissingSuggestion{
			PostID:     c.PostID,
			Title:      c.Title,
			AnchorText: cand.Text,
			Score:      c.score,
		})
	}
	return suggestions, nil
}

func redundantClusters(ctx context.Context, valid []ValidLink, lookup func(context.Context, int64) string) []RedundantCluster {
	if lookup == nil {
		return nil
	}
	counts := make(map[string]int)
	for _, v := range valid {
		cluster := lookup(ctx, v.TargetID)
		if cluster == "" {
			continue
		}
		counts[cluster]++
	}
	var out []RedundantCluster
	for cluster, count := range counts {
		if count > redundantClusterMin {
			out = append(out, RedundantCluster{Cluster: cluster, Count: count})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Cluster < out[j].Cluster })
	return out
}
