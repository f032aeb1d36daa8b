package recommender

import (
	"context"
	"sync"

	"linkatlas/internal/seo"
)

// scoreSEO computes the per-link composite SEO score for every proposal in
// place (spec §4.H step 11), fanning the independent scoring calls out
// across goroutines since each reads only cache state, never mutates it.
func (r *Recommender) scoreSEO(ctx context.Context, req Request, proposals []LinkProposal) {
	_ = ctx
	var wg sync.WaitGroup
	wg.Add(len(proposals))
	for i := range proposals {
		go func(i int) {
			defer wg.Done()
			p := &proposals[i]
			target, ok := r.SEO.Meta(p.PostID)
			if !ok {
				target = seo.ArticleMeta{
					PostID:       p.PostID,
					Title:        p.Title,
					Content:      p.ContentType,
					TopicCluster: p.TopicCluster,
				}
			}
			breakdown := r.SEO.Score(seo.ScoreInput{
				SourceID:      req.PostID,
				SourceType:    req.ContentType,
				TargetID:      p.PostID,
				Target:        target,
				AnchorText:    p.AnchorText,
				SourceHTML:    req.Content,
				ExistingLinks: map[int64]bool{},
			}, r.Lexicon)
			p.SEO = SEOInfo{Score: breakdown.TotalSEOScore, Allowed: breakdown.Allowed, Breakdown: breakdown}
		}(i)
	}
	wg.Wait()
}

// summarizeSEO builds the response's optional SEO rollup (spec §4.H step
// 14, includeSEOMetrics).
func summarizeSEO(proposals []LinkProposal) *SEOSummary {
	summary := &SEOSummary{}
	if len(proposals) == 0 {
		return summary
	}
	var total float64
	for _, p := range proposals {
		total += p.SEO.Score
		if p.SEO.Allowed {
			summary.AllowedCount++
		} else {
			summary.BlockedCount++
		}
	}
	summary.AverageSEOScore = total / float64(len(proposals))
	return summary
}
