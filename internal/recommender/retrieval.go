package recommender

import (
	"context"
	"sync"

	"linkatlas/internal/article"
	"linkatlas/internal/catalog"
	"linkatlas/internal/entitygraph"
	"linkatlas/internal/llm"
)

// candidate merges a vector-retrieval result and/or an entity-overlap
// result for the same postId into one row the rest of the pipeline scores.
type candidate struct {
	Article       article.Article
	Similarity    float64
	EntityOverlap int
	FromEntity    bool
}

// retrieve runs the vector and entity-graph retrievals in parallel (spec
// §4.H step 5, §5 "parallel operations") and returns both raw result sets
// so stats can report entity-based candidate counts separately.
func (r *Recommender) retrieve(ctx context.Context, source article.Article, content string, exclude map[int64]bool) ([]catalog.Candidate, []entitygraph.Candidate, error) {
	var (
		vecResults    []catalog.Candidate
		entityResults []entitygraph.Candidate
		vecErr, entErr error
		wg            sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		vector, err := r.Embedder.EmbedArticle(ctx, source.Title, "", content)
		if err != nil {
			vecErr = err
			return
		}
		vecResults, vecErr = r.Catalog.Query(ctx, vector, vectorTopK, exclude)
	}()
	go func() {
		defer wg.Done()
		stored := source
		if source.PostID != 0 {
			if existing, err := r.Catalog.Get(ctx, source.PostID); err == nil {
				stored = existing
			}
		}
		entityResults, entErr = r.Entities.FindCandidates(ctx, stored)
	}()
	wg.Wait()

	if vecErr != nil {
		return nil, nil, vecErr
	}
	// Entity-graph failures are not fatal to the request — vector retrieval
	// alone is a complete candidate pool; entity overlap only enriches it.
	if entErr != nil {
		entityResults = nil
	}

	filtered := entityResults[:0:0]
	for _, e := range entityResults {
		if !exclude[e.Article.PostID] {
			filtered = append(filtered, e)
		}
	}
	return vecResults, filtered, nil
}

// mergeCandidates dedups by postId, preferring the vector-retrieval
// similarity score when a postId appears in both result sets and folding in
// the entity overlap count regardless.
func mergeCandidates(vec []catalog.Candidate, ent []entitygraph.Candidate) []candidate {
	byID := make(map[int64]*candidate, len(vec)+len(ent))
	order := make([]int64, 0, len(vec)+len(ent))

	for _, v := range vec {
		byID[v.Article.PostID] = &candidate{Article: v.Article, Similarity: v.Score}
		order = append(order, v.Article.PostID)
	}
	for _, e := range ent {
		if existing, ok := byID[e.Article.PostID]; ok {
			existing.EntityOverlap = e.Overlap
			continue
		}
		byID[e.Article.PostID] = &candidate{Article: e.Article, Similarity: e.Score, EntityOverlap: e.Overlap, FromEntity: true}
		order = append(order, e.Article.PostID)
	}

	out := make([]candidate, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// filterByContentType applies spec §4.H step 5's rule: a post source may
// link to either content type; a page source allows pages only (this path
// is unreachable in practice since a page source short-circuits earlier).
func filterByContentType(sourceType article.ContentType, candidates []candidate) []candidate {
	if sourceType != article.ContentPage {
		return candidates
	}
	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Article.Content == article.ContentPage {
			out = append(out, c)
		}
	}
	return out
}

// filterDismissed drops any candidate the source has dismissed, per the
// link-lifecycle state machine's "dismissed: excluded from future
// recommendations for that source".
func filterDismissed(seoCache interface {
	IsDismissed(sourceID, targetID int64) bool
}, sourceID int64, candidates []candidate) []candidate {
	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if seoCache.IsDismissed(sourceID, c.Article.PostID) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// rerank implements spec §4.H step 6's two-stage re-rank: a cheap
// similarity pre-filter, then an LLM cross-encoder pass over the first
// rerankPoolSize survivors. It returns every pre-filtered candidate; the cut
// to a multiple of maxLinks happens later, in funnelBalance. It reports how
// many candidates were actually sent to the cross encoder for the stats block.
func (r *Recommender) rerank(ctx context.Context, sourceContent string, candidates []candidate) ([]candidate, int) {
	prefiltered := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.FromEntity || c.Similarity >= preFilterSimilarity {
			prefiltered = append(prefiltered, c)
		}
	}

	if len(prefiltered) == 0 || r.LLM == nil {
		return prefiltered, 0
	}

	pool := prefiltered
	if len(pool) > rerankPoolSize {
		pool = pool[:rerankPoolSize]
	}

	reqs := make([]llm.RerankCandidate, 0, len(pool))
	for _, c := range pool {
		reqs = append(reqs, llm.RerankCandidate{PostID: c.Article.PostID, Text: c.Article.Summary})
	}
	results, err := r.LLM.CrossEncoderRerank(ctx, sourceContent, reqs)
	if err != nil {
		return prefiltered, 0
	}

	byID := make(map[int64]float64, len(results))
	for _, res := range results {
		byID[res.PostID] = res.Score
	}
	for i := range pool {
		if score, ok := byID[pool[i].Article.PostID]; ok {
			pool[i].Similarity = (pool[i].Similarity + score) / 2
		}
	}

	rest := prefiltered[len(pool):]
	merged := append(append([]candidate{}, pool...), rest...)
	return merged, len(pool)
}
