package recommender

import (
	"linkatlas/internal/article"
	"linkatlas/internal/scoring"
)

// hybridScore runs every candidate through the business-rule scorer (spec
// §4.H step 7), dropping anything under strict-silo (when requested) or
// under minScore.
func (r *Recommender) hybridScore(source article.Article, candidates []candidate, strictSilo bool, minScore float64) []LinkProposal {
	out := make([]LinkProposal, 0, len(candidates))
	for _, c := range candidates {
		if strictSilo && !scoring.InStrictSilo(source, c.Article) {
			continue
		}
		breakdown := r.Scorer.Score(source, c.Article, c.Similarity)
		if breakdown.Total < minScore {
			continue
		}
		out = append(out, LinkProposal{
			PostID:           c.Article.PostID,
			Title:            c.Article.Title,
			URL:              c.Article.URL,
			TopicCluster:     c.Article.TopicCluster,
			ContentType:      c.Article.Content,
			Score:            breakdown.Total,
			ScoreBreakdown:   breakdown,
			enhanced:         breakdown.Total,
			candidateArticle: c.Article,
		})
	}
	return out
}

// applyEnhancementsAndSort folds every configured Enhancer's adjustment into
// each proposal's enhanced score (spec §4.H step 8) and sorts the slice in
// place, descending.
func (r *Recommender) applyEnhancementsAndSort(source article.Article, proposals []LinkProposal) {
	for i := range proposals {
		enhanced, breakdown := applyEnhancements(r.Enhancers, proposals[i].Score, source, proposals[i].candidateArticle)
		proposals[i].enhanced = enhanced
		proposals[i].enhancementBreakdown = breakdown
	}
	sortProposalsDesc(proposals)
}

// funnelBalance keeps up to limit proposals, round-robining across funnel
// stages (awareness, consideration, decision, unknown) in score order within
// each stage so one stage's abundance doesn't crowd out the others — spec
// §4.H step 9, "funnel-aware diversity".
func funnelBalance(proposals []LinkProposal, limit int) []LinkProposal {
	if limit <= 0 || len(proposals) <= limit {
		return proposals
	}

	buckets := map[article.FunnelStage][]LinkProposal{}
	order := []article.FunnelStage{}
	for _, p := range proposals {
		stage := p.candidateArticle.FunnelStage
		if _, seen := buckets[stage]; !seen {
			order = append(order, stage)
		}
		buckets[stage] = append(buckets[stage], p)
	}

	out := make([]LinkProposal, 0, limit)
	idx := make([]int, len(order))
	for len(out) < limit {
		progressed := false
		for i, stage := range order {
			if idx[i] >= len(buckets[stage]) {
				continue
			}
			out = append(out, buckets[stage][idx[i]])
			idx[i]++
			progressed = true
			if len(out) >= limit {
				break
			}
		}
		if !progressed {
			break
		}
	}

	sortProposalsDesc(out)
	return out
}

// funnelCounts tallies the final selection's funnel-stage distribution for
// the response's stats block. all is accepted for symmetry with the rest of
// the pipeline's (selected, everyCandidate) call shape but the distribution
// spec §4.H documents is over what shipped, not the full candidate pool.
func funnelCounts(selected, all []LinkProposal) map[string]int {
	_ = all
	counts := make(map[string]int, 4)
	for _, p := range selected {
		stage := string(p.candidateArticle.FunnelStage)
		if stage == "" {
			stage = string(article.FunnelUnknown)
		}
		counts[stage]++
	}
	return counts
}
