package recommender

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"linkatlas/internal/anchor"
	"linkatlas/internal/article"
	"linkatlas/internal/catalog"
	"linkatlas/internal/entitygraph"
	"linkatlas/internal/scoring"
	"linkatlas/internal/seo"
)

func newTestRecommender(t *testing.T) *Recommender {
	t.Helper()
	cat, err := catalog.NewBadgerCatalog(catalog.BadgerOptions{DataDir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	return New(cat, nil, nil, nil, scoring.New(scoring.DefaultWeights()), seo.New(cat), anchor.DefaultLexicon())
}

func TestRequest_NormalizeAppliesDefaults(t *testing.T) {
	req := Request{}
	req.Normalize()
	require.Equal(t, article.ContentPost, req.ContentType)
	require.Equal(t, 40.0, req.MinScore)
}

func TestRequest_NormalizeLeavesExplicitMinScore(t *testing.T) {
	req := Request{MinScore: 10}
	req.Normalize()
	require.Equal(t, 10.0, req.MinScore)
}

func TestContainsVerbatim(t *testing.T) {
	require.True(t, containsVerbatim("The Great Guide to Widgets is here", "great guide"))
	require.False(t, containsVerbatim("nothing relevant", "widgets"))
	require.False(t, containsVerbatim("anything", ""))
}

func TestSortProposalsDesc_BreaksTiesByPostID(t *testing.T) {
	props := []LinkProposal{
		{PostID: 2, enhanced: 50},
		{PostID: 1, enhanced: 50},
		{PostID: 3, enhanced: 90},
	}
	sortProposalsDesc(props)
	require.Equal(t, []int64{3, 1, 2}, []int64{props[0].PostID, props[1].PostID, props[2].PostID})
}

func TestFunnelBalance_RoundRobinsAcrossStages(t *testing.T) {
	mk := func(id int64, stage article.FunnelStage, score float64) LinkProposal {
		return LinkProposal{PostID: id, enhanced: score, candidateArticle: article.Article{FunnelStage: stage}}
	}
	props := []LinkProposal{
		mk(1, article.FunnelAwareness, 90),
		mk(2, article.FunnelAwareness, 80),
		mk(3, article.FunnelAwareness, 70),
		mk(4, article.FunnelDecision, 60),
	}

	balanced := funnelBalance(props, 2)
	require.Len(t, balanced, 2)

	stages := map[article.FunnelStage]bool{}
	for _, p := range balanced {
		stages[p.candidateArticle.FunnelStage] = true
	}
	require.True(t, stages[article.FunnelAwareness])
	require.True(t, stages[article.FunnelDecision], "round-robin should reach the under-represented stage before exhausting the dominant one")
}

func TestFunnelBalance_NoopWhenUnderLimit(t *testing.T) {
	props := []LinkProposal{{PostID: 1}, {PostID: 2}}
	require.Equal(t, props, funnelBalance(props, 5))
}

func TestFunnelCounts_TalliesSelectedOnly(t *testing.T) {
	selected := []LinkProposal{
		{candidateArticle: article.Article{FunnelStage: article.FunnelAwareness}},
		{candidateArticle: article.Article{FunnelStage: article.FunnelAwareness}},
		{candidateArticle: article.Article{FunnelStage: article.FunnelDecision}},
	}
	counts := funnelCounts(selected, nil)
	require.Equal(t, 2, counts["awareness"])
	require.Equal(t, 1, counts["decision"])
}

func TestDecayEnhancer_RewardsFreshContent(t *testing.T) {
	e := DecayEnhancer{}
	fresh := article.Article{UpdatedAt: time.Now().Add(-time.Hour)}
	stale := article.Article{UpdatedAt: time.Now().Add(-400 * 24 * time.Hour)}

	require.Greater(t, e.Apply(article.Article{}, fresh), e.Apply(article.Article{}, stale))
}

func TestDecayEnhancer_ZeroUpdatedAtPenalized(t *testing.T) {
	e := DecayEnhancer{}
	require.Equal(t, -1.0, e.Apply(article.Article{}, article.Article{}))
}

func TestApplyEnhancements_CombinesMultiplicativeAndAdditive(t *testing.T) {
	enhancers := []Enhancer{NoopSeasonal{}, NoopEEAT{}}
	score, breakdown := applyEnhancements(enhancers, 50, article.Article{}, article.Article{})
	require.Equal(t, 50.0, score)
	require.Equal(t, 1.0, breakdown["seasonal"])
	require.Equal(t, 0.0, breakdown["eeat"])
}

func TestHybridScore_FiltersBelowMinScoreAndOutOfSilo(t *testing.T) {
	r := newTestRecommender(t)
	source := article.Article{TopicCluster: "seo"}

	candidates := []candidate{
		{Article: article.Article{PostID: 1, TopicCluster: "seo", QualityScore: 90}, Similarity: 0.9},
		{Article: article.Article{PostID: 2, TopicCluster: "unrelated", QualityScore: 5}, Similarity: 0.1},
	}

	proposals := r.hybridScore(source, candidates, false, 40)
	require.Len(t, proposals, 1)
	require.Equal(t, int64(1), proposals[0].PostID)
}

func TestHybridScore_StrictSiloExcludesCrossCluster(t *testing.T) {
	r := newTestRecommender(t)
	source := article.Article{TopicCluster: "seo"}

	candidates := []candidate{
		{Article: article.Article{PostID: 1, TopicCluster: "other", QualityScore: 90}, Similarity: 0.9},
	}

	proposals := r.hybridScore(source, candidates, true, 0)
	require.Empty(t, proposals)
}

func TestSelectAnchors_FindsVerbatimAnchorFromBody(t *testing.T) {
	r := newTestRecommender(t)
	req := Request{Content: "This post references the Great Guide To Widgets at length."}
	proposals := []LinkProposal{{PostID: 1, Title: "Great Guide To Widgets"}}

	out := r.selectAnchors(context.Background(), req, proposals)
	require.Len(t, out, 1)
	require.NotEmpty(t, out[0].AnchorText)
	require.True(t, containsVerbatim(req.Content, out[0].AnchorText))
}

func TestSelectAnchors_DropsProposalWithNoAnchor(t *testing.T) {
	r := newTestRecommender(t)
	req := Request{Content: "Totally unrelated body text."}
	proposals := []LinkProposal{{PostID: 1, Title: "Something Else Entirely"}}

	out := r.selectAnchors(context.Background(), req, proposals)
	require.Empty(t, out)
}

func TestScoreSEO_PopulatesEveryProposal(t *testing.T) {
	r := newTestRecommender(t)
	require.NoError(t, r.SEO.Refresh(context.Background(), true))

	req := Request{PostID: 1, Content: "body"}
	proposals := []LinkProposal{{PostID: 2, Title: "Target", AnchorText: "target"}}

	r.scoreSEO(context.Background(), req, proposals)
	require.GreaterOrEqual(t, proposals[0].SEO.Score, 0.0)
}

func TestSummarizeSEO_AveragesAndCounts(t *testing.T) {
	proposals := []LinkProposal{
		{SEO: SEOInfo{Score: 80, Allowed: true}},
		{SEO: SEOInfo{Score: 40, Allowed: false}},
	}
	summary := summarizeSEO(proposals)
	require.Equal(t, 60.0, summary.AverageSEOScore)
	require.Equal(t, 1, summary.AllowedCount)
	require.Equal(t, 1, summary.BlockedCount)
}

func TestSummarizeSEO_EmptyProposals(t *testing.T) {
	summary := summarizeSEO(nil)
	require.Equal(t, 0.0, summary.AverageSEOScore)
}

func TestMergeCandidates_PrefersVectorSimilarityOnOverlap(t *testing.T) {
	vec := []catalog.Candidate{{Article: article.Article{PostID: 1}, Score: 0.8}}
	ent := []entitygraph.Candidate{{Article: article.Article{PostID: 1}, Overlap: 3, Score: 0.6}}

	merged := mergeCandidates(vec, ent)
	require.Len(t, merged, 1)
	require.Equal(t, 0.8, merged[0].Similarity)
	require.Equal(t, 3, merged[0].EntityOverlap)
}

func TestMergeCandidates_KeepsEntityOnlyCandidate(t *testing.T) {
	ent := []entitygraph.Candidate{{Article: article.Article{PostID: 2}, Overlap: 1, Score: 0.6}}
	merged := mergeCandidates(nil, ent)
	require.Len(t, merged, 1)
	require.True(t, merged[0].FromEntity)
}

func TestFilterByContentType_PageSourceOnlyAllowsPages(t *testing.T) {
	candidates := []candidate{
		{Article: article.Article{PostID: 1, Content: article.ContentPage}},
		{Article: article.Article{PostID: 2, Content: article.ContentPost}},
	}
	out := filterByContentType(article.ContentPage, candidates)
	require.Len(t, out, 1)
	require.Equal(t, int64(1), out[0].Article.PostID)
}

func TestFilterByContentType_PostSourceAllowsBoth(t *testing.T) {
	candidates := []candidate{
		{Article: article.Article{PostID: 1, Content: article.ContentPage}},
		{Article: article.Article{PostID: 2, Content: article.ContentPost}},
	}
	out := filterByContentType(article.ContentPost, candidates)
	require.Len(t, out, 2)
}

type fakeDismissChecker struct{ dismissed map[int64]bool }

func (f fakeDismissChecker) IsDismissed(sourceID, targetID int64) bool { return f.dismissed[targetID] }

func TestFilterDismissed_DropsDismissedTargets(t *testing.T) {
	candidates := []candidate{{Article: article.Article{PostID: 1}}, {Article: article.Article{PostID: 2}}}
	checker := fakeDismissChecker{dismissed: map[int64]bool{2: true}}

	out := filterDismissed(checker, 99, candidates)
	require.Len(t, out, 1)
	require.Equal(t, int64(1), out[0].Article.PostID)
}

func TestRerank_PreFiltersBySimilarityWhenNoLLM(t *testing.T) {
	r := newTestRecommender(t)
	candidates := []candidate{
		{Article: article.Article{PostID: 1}, Similarity: 0.9},
		{Article: article.Article{PostID: 2}, Similarity: 0.1},
		{Article: article.Article{PostID: 3}, FromEntity: true, Similarity: 0.05},
	}

	out, rerankedCount := r.rerank(context.Background(), "body", candidates)
	require.Equal(t, 0, rerankedCount, "no LLM configured, so nothing was sent to the cross encoder")
	ids := map[int64]bool{}
	for _, c := range out {
		ids[c.Article.PostID] = true
	}
	require.True(t, ids[1])
	require.True(t, ids[3], "entity-sourced candidates bypass the similarity pre-filter")
	require.False(t, ids[2])
}
