package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"linkatlas/internal/article"
)

func TestScore_SameClusterBeatsCrossCluster(t *testing.T) {
	s := New(DefaultWeights())
	source := article.Article{TopicCluster: "seo"}

	same := s.Score(source, article.Article{TopicCluster: "seo", QualityScore: 50}, 0.8)
	cross := s.Score(source, article.Article{TopicCluster: "other", QualityScore: 50}, 0.8)

	require.Greater(t, same.Total, cross.Total)
}

func TestScore_PillarPreferred(t *testing.T) {
	s := New(DefaultWeights())
	source := article.Article{TopicCluster: "seo"}

	pillar := s.Score(source, article.Article{TopicCluster: "seo", IsPillar: true, Content: article.ContentPage, QualityScore: 50}, 0.5)
	nonPillar := s.Score(source, article.Article{TopicCluster: "seo", QualityScore: 50}, 0.5)

	require.Greater(t, pillar.Total, nonPillar.Total)
}

func TestScore_TotalClampedToRange(t *testing.T) {
	s := New(DefaultWeights())
	source := article.Article{TopicCluster: "seo", FunnelStage: article.FunnelAwareness, TargetPersona: "dev"}
	candidate := article.Article{TopicCluster: "seo", FunnelStage: article.FunnelConsideration, TargetPersona: "dev", IsPillar: true, Content: article.ContentPage, QualityScore: 100}

	b := s.Score(source, candidate, 1.0)
	require.LessOrEqual(t, b.Total, 100.0)
	require.GreaterOrEqual(t, b.Total, 0.0)
}

func TestInStrictSilo(t *testing.T) {
	source := article.Article{TopicCluster: "seo", RelatedClusters: []string{"content-marketing"}}

	require.True(t, InStrictSilo(source, article.Article{TopicCluster: "seo"}))
	require.True(t, InStrictSilo(source, article.Article{TopicCluster: "content-marketing"}))
	require.False(t, InStrictSilo(source, article.Article{TopicCluster: "unrelated"}))
}

func TestFunnelStageScore_BackwardJumpPenalized(t *testing.T) {
	source := article.Article{FunnelStage: article.FunnelDecision}
	forward := funnelStageScore(article.Article{FunnelStage: article.FunnelAwareness}, article.Article{FunnelStage: article.FunnelConsideration})
	backward := funnelStageScore(source, article.Article{FunnelStage: article.FunnelAwareness})

	require.Greater(t, forward, backward)
}
