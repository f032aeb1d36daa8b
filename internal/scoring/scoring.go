// Package scoring implements the hybrid scorer (spec component D): a
// composite 0-100 business-rule score for a candidate relative to a source
// article, with a component breakdown. Weights are tuned floats summing to
// 1, in the style of apoc/scoring's weighted composite helpers.
package scoring

import (
	"linkatlas/internal/article"
	"linkatlas/internal/mathx"
)

// Weights holds the share each component contributes to the composite
// score. The zero value is invalid; use DefaultWeights.
type Weights struct {
	VectorSimilarity float64
	TopicCluster     float64
	FunnelStage      float64
	Persona          float64
	Quality          float64
	Pillar           float64
	ContentType      float64
}

// DefaultWeights matches the "typical shares" spec §4.D lists.
func DefaultWeights() Weights {
	return Weights{
		VectorSimilarity: 0.35,
		TopicCluster:     0.20,
		FunnelStage:      0.15,
		Persona:          0.10,
		Quality:          0.10,
		Pillar:           0.05,
		ContentType:      0.05,
	}
}

// Breakdown exposes each component's contribution (already weighted, on a
// 0-100 scale) plus the composite total.
type Breakdown struct {
	VectorSimilarity float64 `json:"vectorSimilarity"`
	TopicCluster     float64 `json:"topicCluster"`
	FunnelStage      float64 `json:"funnelStage"`
	Persona          float64 `json:"persona"`
	Quality          float64 `json:"quality"`
	Pillar           float64 `json:"pillar"`
	ContentType      float64 `json:"contentType"`
	Total            float64 `json:"total"`
}

// Scorer computes the hybrid score for (source, candidate) pairs.
type Scorer struct {
	weights Weights
}

// New builds a Scorer with the given weights.
func New(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score returns the composite 0-100 score and its breakdown for candidate
// relative to source, given the candidate's vector similarity in [0,1].
func (s *Scorer) Score(source, candidate article.Article, similarity float64) Breakdown {
	b := Breakdown{
		VectorSimilarity: s.weights.VectorSimilarity * mathx.Clamp(similarity, 0, 1) * 100,
		TopicCluster:     s.weights.TopicCluster * topicClusterScore(source, candidate) * 100,
		FunnelStage:      s.weights.FunnelStage * funnelStageScore(source, candidate) * 100,
		Persona:          s.weights.Persona * personaScore(source, candidate) * 100,
		Quality:          s.weights.Quality * mathx.Clamp(float64(candidate.QualityScore)/100, 0, 1) * 100,
		Pillar:           s.weights.Pillar * pillarScore(candidate) * 100,
		ContentType:      s.weights.ContentType * contentTypeScore(source, candidate) * 100,
	}
	b.Total = mathx.Clamp(b.VectorSimilarity+b.TopicCluster+b.FunnelStage+b.Persona+b.Quality+b.Pillar+b.ContentType, 0, 100)
	return b
}

// InStrictSilo reports whether candidate's cluster is the source's own
// cluster or one of its related clusters — the strictSilo filter predicate
// from spec §4.D.
func InStrictSilo(source, candidate article.Article) bool {
	if candidate.TopicCluster == source.TopicCluster {
		return true
	}
	for _, related := range source.RelatedClusters {
		if candidate.TopicCluster == related {
			return true
		}
	}
	return false
}

func topicClusterScore(source, candidate article.Article) float64 {
	if candidate.TopicCluster == "" || source.TopicCluster == "" {
		return 0.3
	}
	if candidate.TopicCluster == source.TopicCluster {
		return 1.0
	}
	for _, related := range source.RelatedClusters {
		if candidate.TopicCluster == related {
			return 0.6
		}
	}
	return 0.2
}

var funnelOrder = map[article.FunnelStage]int{
	article.FunnelAwareness:     0,
	article.FunnelConsideration: 1,
	article.FunnelDecision:      2,
	article.FunnelUnknown:       -1,
}

// funnelStageScore rewards forward progress along the funnel
// (awareness -> consideration -> decision) and penalizes a strong backward
// jump (decision -> awareness).
func funnelStageScore(source, candidate article.Article) float64 {
	srcOrder, srcOK := funnelOrder[source.FunnelStage]
	candOrder, candOK := funnelOrder[candidate.FunnelStage]
	if !srcOK || !candOK || srcOrder < 0 || candOrder < 0 {
		return 0.5
	}
	delta := candOrder - srcOrder
	switch {
	case delta == 1:
		return 1.0
	case delta == 0:
		return 0.7
	case delta == -2:
		return 0.1
	case delta < 0:
		return 0.3
	default:
		return 0.5
	}
}

func personaScore(source, candidate article.Article) float64 {
	if source.TargetPersona == "" || candidate.TargetPersona == "" {
		return 0.5
	}
	if source.TargetPersona == candidate.TargetPersona {
		return 1.0
	}
	return 0.2
}

func pillarScore(candidate article.Article) float64 {
	if candidate.IsPillar {
		return 1.0
	}
	return 0.3
}

// contentTypeScore prefers linking a post to a page (cornerstone content).
func contentTypeScore(source, candidate article.Article) float64 {
	if source.Content == article.ContentPost && candidate.Content == article.ContentPage {
		return 1.0
	}
	if candidate.Content == source.Content {
		return 0.6
	}
	return 0.4
}
