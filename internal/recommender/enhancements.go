package recommender

import "linkatlas/internal/article"

// Enhancer is one pluggable post-scoring adjustment spec §4.H step 8 folds
// in after the hybrid score: seasonal boost, relevance decay, E-E-A-T, and
// link-velocity penalty. Each carries a name used in the per-recommendation
// breakdown. Seasonal boost, E-E-A-T and link velocity ship as neutral
// no-ops (seasonal=1.0 multiplier, the others 0 additive); relevance decay
// ships as DecayEnhancer, which returns a non-zero age-based addend.
type Enhancer interface {
	Name() string
	// Apply returns the adjustment to fold into the running score: a
	// multiplier for Kind()=="multiplicative", an addend otherwise.
	Apply(source, candidate article.Article) float64
	Kind() string
}

const (
	KindMultiplicative = "multiplicative"
	KindAdditive       = "additive"
)

// NoopSeasonal is the default seasonal-boost extension point: no seasonal
// signal is modeled, so it multiplies by 1.0 (spec §9 open question).
type NoopSeasonal struct{}

func (NoopSeasonal) Name() string                                      { return "seasonal" }
func (NoopSeasonal) Kind() string                                      { return KindMultiplicative }
func (NoopSeasonal) Apply(_ article.Article, _ article.Article) float64 { return 1.0 }

// NoopEEAT is the default Experience-Expertise-Authoritativeness-Trust
// extension point: no signal modeled, additive 0 (spec §9 open question).
type NoopEEAT struct{}

func (NoopEEAT) Name() string                                      { return "eeat" }
func (NoopEEAT) Kind() string                                      { return KindAdditive }
func (NoopEEAT) Apply(_ article.Article, _ article.Article) float64 { return 0 }

// NoopLinkVelocity is the default link-velocity-penalty extension point: no
// signal modeled, additive 0 (spec §9 open question).
type NoopLinkVelocity struct{}

func (NoopLinkVelocity) Name() string                                      { return "linkVelocity" }
func (NoopLinkVelocity) Kind() string                                      { return KindAdditive }
func (NoopLinkVelocity) Apply(_ article.Article, _ article.Article) float64 { return 0 }

// DecayEnhancer folds relevance decay into the candidate's score additively,
// scaled down from the SEO scorer's own 0-15 decay score so it nudges
// rather than dominates the hybrid-scored ranking.
type DecayEnhancer struct{}

func (DecayEnhancer) Name() string { return "decay" }
func (DecayEnhancer) Kind() string { return KindAdditive }
func (DecayEnhancer) Apply(_ article.Article, candidate article.Article) float64 {
	if candidate.UpdatedAt.IsZero() {
		return -1
	}
	days := daysSince(candidate.UpdatedAt)
	switch {
	case days <= 30:
		return 3
	case days <= 90:
		return 1.5
	case days <= 180:
		return 0
	case days <= 365:
		return -2
	default:
		return -4
	}
}

// DefaultEnhancers returns the pipeline's default enhancement set: a real
// decay enhancer plus no-op seasonal/E-E-A-T/velocity extension points.
func DefaultEnhancers() []Enhancer {
	return []Enhancer{
		NoopSeasonal{},
		DecayEnhancer{},
		NoopEEAT{},
		NoopLinkVelocity{},
	}
}

// applyEnhancements runs every enhancer over candidate relative to source
// and folds the result into base, recording each enhancer's raw
// contribution in the returned breakdown.
func applyEnhancements(enhancers []Enhancer, base float64, source, candidate article.Article) (float64, map[string]float64) {
	score := base
	breakdown := make(map[string]float64, len(enhancers))
	for _, e := range enhancers {
		delta := e.Apply(source, candidate)
		breakdown[e.Name()] = delta
		if e.Kind() == KindMultiplicative {
			score *= delta
		} else {
			score += delta
		}
	}
	return score, breakdown
}
