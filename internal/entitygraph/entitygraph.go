// Package entitygraph implements the entity/knowledge-graph retriever
// (spec component F): given a source article's extracted entities, it
// finds other articles sharing entities and scores them by overlap. This
// mirrors the teacher's link-prediction topology package — Jaccard/common-
// neighbors style overlap scoring — applied to entity sets instead of graph
// neighborhoods.
package entitygraph

import (
	"context"

	"linkatlas/internal/article"
	"linkatlas/internal/catalog"
	"linkatlas/internal/mathx"
)

// Candidate is one entity-graph retrieval result: the matched article, the
// number of shared entities, and the score spec §4.F specifies.
type Candidate struct {
	Article article.Article
	Overlap int
	Score   float64
}

// Retriever finds candidates sharing named entities with a source article.
type Retriever struct {
	catalog catalog.Catalog
}

// New builds a Retriever over cat.
func New(cat catalog.Catalog) *Retriever {
	return &Retriever{catalog: cat}
}

// FindCandidates returns every cataloged article (other than source itself)
// that shares at least one entity with source, scored 0.5 + 0.1*overlap per
// spec §4.F so it composes directly with vector-retrieval scores.
func (r *Retriever) FindCandidates(ctx context.Context, source article.Article) ([]Candidate, error) {
	if len(source.Entities) == 0 {
		return nil, nil
	}

	all, err := r.catalog.ListAll(ctx, 0)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(all))
	for _, a := range all {
		if a.PostID == source.PostID {
			continue
		}
		overlap := mathx.OverlapCount(source.Entities, a.Entities)
		if overlap == 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			Article: a,
			Overlap: overlap,
			Score:   0.5 + 0.1*float64(overlap),
		})
	}
	return candidates, nil
}
