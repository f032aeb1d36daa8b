// Package catalog defines the vector+metadata catalog contract (spec
// component C) and a local badger-backed implementation used for
// development and tests when the managed vector index is not available.
//
// The managed vector index itself (Pinecone or equivalent) is an external
// collaborator per spec §1 — opaque upsert/fetch/query/list. Catalog only
// needs a Go interface narrow enough that both the real client and the
// local implementation satisfy it identically.
package catalog

import (
	"context"
	"errors"

	"linkatlas/internal/article"
)

// ErrNotFound is returned by Get when postId is absent from the catalog.
var ErrNotFound = errors.New("catalog: article not found")

// Candidate is one result of a similarity query: the matched article plus
// the similarity score the index computed.
type Candidate struct {
	Article article.Article
	Score   float64
}

// Catalog is the narrow interface every subsystem programs against.
// Implementations: the managed vector index client (not shown — it is a
// thin HTTP/gRPC wrapper the CMS operator configures via PINECONE_INDEX)
// and BadgerCatalog below.
type Catalog interface {
	// Upsert creates or replaces the article, keyed by PostID.
	Upsert(ctx context.Context, a article.Article) error
	// Get returns ErrNotFound if postId is absent.
	Get(ctx context.Context, postID int64) (article.Article, error)
	Delete(ctx context.Context, postID int64) error
	// Query returns up to topK candidates most similar to vector, excluding
	// the ids in exclude.
	Query(ctx context.Context, vector []float32, topK int, exclude map[int64]bool) ([]Candidate, error)
	// ListAll returns up to limit articles in catalog order (limit<=0 means
	// all). Used by the SEO cache refresh.
	ListAll(ctx context.Context, limit int) ([]article.Article, error)
	// ListPillars returns all articles with IsPillar==true.
	ListPillars(ctx context.Context) ([]article.Article, error)
	// IncrementInboundLinks bumps InboundLinkCount by one via read-modify-write.
	IncrementInboundLinks(ctx context.Context, postID int64) error
}
