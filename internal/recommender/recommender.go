package recommender

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"linkatlas/internal/anchor"
	"linkatlas/internal/article"
	"linkatlas/internal/cache"
	"linkatlas/internal/catalog"
	"linkatlas/internal/embedding"
	"linkatlas/internal/entitygraph"
	"linkatlas/internal/eventlog"
	"linkatlas/internal/llm"
	"linkatlas/internal/scoring"
	"linkatlas/internal/seo"
)

// Tuning constants from spec §4.H.
const (
	vectorTopK            = 50
	preFilterSimilarity    = 0.25
	rerankPoolSize         = 20
	keepMultiplier         = 3
	seoScoreWeight         = 0.2
	responseFreshWindow    = 24 * time.Hour
)

// Recommender wires components A, C, D, E, F, G, and the LLM client (B)
// into the spec component H pipeline.
type Recommender struct {
	Catalog   catalog.Catalog
	Embedder  embedding.Client
	LLM       llm.Client
	Entities  *entitygraph.Retriever
	Scorer    *scoring.Scorer
	SEO       *seo.Cache
	Lexicon   anchor.Lexicon
	Enhancers []Enhancer

	respCache *cache.Cache
	inflight  *cache.Group

	Logger *log.Logger
	// EventLog records link-insert events, if set. Left nil in
	// tests and in deployments that don't need a replayable event stream.
	EventLog *eventlog.Logger
}

// New builds a Recommender from its dependencies, using the default
// response cache bound (1000 entries, 24h TTL) spec §5 specifies unless
// overridden via SetResponseCache.
func New(cat catalog.Catalog, embedder embedding.Client, llmClient llm.Client, entities *entitygraph.Retriever, scorer *scoring.Scorer, seoCache *seo.Cache, lexicon anchor.Lexicon) *Recommender {
	return &Recommender{
		Catalog:   cat,
		Embedder:  embedder,
		LLM:       llmClient,
		Entities:  entities,
		Scorer:    scorer,
		SEO:       seoCache,
		Lexicon:   lexicon,
		Enhancers: DefaultEnhancers(),
		respCache: cache.New(cache.DefaultMaxEntries, cache.DefaultTTL),
		inflight:  cache.NewGroup(),
		Logger:    log.Default(),
	}
}

// SetResponseCache overrides the response cache's capacity and TTL.
func (r *Recommender) SetResponseCache(maxEntries int, ttl time.Duration) {
	r.respCache = cache.New(maxEntries, ttl)
}

// Recommend runs the full smart-link pipeline for req, per spec §4.H.
func (r *Recommender) Recommend(ctx context.Context, req Request) (*Response, error) {
	req.Normalize()

	// Source-page empty invariant: a page source never receives
	// automatically-inserted links, and its recommendation query returns
	// the empty set unconditionally (spec §3 invariants, §8 "Source-page
	// empty").
	if req.ContentType == article.ContentPage {
		return emptyResponse("Pages do not receive automatic links"), nil
	}

	key := cache.Key(req.PostID, req.Content, req.MaxLinks)

	if !req.SkipCache {
		if cached, ok := r.respCache.Get(key); ok {
			resp := cloneResponse(cached.(*Response))
			resp.Cached = true
			return resp, nil
		}
	}

	value, shared, err := r.inflight.Do(key, func() (any, error) {
		resp, err := r.runPipeline(ctx, req)
		if err != nil {
			return nil, err
		}
		if !req.SkipCache {
			r.respCache.Put(key, resp)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := cloneResponse(value.(*Response))
	if shared {
		resp.Deduplicated = true
	}
	return resp, nil
}

func cloneResponse(r *Response) *Response {
	cp := *r
	cp.Links = append([]LinkProposal(nil), r.Links...)
	return &cp
}

func (r *Recommender) runPipeline(ctx context.Context, req Request) (*Response, error) {
	if err := r.SEO.Refresh(ctx, false); err != nil {
		r.log("seo cache refresh failed, reusing last good cache: %v", err)
	}

	existingCount, _ := countLinks(req.Content)
	if req.MaxLinks <= existingCount {
		resp := emptyResponse("existing link count already meets maxLinks")
		resp.Skipped = true
		return resp, nil
	}

	source := article.Article{
		PostID:          req.PostID,
		Title:           req.Title,
		TopicCluster:    req.TopicCluster,
		RelatedClusters: req.RelatedClusters,
		FunnelStage:     req.FunnelStage,
		TargetPersona:   req.TargetPersona,
		Content:         req.ContentType,
	}

	exclude := make(map[int64]bool, len(req.ExcludeIDs)+1)
	exclude[req.PostID] = true
	for _, id := range req.ExcludeIDs {
		exclude[id] = true
	}

	vecCandidates, entityCandidates, err := r.retrieve(ctx, source, req.Content, exclude)
	if err != nil {
		return nil, fmt.Errorf("recommender: retrieval: %w", err)
	}

	merged := mergeCandidates(vecCandidates, entityCandidates)
	merged = filterByContentType(req.ContentType, merged)
	merged = filterDismissed(r.SEO, req.PostID, merged)

	if len(merged) == 0 {
		resp := emptyResponse("no eligible candidates found")
		resp.Stats.EntityBasedCandidates = len(entityCandidates)
		return resp, nil
	}

	reranked, rerankedCount := r.rerank(ctx, req.Content, merged)

	scored := r.hybridScore(source, reranked, req.StrictSilo, req.MinScore)
	if len(scored) == 0 {
		resp := emptyResponse("no candidates passed the score threshold")
		resp.Stats.CandidatesFound = len(merged)
		resp.Stats.EntityBasedCandidates = len(entityCandidates)
		resp.Stats.CrossEncoderReRanked = rerankedCount
		return resp, nil
	}

	r.applyEnhancementsAndSort(source, scored)

	balanced := funnelBalance(scored, req.MaxLinks*keepMultiplier)

	withAnchors := r.selectAnchors(ctx, req, balanced)

	r.scoreSEO(ctx, req, withAnchors)

	sortProposalsDesc(withAnchors)
	for i := range withAnchors {
		withAnchors[i].Score = withAnchors[i].enhanced + seoScoreWeight*withAnchors[i].SEO.Score
	}
	sort.SliceStable(withAnchors, func(i, j int) bool {
		if withAnchors[i].Score != withAnchors[j].Score {
			return withAnchors[i].Score > withAnchors[j].Score
		}
		return withAnchors[i].PostID < withAnchors[j].PostID
	})

	if len(withAnchors) > req.MaxLinks {
		withAnchors = withAnchors[:req.MaxLinks]
	}
	withAnchors = dedupeByPostID(withAnchors)

	resp := &Response{
		Success: true,
		Links:   withAnchors,
		Stats: Stats{
			CandidatesFound:      len(merged),
			PassedScoring:        len(scored),
			AverageScore:         averageScore(withAnchors),
			LinksGenerated:       len(withAnchors),
			FunnelDistribution:   funnelCounts(withAnchors, scored),
			VelocityStatus:       "stable",
			EntityBasedCandidates: len(entityCandidates),
			CrossEncoderReRanked: rerankedCount,
		},
		computedAt: time.Now(),
	}

	if req.IncludeSEOMetrics {
		resp.SEOSummary = summarizeSEO(withAnchors)
	}

	if req.AutoInsert {
		linked, updates, err := r.autoInsert(req.PostID, req.Content, withAnchors)
		if err != nil {
			r.log("auto-insert failed: %v", err)
		} else {
			resp.LinkedContent = linked
			go r.persistInserted(req.PostID, updates)
		}
	}

	return resp, nil
}

func (r *Recommender) log(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}

// countLinks reports how many <a> elements appear in body HTML.
func countLinks(bodyHTML string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
	if err != nil {
		return 0, err
	}
	return doc.Find("a").Length(), nil
}

func averageScore(props []LinkProposal) float64 {
	if len(props) == 0 {
		return 0
	}
	var sum float64
	for _, p := range props {
		sum += p.Score
	}
	return sum / float64(len(props))
}

func dedupeByPostID(props []LinkProposal) []LinkProposal {
	seen := make(map[int64]bool, len(props))
	out := make([]LinkProposal, 0, len(props))
	for _, p := range props {
		if seen[p.PostID] {
			continue
		}
		seen[p.PostID] = true
		out = append(out, p)
	}
	return out
}
