package httpapi

import (
	"context"
	"fmt"
	"time"

	"linkatlas/internal/article"
	"linkatlas/internal/catalog"
)

// SyncRequest mirrors the POST /api/catalog-sync body, spec §6.
type SyncRequest struct {
	PostID           int64                     `json:"postId"`
	Title            string                    `json:"title"`
	URL              string                    `json:"url"`
	Content          string                    `json:"content"`
	Slug             string                    `json:"slug"`
	ContentType      article.ContentType       `json:"contentType"`
	TopicCluster     string                    `json:"topicCluster"`
	RelatedClusters  []string                  `json:"relatedClusters"`
	FunnelStage      article.FunnelStage       `json:"funnelStage"`
	TargetPersona    string                    `json:"targetPersona"`
	DifficultyLevel  article.DifficultyLevel   `json:"difficultyLevel"`
	QualityScore     int                       `json:"qualityScore"`
	ContentLifespan  article.ContentLifespan   `json:"contentLifespan"`
	IsPillar         bool                      `json:"isPillar"`
	Summary          string                    `json:"summary"`
	MainTopics       []string                  `json:"mainTopics"`
	SemanticKeywords []string                  `json:"semanticKeywords"`
	PublishedAt      time.Time                 `json:"publishedAt"`
	UpdatedAt        time.Time                 `json:"updatedAt"`
}

// SyncResult is the POST /api/catalog-sync 200 response shape.
type SyncResult struct {
	Success           bool           `json:"success"`
	Action            string         `json:"action"`
	PostID            int64          `json:"postId"`
	VectorID          string         `json:"vectorId"`
	GeneratedSummary  string         `json:"generatedSummary,omitempty"`
	GeneratedKeywords []string       `json:"generatedKeywords,omitempty"`
	AutoAnalyzed      bool           `json:"autoAnalyzed"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// syncArticle upserts req into the catalog, auto-analyzing via the LLM
// client whenever the caller omitted the classification fields it would
// otherwise have to supply by hand (spec §4.B "auto-analyze on sync").
func (s *Server) syncArticle(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	_, err := s.Catalog.Get(ctx, req.PostID)
	action := "created"
	if err == nil {
		action = "updated"
	} else if err != catalog.ErrNotFound {
		return nil, fmt.Errorf("httpapi: lookup existing article: %w", err)
	}

	a := article.Article{
		PostID:           req.PostID,
		Title:            req.Title,
		URL:              req.URL,
		Slug:             req.Slug,
		Content:          req.ContentType,
		Summary:          req.Summary,
		MainTopics:       req.MainTopics,
		SemanticKeywords: req.SemanticKeywords,
		TopicCluster:     req.TopicCluster,
		RelatedClusters:  req.RelatedClusters,
		FunnelStage:      req.FunnelStage,
		TargetPersona:    req.TargetPersona,
		Difficulty:       req.DifficultyLevel,
		Lifespan:         req.ContentLifespan,
		QualityScore:     req.QualityScore,
		IsPillar:         req.IsPillar,
		PublishedAt:      req.PublishedAt,
		UpdatedAt:        req.UpdatedAt,
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}

	autoAnalyzed := false
	needsAnalysis := a.TopicCluster == "" || a.Summary == "" || len(a.SemanticKeywords) == 0
	if needsAnalysis && s.LLM != nil {
		analysis, err := s.LLM.AutoAnalyze(ctx, a.Title, req.Content)
		if err != nil {
			s.log("auto-analyze failed for post %d, using documented defaults: %v", req.PostID, err)
		}
		autoAnalyzed = true
		if a.Summary == "" {
			a.Summary = analysis.Summary
		}
		if len(a.MainTopics) == 0 {
			a.MainTopics = analysis.MainTopics
		}
		if len(a.SemanticKeywords) == 0 {
			a.SemanticKeywords = analysis.SemanticKeywords
		}
		if len(a.SuggestedAnchors) == 0 {
			a.SuggestedAnchors = analysis.SuggestedAnchors
		}
		if len(a.Entities) == 0 {
			a.Entities = analysis.Entities
		}
		if a.TopicCluster == "" {
			a.TopicCluster = analysis.TopicCluster
		}
		if a.FunnelStage == "" {
			a.FunnelStage = article.FunnelStage(analysis.FunnelStage)
		}
		if a.QualityScore == 0 {
			a.QualityScore = analysis.QualityScore
		}
	}

	a.Normalize()

	vector, err := s.Embedder.EmbedArticle(ctx, a.Title, a.Summary, req.Content)
	if err != nil {
		return nil, fmt.Errorf("httpapi: embed article: %w", err)
	}
	a.Embedding = vector

	if err := s.Catalog.Upsert(ctx, a); err != nil {
		return nil, fmt.Errorf("httpapi: upsert article: %w", err)
	}

	if s.EventLog != nil {
		if err := s.EventLog.LogCatalogSync(action, a.PostID, true, ""); err != nil {
			s.log("event log write failed: %v", err)
		}
	}

	return &SyncResult{
		Success:           true,
		Action:            action,
		PostID:            a.PostID,
		VectorID:          fmt.Sprintf("post-%d", a.PostID),
		GeneratedSummary:  a.Summary,
		GeneratedKeywords: a.SemanticKeywords,
		AutoAnalyzed:      autoAnalyzed,
	}, nil
}

// deleteArticle removes postId from the catalog.
func (s *Server) deleteArticle(ctx context.Context, postID int64) error {
	if err := s.Catalog.Delete(ctx, postID); err != nil {
		return err
	}
	if s.EventLog != nil {
		if err := s.EventLog.LogCatalogSync("deleted", postID, true, ""); err != nil {
			s.log("event log write failed: %v", err)
		}
	}
	return nil
}
