package httpapi

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"linkatlas/internal/article"
	"linkatlas/internal/linkaudit"
	"linkatlas/internal/llm"
	"linkatlas/internal/recommender"
	"linkatlas/internal/seo"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{
		"catalog": "ok",
	}
	status := "ok"
	if s.LLM == nil {
		services["llm"] = "unconfigured"
	} else {
		services["llm"] = "ok"
	}
	if s.Embedder == nil {
		services["embedding"] = "unconfigured"
		status = "degraded"
	} else {
		services["embedding"] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now(),
		"services":  services,
	})
}

func (s *Server) handleCatalogSync(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req SyncRequest
		if err := s.readJSON(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		if req.PostID == 0 || req.Title == "" || req.URL == "" || req.Content == "" {
			s.writeError(w, http.StatusBadRequest, "postId, title, url, and content are required", "")
			return
		}
		result, err := s.syncArticle(r.Context(), req)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "catalog sync failed", err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, result)

	case http.MethodDelete:
		var body struct {
			PostID int64 `json:"postId"`
		}
		if err := s.readJSON(r, &body); err != nil || body.PostID == 0 {
			s.writeError(w, http.StatusBadRequest, "postId is required", "")
			return
		}
		if err := s.deleteArticle(r.Context(), body.PostID); err != nil {
			s.writeError(w, http.StatusInternalServerError, "delete failed", err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"action":  "deleted",
			"postId":  body.PostID,
		})

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (s *Server) handleCatalogSyncBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required", "")
		return
	}
	var req struct {
		Articles []SyncRequest `json:"articles"`
	}
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	type detail struct {
		PostID int64  `json:"postId"`
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}
	details := make([]detail, 0, len(req.Articles))
	succeeded, failed := 0, 0
	for _, a := range req.Articles {
		if _, err := s.syncArticle(r.Context(), a); err != nil {
			failed++
			details = append(details, detail{PostID: a.PostID, Status: "failed", Error: err.Error()})
			continue
		}
		succeeded++
		details = append(details, detail{PostID: a.PostID, Status: "ok"})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"succeeded": succeeded,
		"failed":    failed,
		"details":   details,
	})
}

func (s *Server) handleSmartLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required", "")
		return
	}

	var body struct {
		Content           string              `json:"content"`
		PostID            int64               `json:"postId"`
		Title             string              `json:"title"`
		TopicCluster      string              `json:"topicCluster"`
		RelatedClusters   []string            `json:"relatedClusters"`
		FunnelStage       article.FunnelStage `json:"funnelStage"`
		TargetPersona     string              `json:"targetPersona"`
		ContentType       article.ContentType `json:"contentType"`
		MaxLinks          *int                `json:"maxLinks"`
		MinScore          float64             `json:"minScore"`
		ExcludeIDs        []int64             `json:"excludeIds"`
		UseClaudeAnalysis *bool               `json:"useClaudeAnalysis"`
		AutoInsert        bool                `json:"autoInsert"`
		StrictSilo        bool                `json:"strictSilo"`
		IncludeSEOMetrics *bool               `json:"includeSEOMetrics"`
		SkipCache         bool                `json:"skipCache"`
	}
	if err := s.readJSON(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if body.Content == "" {
		s.writeError(w, http.StatusBadRequest, "content is required", "")
		return
	}

	req := recommender.Request{
		Content:           body.Content,
		PostID:            body.PostID,
		Title:             body.Title,
		TopicCluster:      body.TopicCluster,
		RelatedClusters:   body.RelatedClusters,
		FunnelStage:       body.FunnelStage,
		TargetPersona:     body.TargetPersona,
		ContentType:       body.ContentType,
		MaxLinks:          5,
		MinScore:          body.MinScore,
		ExcludeIDs:        body.ExcludeIDs,
		UseClaudeAnalysis: true,
		AutoInsert:        body.AutoInsert,
		StrictSilo:        body.StrictSilo,
		IncludeSEOMetrics: true,
		SkipCache:         body.SkipCache,
	}
	if body.MaxLinks != nil {
		req.MaxLinks = *body.MaxLinks
	}
	if body.UseClaudeAnalysis != nil {
		req.UseClaudeAnalysis = *body.UseClaudeAnalysis
	}
	if body.IncludeSEOMetrics != nil {
		req.IncludeSEOMetrics = *body.IncludeSEOMetrics
	}

	resp, err := s.Recommender.Recommend(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "smart-link failed", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLinkAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required", "")
		return
	}
	var body struct {
		Content        string                   `json:"content"`
		ExistingLinks  []linkaudit.ExistingLink `json:"existingLinks"`
		PostID         int64                    `json:"postId"`
		Title          string                   `json:"title"`
		TopicCluster   string                   `json:"topicCluster"`
		MaxSuggestions int                      `json:"maxSuggestions"`
	}
	if err := s.readJSON(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if body.Content == "" {
		s.writeError(w, http.StatusBadRequest, "content is required", "")
		return
	}
	if body.MaxSuggestions == 0 {
		body.MaxSuggestions = 5
	}

	result, err := s.Auditor.Audit(r.Context(), linkaudit.Request{
		PostID:         body.PostID,
		Title:          body.Title,
		TopicCluster:   body.TopicCluster,
		Content:        body.Content,
		ExistingLinks:  body.ExistingLinks,
		MaxSuggestions: body.MaxSuggestions,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "link audit failed", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"postId":  body.PostID,
		"audit":   result,
	})
}

func (s *Server) handleMetaGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required", "")
		return
	}
	var body struct {
		Title                 string `json:"title"`
		Content               string `json:"content"`
		Summary               string `json:"summary"`
		TopicCluster          string `json:"topicCluster"`
		FocusKeyword          string `json:"focusKeyword"`
		IncludeRelatedKeywords bool  `json:"includeRelatedKeywords"`
		LinkAwareMeta         bool   `json:"linkAwareMeta"`
	}
	if err := s.readJSON(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if body.Title == "" || body.Content == "" {
		s.writeError(w, http.StatusBadRequest, "title and content are required", "")
		return
	}
	if s.LLM == nil {
		s.writeError(w, http.StatusServiceUnavailable, "llm provider not configured", "")
		return
	}

	meta, err := s.LLM.GenerateMeta(r.Context(), llm.MetaRequest{
		Title:          body.Title,
		Content:        body.Content,
		Summary:        body.Summary,
		TopicCluster:   body.TopicCluster,
		FocusKeyword:   body.FocusKeyword,
		IncludeRelated: body.IncludeRelatedKeywords,
		LinkAwareMeta:  body.LinkAwareMeta,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "meta-generate failed", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"meta":         map[string]string{"title": meta.Title, "description": meta.Description},
		"reasoning":    meta.Reasoning,
		"focusKeyword": meta.FocusKeyword,
		"keywords":     map[string][]string{"main": meta.MainKeywords, "semantic": meta.SemanticKeywords},
	})
}

func (s *Server) handleDismissOpportunity(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sourceID, err := strconv.ParseInt(r.URL.Query().Get("sourceId"), 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "sourceId is required", "")
			return
		}
		art, err := s.Catalog.Get(r.Context(), sourceID)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "unknown sourceId", "")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"action":   "list",
			"sourceId": sourceID,
			"dismissed": art.DismissedLinks,
		})

	case http.MethodPost, http.MethodDelete:
		var body struct {
			SourceID  int64    `json:"sourceId"`
			TargetID  int64    `json:"targetId"`
			TargetIDs []int64  `json:"targetIds"`
			Action    string   `json:"action"`
			Reason    string   `json:"reason"`
			Persist   *bool    `json:"persist"`
		}
		if err := s.readJSON(r, &body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		if body.SourceID == 0 {
			s.writeError(w, http.StatusBadRequest, "sourceId is required", "")
			return
		}
		action := seo.DismissAction(body.Action)
		if r.Method == http.MethodDelete {
			action = seo.ActionClear
		} else if action == "" {
			action = seo.ActionDismiss
		}
		persist := true
		if body.Persist != nil {
			persist = *body.Persist
		}
		targets := body.TargetIDs
		if body.TargetID != 0 {
			targets = append(targets, body.TargetID)
		}

		if err := s.SEO.Dismiss(r.Context(), body.SourceID, targets, action, body.Reason, persist); err != nil {
			s.writeError(w, http.StatusInternalServerError, "dismiss failed", err.Error())
			return
		}
		if s.EventLog != nil {
			for _, t := range targets {
				_ = s.EventLog.LogDismiss(body.SourceID, t, string(action), body.Reason)
			}
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"action":   action,
			"sourceId": body.SourceID,
		})

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (s *Server) handleSEOMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "GET or POST required", "")
		return
	}

	refreshCache := true
	includeOverused := true
	includePageRank := true
	includeContentType := true
	topOverusedLimit := 20

	if r.Method == http.MethodPost {
		var body struct {
			RefreshCache              *bool `json:"refreshCache"`
			IncludeOverusedAnchors    *bool `json:"includeOverusedAnchors"`
			IncludePageRankDistribution *bool `json:"includePageRankDistribution"`
			IncludeContentTypeBreakdown *bool `json:"includeContentTypeBreakdown"`
			TopOverusedLimit          *int  `json:"topOverusedLimit"`
		}
		if err := s.readJSON(r, &body); err == nil {
			if body.RefreshCache != nil {
				refreshCache = *body.RefreshCache
			}
			if body.IncludeOverusedAnchors != nil {
				includeOverused = *body.IncludeOverusedAnchors
			}
			if body.IncludePageRankDistribution != nil {
				includePageRank = *body.IncludePageRankDistribution
			}
			if body.IncludeContentTypeBreakdown != nil {
				includeContentType = *body.IncludeContentTypeBreakdown
			}
			if body.TopOverusedLimit != nil {
				topOverusedLimit = *body.TopOverusedLimit
			}
		}
	}

	if err := s.SEO.Refresh(r.Context(), refreshCache); err != nil {
		s.log("seo cache refresh failed, reusing last good cache: %v", err)
	}

	orphans := s.SEO.Orphans()
	criticalOrphans := s.SEO.CriticalOrphans()
	response := map[string]any{
		"success":   true,
		"timestamp": time.Now(),
		"health":    "ok",
		"summary": map[string]any{
			"anchorDiversity": map[string]float64{
				"exactMatch": s.SEO.AnchorTypeRatio(article.AnchorExactMatch),
				"branded":    s.SEO.AnchorTypeRatio(article.AnchorBranded),
				"generic":    s.SEO.AnchorTypeRatio(article.AnchorGeneric),
				"natural":    s.SEO.AnchorTypeRatio(article.AnchorNatural),
			},
			"linkProfile": map[string]any{
				"orphanCount":         len(orphans),
				"criticalOrphanCount": len(criticalOrphans),
			},
			"internalPageRank": "computed",
		},
		"recommendations": buildRecommendations(orphans, criticalOrphans, s.SEO.AnchorTypeRatio(article.AnchorExactMatch)),
	}

	if includeOverused {
		// Cache exposes per-text lookups (AnchorUseCount) but not an
		// enumeration of every anchor text seen, so there's nothing to
		// rank into a top-topOverusedLimit list yet.
		response["overusedAnchors"] = make([]any, 0, topOverusedLimit)[:0]
	}
	if includePageRank {
		response["pageRankDistribution"] = s.SEO.PageRankDistribution()
	}
	if includeContentType {
		response["contentTypeBreakdown"] = map[string]int{}
	}

	s.writeJSON(w, http.StatusOK, response)
}

func buildRecommendations(orphans, criticalOrphans []int64, exactMatchRatio float64) []string {
	var recs []string
	if len(criticalOrphans) > 0 {
		recs = append(recs, "link to critically orphaned articles (zero inbound links) first")
	} else if len(orphans) > 0 {
		recs = append(recs, "link to orphaned articles to improve internal PageRank distribution")
	}
	if exactMatchRatio > 0.3 {
		recs = append(recs, "exact-match anchor ratio is high; vary anchor phrasing to avoid over-optimization")
	}
	if recs == nil {
		recs = []string{}
	}
	return recs
}

func (s *Server) handleCatalogStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "GET required", "")
		return
	}

	articles, err := s.Catalog.ListAll(r.Context(), 0)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "catalog list failed", err.Error())
		return
	}

	clusterCounts := map[string]int{}
	funnelCounts := map[string]int{}
	personaCounts := map[string]int{}
	pages, posts, pillars := 0, 0, 0

	for _, a := range articles {
		clusterCounts[a.TopicCluster]++
		funnelCounts[string(a.FunnelStage)]++
		if a.TargetPersona != "" {
			personaCounts[a.TargetPersona]++
		}
		switch a.Content {
		case article.ContentPage:
			pages++
		default:
			posts++
		}
		if a.IsPillar {
			pillars++
		}
	}

	type clusterCount struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	clusters := make([]clusterCount, 0, len(clusterCounts))
	for name, count := range clusterCounts {
		clusters = append(clusters, clusterCount{Name: name, Count: count})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Count > clusters[j].Count })

	type personaCountEntry struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	personas := make([]personaCountEntry, 0, len(personaCounts))
	for name, count := range personaCounts {
		personas = append(personas, personaCountEntry{Name: name, Count: count})
	}
	sort.Slice(personas, func(i, j int) bool { return personas[i].Count > personas[j].Count })

	dimension := 0
	if s.Embedder != nil {
		dimension = s.Embedder.Dimensions()
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats": map[string]any{
			"totalVectorized": len(articles),
			"pages":           pages,
			"posts":           posts,
			"pillars":         pillars,
			"dimension":       dimension,
			"indexFullness":   0.0,
		},
		"clusters":     clusters,
		"funnelStages": funnelCounts,
		"personas":     personas,
		"articles":     summarizeArticles(articles),
	})
}

func summarizeArticles(articles []article.Article) []map[string]any {
	out := make([]map[string]any, 0, len(articles))
	for _, a := range articles {
		out = append(out, map[string]any{
			"postId":       a.PostID,
			"title":        a.Title,
			"topicCluster": a.TopicCluster,
			"contentType":  a.Content,
		})
	}
	return out
}
