package llm

import (
	"context"
	"fmt"
	"strings"
)

// Summary is the result of the summarize operation.
type Summary struct {
	Summary string `json:"summary"`
}

// Keywords is the result of the extract-keywords operation.
type Keywords struct {
	Keywords []string `json:"keywords"`
}

// Analysis is the result of auto-analyze / batch-analyze: the full set of
// classification fields catalog sync fills in when the caller omits them.
type Analysis struct {
	PostID           int64    `json:"postId,omitempty"`
	Summary          string   `json:"summary"`
	MainTopics       []string `json:"mainTopics"`
	SemanticKeywords []string `json:"semanticKeywords"`
	SuggestedAnchors []string `json:"suggestedAnchors"`
	Entities         []string `json:"entities"`
	TopicCluster     string   `json:"topicCluster"`
	FunnelStage      string   `json:"funnelStage"`
	QualityScore     int      `json:"qualityScore"`
}

// defaultAnalysis is the documented fallback when auto-analyze's reply
// can't be parsed: general cluster, unknown funnel stage, neutral quality.
func defaultAnalysis() Analysis {
	return Analysis{
		MainTopics:       []string{},
		SemanticKeywords: []string{},
		SuggestedAnchors: []string{},
		Entities:         []string{},
		TopicCluster:     "general",
		FunnelStage:      "unknown",
		QualityScore:     50,
	}
}

// MetaRequest carries the generate-meta operation's optional inputs.
type MetaRequest struct {
	Title           string
	Content         string
	Summary         string
	TopicCluster    string
	FocusKeyword    string
	IncludeRelated  bool
	LinkAwareMeta   bool
}

// Meta is the result of the generate-meta operation.
type Meta struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Reasoning         string   `json:"reasoning"`
	FocusKeyword      string   `json:"focusKeyword"`
	MainKeywords      []string `json:"mainKeywords"`
	SemanticKeywords  []string `json:"semanticKeywords"`
}

// AnchorCandidate is one target article select-anchors may choose an anchor
// for.
type AnchorCandidate struct {
	PostID int64
	Title  string
}

// SelectedAnchors maps each candidate's postId to the chosen anchor phrase.
// The caller (recommender) is responsible for validating each phrase occurs
// verbatim in sourceBody and dropping violators — this client only relays
// what the model said.
type SelectedAnchors struct {
	Anchors map[int64]string `json:"anchors"`
}

// BatchArticle is one article in a batch-analyze request.
type BatchArticle struct {
	PostID int64
	Title  string
	Body   string
}

// RerankCandidate is one (source, candidate) pair for cross-encoder
// reranking.
type RerankCandidate struct {
	PostID int64
	Text   string
}

// RerankResult is a reranked candidate's relevance score, 0-1.
type RerankResult struct {
	PostID int64
	Score  float64
}

func (c *HTTPClient) Summarize(ctx context.Context, title, body string) (Summary, error) {
	prompt := fmt.Sprintf(
		"Summarize this article in 2-3 sentences. Respond with JSON only: {\"summary\": \"...\"}.\n\nTitle: %s\n\nBody:\n%s",
		title, truncate(body, 4000))
	reply, err := c.complete(ctx, prompt, c.config.ShortTimeout)
	if err != nil {
		return Summary{}, err
	}
	var out Summary
	if parseErr := c.parseJSONOrLog("summarize", reply, &out); parseErr != nil {
		return Summary{Summary: ""}, nil
	}
	return out, nil
}

func (c *HTTPClient) ExtractKeywords(ctx context.Context, title, body string) (Keywords, error) {
	prompt := fmt.Sprintf(
		"Extract 5-10 semantic keywords for this article. Respond with JSON only: {\"keywords\": [\"...\"]}.\n\nTitle: %s\n\nBody:\n%s",
		title, truncate(body, 4000))
	reply, err := c.complete(ctx, prompt, c.config.ShortTimeout)
	if err != nil {
		return Keywords{}, err
	}
	var out Keywords
	if parseErr := c.parseJSONOrLog("extract-keywords", reply, &out); parseErr != nil {
		return Keywords{Keywords: []string{}}, nil
	}
	return out, nil
}

func (c *HTTPClient) AutoAnalyze(ctx context.Context, title, body string) (Analysis, error) {
	prompt := autoAnalyzePrompt(title, body)
	reply, err := c.complete(ctx, prompt, c.config.ShortTimeout)
	if err != nil {
		return defaultAnalysis(), nil
	}
	out := defaultAnalysis()
	if parseErr := c.parseJSONOrLog("auto-analyze", reply, &out); parseErr != nil {
		return defaultAnalysis(), nil
	}
	return out, nil
}

func autoAnalyzePrompt(title, body string) string {
	return fmt.Sprintf(
		`Analyze this article and respond with JSON only:
{"summary": "...", "mainTopics": ["..."], "semanticKeywords": ["..."], "suggestedAnchors": ["..."], "entities": ["..."], "topicCluster": "...", "funnelStage": "awareness|consideration|decision", "qualityScore": 1-100}

Title: %s

Body:
%s`, title, truncate(body, 6000))
}

func (c *HTTPClient) GenerateMeta(ctx context.Context, req MetaRequest) (Meta, error) {
	prompt := fmt.Sprintf(
		`Write SEO meta title (max 60 chars) and description (max 155 chars) for this article. Respond with JSON only:
{"title": "...", "description": "...", "reasoning": "...", "focusKeyword": "...", "mainKeywords": ["..."], "semanticKeywords": ["..."]}

Title: %s
Focus keyword: %s
Summary: %s

Body:
%s`, req.Title, req.FocusKeyword, req.Summary, truncate(req.Content, 3000))

	reply, err := c.complete(ctx, prompt, c.config.ShortTimeout)
	if err != nil {
		return Meta{Title: req.Title, FocusKeyword: req.FocusKeyword}, nil
	}
	out := Meta{Title: req.Title, FocusKeyword: req.FocusKeyword}
	if parseErr := c.parseJSONOrLog("generate-meta", reply, &out); parseErr != nil {
		return Meta{Title: req.Title, FocusKeyword: req.FocusKeyword}, nil
	}
	return out, nil
}

// SelectAnchors requires the model to emit only phrases verbatim present in
// sourceBody; per spec §4.B the caller validates and silently drops
// violators, so this just relays the model's raw choices.
func (c *HTTPClient) SelectAnchors(ctx context.Context, sourceBody string, candidates []AnchorCandidate) (SelectedAnchors, error) {
	var b strings.Builder
	for _, cand := range candidates {
		fmt.Fprintf(&b, "- postId %d: %s\n", cand.PostID, cand.Title)
	}
	prompt := fmt.Sprintf(
		`For each target below, choose a short anchor phrase that occurs VERBATIM in the source text. Never invent phrasing. Respond with JSON only: {"anchors": {"<postId>": "<verbatim phrase>"}}.

Source text:
%s

Targets:
%s`, truncate(sourceBody, 4000), b.String())

	reply, err := c.complete(ctx, prompt, c.config.ShortTimeout)
	if err != nil {
		return SelectedAnchors{Anchors: map[int64]string{}}, nil
	}
	out := SelectedAnchors{Anchors: map[int64]string{}}
	if parseErr := c.parseJSONOrLog("select-anchors", reply, &out); parseErr != nil {
		return SelectedAnchors{Anchors: map[int64]string{}}, nil
	}
	if out.Anchors == nil {
		out.Anchors = map[int64]string{}
	}
	return out, nil
}

func (c *HTTPClient) ExtractAnchorSuggestions(ctx context.Context, title, body string) ([]string, error) {
	prompt := fmt.Sprintf(
		"List 3-8 phrases from this article that would read naturally as a link's anchor text when OTHER articles link TO it. Respond with JSON only: {\"anchors\": [\"...\"]}.\n\nTitle: %s\n\nBody:\n%s",
		title, truncate(body, 4000))
	reply, err := c.complete(ctx, prompt, c.config.ShortTimeout)
	if err != nil {
		return []string{}, nil
	}
	var out struct {
		Anchors []string `json:"anchors"`
	}
	if parseErr := c.parseJSONOrLog("extract-anchor-suggestions", reply, &out); parseErr != nil {
		return []string{}, nil
	}
	return out.Anchors, nil
}

func (c *HTTPClient) ExtractQuestions(ctx context.Context, title, body string) ([]string, error) {
	prompt := fmt.Sprintf(
		"List the reader questions this article answers. Respond with JSON only: {\"questions\": [\"...\"]}.\n\nTitle: %s\n\nBody:\n%s",
		title, truncate(body, 4000))
	reply, err := c.complete(ctx, prompt, c.config.ShortTimeout)
	if err != nil {
		return []string{}, nil
	}
	var out struct {
		Questions []string `json:"questions"`
	}
	if parseErr := c.parseJSONOrLog("extract-questions", reply, &out); parseErr != nil {
		return []string{}, nil
	}
	return out.Questions, nil
}

const batchAnalyzeChunkSize = 10

// BatchAnalyze analyzes up to 10 articles per call per spec §4.B; larger
// inputs are chunked into sequential calls.
func (c *HTTPClient) BatchAnalyze(ctx context.Context, articles []BatchArticle) ([]Analysis, error) {
	results := make([]Analysis, 0, len(articles))
	for start := 0; start < len(articles); start += batchAnalyzeChunkSize {
		end := start + batchAnalyzeChunkSize
		if end > len(articles) {
			end = len(articles)
		}
		chunk := articles[start:end]

		var b strings.Builder
		for _, a := range chunk {
			fmt.Fprintf(&b, "### postId %d: %s\n%s\n\n", a.PostID, a.Title, truncate(a.Body, 2000))
		}
		prompt := fmt.Sprintf(
			`Analyze each article below. Respond with JSON only: {"articles": [{"postId": ..., "summary": "...", "mainTopics": ["..."], "semanticKeywords": ["..."], "suggestedAnchors": ["..."], "entities": ["..."], "topicCluster": "...", "funnelStage": "awareness|consideration|decision", "qualityScore": 1-100}]}

%s`, b.String())

		reply, err := c.complete(ctx, prompt, c.config.LongTimeout)
		if err != nil {
			for _, a := range chunk {
				d := defaultAnalysis()
				d.PostID = a.PostID
				results = append(results, d)
			}
			continue
		}

		var parsed struct {
			Articles []Analysis `json:"articles"`
		}
		if parseErr := c.parseJSONOrLog("batch-analyze", reply, &parsed); parseErr != nil {
			for _, a := range chunk {
				d := defaultAnalysis()
				d.PostID = a.PostID
				results = append(results, d)
			}
			continue
		}
		byID := make(map[int64]Analysis, len(parsed.Articles))
		for _, a := range parsed.Articles {
			byID[a.PostID] = a
		}
		for _, a := range chunk {
			if analysis, ok := byID[a.PostID]; ok {
				results = append(results, analysis)
			} else {
				d := defaultAnalysis()
				d.PostID = a.PostID
				results = append(results, d)
			}
		}
	}
	return results, nil
}

// CrossEncoderRerank scores a batch of (source, candidate) pairs on a 0-1
// relevance scale per spec §4.B. On any failure it falls back to a neutral
// 0.5 score for every candidate rather than failing the pipeline.
func (c *HTTPClient) CrossEncoderRerank(ctx context.Context, source string, candidates []RerankCandidate) ([]RerankResult, error) {
	if len(candidates) == 0 {
		return []RerankResult{}, nil
	}

	var b strings.Builder
	for _, cand := range candidates {
		fmt.Fprintf(&b, "- postId %d: %s\n", cand.PostID, truncate(cand.Text, 500))
	}
	prompt := fmt.Sprintf(
		`Rate how relevant each candidate is to the source text on a 0.0-1.0 scale. Respond with JSON only: {"scores": {"<postId>": 0.0}}.

Source:
%s

Candidates:
%s`, truncate(source, 2000), b.String())

	reply, err := c.complete(ctx, prompt, c.config.ShortTimeout)
	if err != nil {
		return neutralRerank(candidates), nil
	}
	var parsed struct {
		Scores map[string]float64 `json:"scores"`
	}
	if parseErr := c.parseJSONOrLog("cross-encoder-rerank", reply, &parsed); parseErr != nil {
		return neutralRerank(candidates), nil
	}

	results := make([]RerankResult, 0, len(candidates))
	for _, cand := range candidates {
		score, ok := parsed.Scores[fmt.Sprintf("%d", cand.PostID)]
		if !ok {
			score = 0.5
		}
		results = append(results, RerankResult{PostID: cand.PostID, Score: score})
	}
	return results, nil
}

func neutralRerank(candidates []RerankCandidate) []RerankResult {
	results := make([]RerankResult, len(candidates))
	for i, cand := range candidates {
		results[i] = RerankResult{PostID: cand.PostID, Score: 0.5}
	}
	return results
}

func truncate(s string, maxRunes int) string {
	if len(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
