package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := messageResponse{Content: []struct {
			Text string `json:"text"`
		}{{Text: reply}}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestClient(t *testing.T, reply string) *HTTPClient {
	t.Helper()
	srv := newTestServer(t, reply)
	t.Cleanup(srv.Close)
	cfg := DefaultConfig("test-key")
	cfg.APIURL = srv.URL
	cfg.MaxRetries = 1
	return New(cfg, nil)
}

func TestSummarize_ParsesJSONReply(t *testing.T) {
	client := newTestClient(t, `{"summary": "a short summary"}`)
	out, err := client.Summarize(context.Background(), "Title", "body text")
	require.NoError(t, err)
	require.Equal(t, "a short summary", out.Summary)
}

func TestSummarize_FallsBackOnMalformedReply(t *testing.T) {
	client := newTestClient(t, "not json at all")
	out, err := client.Summarize(context.Background(), "Title", "body")
	require.NoError(t, err, "malformed reply must not fail the request")
	require.Equal(t, "", out.Summary)
}

func TestAutoAnalyze_DefaultsOnMalformedReply(t *testing.T) {
	client := newTestClient(t, "I couldn't analyze that.")
	out, err := client.AutoAnalyze(context.Background(), "Title", "body")
	require.NoError(t, err)
	require.Equal(t, "general", out.TopicCluster)
	require.Equal(t, "unknown", out.FunnelStage)
	require.Equal(t, 50, out.QualityScore)
	require.Empty(t, out.MainTopics)
}

func TestAutoAnalyze_ParsesFullReply(t *testing.T) {
	client := newTestClient(t, `{"summary":"s","mainTopics":["a"],"semanticKeywords":["b"],"suggestedAnchors":["c"],"entities":["d"],"topicCluster":"tech","funnelStage":"decision","qualityScore":80}`)
	out, err := client.AutoAnalyze(context.Background(), "Title", "body")
	require.NoError(t, err)
	require.Equal(t, "tech", out.TopicCluster)
	require.Equal(t, "decision", out.FunnelStage)
	require.Equal(t, 80, out.QualityScore)
}

func TestSelectAnchors_DefaultsToEmptyMapOnFailure(t *testing.T) {
	client := newTestClient(t, "no anchors here")
	out, err := client.SelectAnchors(context.Background(), "source text", []AnchorCandidate{{PostID: 1, Title: "T"}})
	require.NoError(t, err)
	require.NotNil(t, out.Anchors)
	require.Empty(t, out.Anchors)
}

func TestSelectAnchors_ParsesAnchorMap(t *testing.T) {
	client := newTestClient(t, `{"anchors": {"1": "exact phrase"}}`)
	out, err := client.SelectAnchors(context.Background(), "source", []AnchorCandidate{{PostID: 1, Title: "T"}})
	require.NoError(t, err)
	require.Equal(t, "exact phrase", out.Anchors[1])
}

func TestCrossEncoderRerank_NeutralFallback(t *testing.T) {
	client := newTestClient(t, "garbled reply")
	results, err := client.CrossEncoderRerank(context.Background(), "source", []RerankCandidate{{PostID: 1, Text: "x"}, {PostID: 2, Text: "y"}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.Equal(t, 0.5, r.Score)
	}
}

func TestCrossEncoderRerank_EmptyCandidates(t *testing.T) {
	client := newTestClient(t, "")
	results, err := client.CrossEncoderRerank(context.Background(), "source", nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestBatchAnalyze_DefaultsMissing(t *testing.T) {
	client := newTestClient(t, `{"articles": [{"postId": 1, "topicCluster": "tech", "funnelStage": "awareness", "qualityScore": 70}]}`)
	articles := []BatchArticle{{PostID: 1, Title: "A", Body: "b"}, {PostID: 2, Title: "B", Body: "c"}}
	out, err := client.BatchAnalyze(context.Background(), articles)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "tech", out[0].TopicCluster)
	require.Equal(t, "general", out[1].TopicCluster, "missing article falls back to default analysis")
}

func TestExtractAnchorSuggestions_EmptyOnFailure(t *testing.T) {
	client := newTestClient(t, "nope")
	out, err := client.ExtractAnchorSuggestions(context.Background(), "T", "b")
	require.NoError(t, err)
	require.Empty(t, out)
}
