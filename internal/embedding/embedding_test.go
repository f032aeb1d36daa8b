package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComposeArticleText_TitleWeightedAndTruncated(t *testing.T) {
	body := ""
	for i := 0; i < 50; i++ {
		body += "word "
	}
	text := ComposeArticleText("My Title", "A summary.", body, 10)

	require.Contains(t, text, "My Title. My Title")
	require.Contains(t, text, "A summary.")

	wordsInText := 0
	for _, r := range text {
		if r == ' ' {
			wordsInText++
		}
	}
	require.Less(t, wordsInText, 60, "body should be truncated to the token budget")
}

func TestComposeArticleText_NoSummary(t *testing.T) {
	text := ComposeArticleText("Title", "", "body text", 100)
	require.NotContains(t, text, "\n\n\n")
}

func TestHTTPClient_Embed_NormalizesAndCallsProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "hello", req.Input)

		resp := embedResponse{}
		resp.Data = append(resp.Data, struct {
			Embedding []float32 `json:"embedding"`
		}{Embedding: []float32{3, 4, 0}})
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	cfg := DefaultConfig("test-key")
	cfg.APIURL = srv.URL
	cfg.APIPath = "/v1/embeddings"
	client := New(cfg)

	vec, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, vec, 3)

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestHTTPClient_Embed_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	cfg := DefaultConfig("k")
	cfg.APIURL = srv.URL
	client := New(cfg)

	_, err := client.Embed(context.Background(), "x")
	require.Error(t, err)
}
