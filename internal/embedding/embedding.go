// Package embedding wraps the embedding provider (spec component A): an
// external black box that maps text to a fixed-dimension float vector. The
// client normalizes every result to unit length and composes article-level
// input (title + summary + body) with a documented weighting so the
// provider never has to know about articles.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"linkatlas/internal/mathx"
)

// Client generates unit-norm vector embeddings from text.
//
// Implementations must be safe for concurrent use from multiple goroutines;
// the recommender calls Embed from several retrieval goroutines at once.
type Client interface {
	// Embed returns a unit-norm vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedArticle composes title/summary/body with the article weighting
	// and returns a unit-norm vector.
	EmbedArticle(ctx context.Context, title, summary, body string) ([]float32, error)
	// Dimensions is the expected vector length.
	Dimensions() int
}

// Config configures the HTTP embedding client. The provider speaks an
// OpenAI-compatible embeddings endpoint; OPENAI_API_KEY per spec §6.
type Config struct {
	APIURL     string
	APIPath    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration

	// BodyTokenBudget caps how many body words are sent after the title and
	// summary, approximating the provider's token budget without needing a
	// tokenizer dependency.
	BodyTokenBudget int
}

// DefaultConfig returns sane defaults for an OpenAI-compatible provider.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIURL:          "https://api.openai.com",
		APIPath:         "/v1/embeddings",
		APIKey:          apiKey,
		Model:           "text-embedding-3-small",
		Dimensions:      1536,
		Timeout:         60 * time.Second,
		BodyTokenBudget: 2000,
	}
}

// HTTPClient is the default Client implementation.
type HTTPClient struct {
	config Config
	client *http.Client
}

// New builds an HTTPClient from cfg.
func New(cfg Config) *HTTPClient {
	return &HTTPClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed generates embedding for a single, already-composed string and
// normalizes it to unit length.
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(embedRequest{Model: c.config.Model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	url := c.config.APIURL + c.config.APIPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding: provider returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding: provider returned no vectors")
	}

	return mathx.NormalizeUnit(parsed.Data[0].Embedding), nil
}

// EmbedArticle composes title + summary + body with the title emphasized
// (repeated) and the body truncated to BodyTokenBudget words, then embeds
// the result. This is the only place article structure leaks into the
// embedding call; the provider itself sees plain text.
func (c *HTTPClient) EmbedArticle(ctx context.Context, title, summary, body string) ([]float32, error) {
	return c.Embed(ctx, ComposeArticleText(title, summary, body, c.config.BodyTokenBudget))
}

// Dimensions returns the configured vector length.
func (c *HTTPClient) Dimensions() int {
	return c.config.Dimensions
}

// ComposeArticleText builds the provider input string for an article: the
// title is repeated to weight it above the body, followed by the summary,
// followed by the body truncated to tokenBudget whitespace-delimited words.
func ComposeArticleText(title, summary, body string, tokenBudget int) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString(". ")
	b.WriteString(title)
	b.WriteString("\n")
	if summary != "" {
		b.WriteString(summary)
		b.WriteString("\n")
	}
	b.WriteString(truncateWords(body, tokenBudget))
	return b.String()
}

func truncateWords(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= limit {
		return text
	}
	return strings.Join(words[:limit], " ")
}

var _ Client = (*HTTPClient)(nil)
