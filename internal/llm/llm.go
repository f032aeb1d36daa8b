// Package llm wraps the LLM provider (spec component B): a black-box
// messaging endpoint reached over HTTP. Every operation sends a typed
// prompt, parses the outermost balanced JSON object or array out of the
// reply (tolerating markdown fences and prose framing), and falls back to a
// documented default when parsing fails rather than failing the request —
// per spec §4.B and §7 "upstream malformed" never kills the pipeline.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client offers the typed operations spec §2 lists for component B.
type Client interface {
	Summarize(ctx context.Context, title, body string) (Summary, error)
	ExtractKeywords(ctx context.Context, title, body string) (Keywords, error)
	AutoAnalyze(ctx context.Context, title, body string) (Analysis, error)
	GenerateMeta(ctx context.Context, req MetaRequest) (Meta, error)
	SelectAnchors(ctx context.Context, sourceBody string, candidates []AnchorCandidate) (SelectedAnchors, error)
	ExtractAnchorSuggestions(ctx context.Context, title, body string) ([]string, error)
	ExtractQuestions(ctx context.Context, title, body string) ([]string, error)
	BatchAnalyze(ctx context.Context, articles []BatchArticle) ([]Analysis, error)
	CrossEncoderRerank(ctx context.Context, source string, candidates []RerankCandidate) ([]RerankResult, error)
}

// Config configures the HTTP client against the messaging endpoint.
// ANTHROPIC_API_KEY per spec §6; the endpoint itself is vendor-neutral.
type Config struct {
	APIURL       string
	APIKey       string
	Model        string
	ShortTimeout time.Duration // embedding/LLM short calls, spec §5 recommends 60s
	LongTimeout  time.Duration // batch-analyze / long calls, spec §5 recommends 300s
	MaxRetries   int           // single-shot LLM calls retried up to 3 tries
}

// DefaultConfig returns the timeouts and retry budget spec §5/§7 recommend.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIURL:       "https://api.anthropic.com/v1/messages",
		APIKey:       apiKey,
		Model:        "claude-3-5-sonnet-latest",
		ShortTimeout: 60 * time.Second,
		LongTimeout:  300 * time.Second,
		MaxRetries:   3,
	}
}

// HTTPClient is the default Client, a typed wrapper over an HTTP messaging
// endpoint — the same "POST prompt, parse typed reply" shape the cross
// encoder in the reference reranker uses, generalized to several operations.
type HTTPClient struct {
	config Config
	client *http.Client
	logger *log.Logger
}

// New builds an HTTPClient. logger may be nil to discard parse-failure logs.
func New(cfg Config, logger *log.Logger) *HTTPClient {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &HTTPClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.LongTimeout},
		logger: logger,
	}
}

type messageRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// complete sends prompt to the messaging endpoint and returns the raw reply
// text. It makes up to MaxRetries attempts in all, waiting 1s before the
// second and doubling the wait before each later one (1s and 2s with the
// default of 3). Every failed attempt is retried, whatever its status.
func (c *HTTPClient) complete(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	var lastErr error
	backoff := time.Second
	retries := c.config.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		text, err := c.completeOnce(ctx, prompt, timeout)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("llm: exhausted retries: %w", lastErr)
}

func (c *HTTPClient) completeOnce(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqBody, err := json.Marshal(messageRequest{
		Model:    c.config.Model,
		Messages: []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.config.APIURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.config.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("llm: provider returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("llm: provider returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("llm: empty response content")
	}
	return parsed.Content[0].Text, nil
}

// parseJSONOrLog extracts and unmarshals the outermost JSON value from
// reply into dst. On any failure it logs and returns the error; callers
// apply their own documented default rather than propagating it.
func (c *HTTPClient) parseJSONOrLog(op, reply string, dst any) error {
	jsonText, err := ExtractJSON(reply)
	if err != nil {
		c.logger.Printf("llm: %s: no JSON in reply: %v", op, err)
		return err
	}
	if err := json.Unmarshal([]byte(jsonText), dst); err != nil {
		c.logger.Printf("llm: %s: malformed JSON in reply: %v", op, err)
		return err
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
