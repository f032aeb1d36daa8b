// Package main provides the linkatlas CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"linkatlas/internal/anchor"
	"linkatlas/internal/article"
	"linkatlas/internal/catalog"
	"linkatlas/internal/config"
	"linkatlas/internal/embedding"
	"linkatlas/internal/entitygraph"
	"linkatlas/internal/eventlog"
	"linkatlas/internal/httpapi"
	"linkatlas/internal/linkaudit"
	"linkatlas/internal/llm"
	"linkatlas/internal/recommender"
	"linkatlas/internal/scoring"
	"linkatlas/internal/seo"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "linkatlas",
		Short: "linkatlas - internal-linking intelligence service",
		Long: `linkatlas maintains a vector+metadata catalog of a content site's
articles and serves ranked, verbatim-anchored internal link recommendations
against it, backed by a site-wide SEO cache tracking anchor usage, the link
graph, and PageRank.`,
		RunE: runServe,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("linkatlas v%s\n", version)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	rootCmd.AddCommand(serveCmd)

	syncCmd := &cobra.Command{
		Use:   "sync <articles.json>",
		Short: "Sync a JSON file of articles into the catalog and exit",
		Args:  cobra.ExactArgs(1),
		RunE:  runSync,
	}
	rootCmd.AddCommand(syncCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// wiring builds every component from cfg, shared by serve and sync.
func wiring(cfg *config.Config) (catalog.Catalog, *httpapi.Server, *eventlog.Logger, error) {
	cat, err := catalog.NewBadgerCatalog(catalog.BadgerOptions{DataDir: cfg.Providers.DataDir})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open catalog: %w", err)
	}

	embedder := embedding.New(embedding.DefaultConfig(cfg.Providers.OpenAIAPIKey))

	logger := log.New(os.Stdout, "", log.LstdFlags)
	llmClient := llm.New(llm.DefaultConfig(cfg.Providers.AnthropicAPIKey), logger)

	entities := entitygraph.New(cat)
	scorer := scoring.New(scoring.DefaultWeights())

	seoCache := seo.New(cat)
	if err := seoCache.LoadDismissed(context.Background(), cat); err != nil {
		logger.Printf("load dismissed links failed: %v", err)
	}

	lexicon := anchor.DefaultLexicon()
	if cfg.SEO.LexiconPath != "" {
		if loaded, err := anchor.LoadLexicon(cfg.SEO.LexiconPath); err != nil {
			logger.Printf("load lexicon %s failed, using defaults: %v", cfg.SEO.LexiconPath, err)
		} else {
			lexicon = loaded
		}
	}

	rec := recommender.New(cat, embedder, llmClient, entities, scorer, seoCache, lexicon)
	rec.SetResponseCache(cfg.Recommender.ResponseCacheSize, cfg.Recommender.ResponseCacheTTL)
	rec.Logger = logger

	auditor := linkaudit.New(cat, embedder, scorer)

	evLogConfig := eventlog.DefaultConfig()
	evLog, err := eventlog.NewLogger(evLogConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open event log: %w", err)
	}
	rec.EventLog = evLog

	server := httpapi.New(cfg, cat, embedder, llmClient, entities, seoCache, rec, auditor, lexicon, evLog)
	server.Logger = logger

	return cat, server, evLog, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	_, server, evLog, err := wiring(cfg)
	if err != nil {
		return err
	}
	defer evLog.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		fmt.Println("shutting down")
		return nil
	}
}

// syncArticle mirrors httpapi.SyncRequest's JSON shape, for the one-off
// file-driven sync command.
type syncArticle struct {
	PostID           int64    `json:"postId"`
	Title            string   `json:"title"`
	URL              string   `json:"url"`
	Content          string   `json:"content"`
	Slug             string   `json:"slug"`
	ContentType      string   `json:"contentType"`
	TopicCluster     string   `json:"topicCluster"`
	RelatedClusters  []string `json:"relatedClusters"`
	FunnelStage      string   `json:"funnelStage"`
	TargetPersona    string   `json:"targetPersona"`
	QualityScore     int      `json:"qualityScore"`
	IsPillar         bool     `json:"isPillar"`
	Summary          string   `json:"summary"`
	MainTopics       []string `json:"mainTopics"`
	SemanticKeywords []string `json:"semanticKeywords"`
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := config.LoadFromEnv()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	var articles []syncArticle
	if err := json.Unmarshal(data, &articles); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	cat, _, evLog, err := wiring(cfg)
	if err != nil {
		return err
	}
	defer evLog.Close()

	embedder := embedding.New(embedding.DefaultConfig(cfg.Providers.OpenAIAPIKey))
	llmClient := llm.New(llm.DefaultConfig(cfg.Providers.AnthropicAPIKey), log.New(os.Stdout, "", log.LstdFlags))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	succeeded, failed := 0, 0
	for _, a := range articles {
		analysis, analyzeErr := llmClient.AutoAnalyze(ctx, a.Title, a.Content)
		if analyzeErr != nil {
			fmt.Printf("auto-analyze failed for post %d: %v\n", a.PostID, analyzeErr)
		}
		summary := a.Summary
		if summary == "" {
			summary = analysis.Summary
		}
		vector, err := embedder.EmbedArticle(ctx, a.Title, summary, a.Content)
		if err != nil {
			fmt.Printf("embed failed for post %d: %v\n", a.PostID, err)
			failed++
			continue
		}

		art := article.Article{
			PostID:           a.PostID,
			Title:            a.Title,
			URL:              a.URL,
			Slug:             a.Slug,
			Content:          article.ContentType(a.ContentType),
			Summary:          summary,
			MainTopics:       a.MainTopics,
			SemanticKeywords: a.SemanticKeywords,
			TopicCluster:     a.TopicCluster,
			RelatedClusters:  a.RelatedClusters,
			FunnelStage:      article.FunnelStage(a.FunnelStage),
			TargetPersona:    a.TargetPersona,
			QualityScore:     a.QualityScore,
			IsPillar:         a.IsPillar,
			Embedding:        vector,
			UpdatedAt:        time.Now(),
		}
		art.Normalize()

		if err := cat.Upsert(ctx, art); err != nil {
			fmt.Printf("upsert failed for post %d: %v\n", a.PostID, err)
			failed++
			continue
		}
		succeeded++
	}

	fmt.Printf("synced %d articles (%d failed)\n", succeeded, failed)
	return nil
}
