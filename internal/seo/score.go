package seo

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"linkatlas/internal/anchor"
	"linkatlas/internal/article"
	"linkatlas/internal/mathx"
)

// ScoreInput carries everything the per-link composite SEO score needs,
// per spec §4.E "Per-link composite SEO score".
type ScoreInput struct {
	SourceID       int64
	SourceType     article.ContentType
	TargetID       int64
	Target         ArticleMeta
	AnchorText     string
	SourceHTML     string
	ExistingLinks  map[int64]bool // targetIds the source already links to
}

// ScoreBreakdown exposes every sub-score plus the normalized total, for the
// response's SEO metrics surface.
type ScoreBreakdown struct {
	Allowed          bool    `json:"allowed"`
	AnchorDiversity  float64 `json:"anchorDiversity"`
	AnchorRatio      float64 `json:"anchorRatio"`
	KeywordAlignment float64 `json:"keywordAlignment"`
	LinkPosition     float64 `json:"linkPosition"`
	FirstLink        float64 `json:"firstLink"`
	Reciprocal       float64 `json:"reciprocal"`
	PageRank         float64 `json:"pageRank"`
	RelevanceDecay   float64 `json:"relevanceDecay"`
	ContextQuality   float64 `json:"contextQuality"`
	TotalSEOScore    float64 `json:"totalSEOScore"`
}

// rawScoreMin/Max bound the pre-normalization sum per spec §4.E: -15..180.
const (
	rawScoreMin = -15.0
	rawScoreMax = 180.0
)

// Score computes the per-link composite SEO score for in. lex supplies the
// stem/synonym tables the keyword-alignment step uses.
func (c *Cache) Score(in ScoreInput, lex anchor.Lexicon) ScoreBreakdown {
	if in.SourceType == article.ContentPage {
		return ScoreBreakdown{Allowed: false, TotalSEOScore: -999}
	}

	b := ScoreBreakdown{Allowed: true}
	b.AnchorDiversity = anchorDiversityScore(c.AnchorUseCount(in.AnchorText))
	anchorType := ClassifyAnchor(in.AnchorText, in.Target.Title)
	b.AnchorRatio = c.anchorRatioScore(anchorType)
	b.KeywordAlignment = keywordAlignmentScore(in.AnchorText, in.Target, lex)
	b.LinkPosition = linkPositionScore(in.SourceHTML, in.AnchorText)
	b.FirstLink = c.firstLinkScore(in.SourceID, in.TargetID, in.AnchorText, in.ExistingLinks)
	b.Reciprocal = c.reciprocalScore(in.SourceID, in.TargetID)
	b.PageRank = c.pageRankScore(in.SourceID, in.TargetID, in.Target.TopicCluster)
	b.RelevanceDecay = relevanceDecayScore(in.Target.UpdatedAt)
	b.ContextQuality = contextQualityScore(in.SourceHTML, in.AnchorText, in.Target)

	raw := b.AnchorDiversity + b.AnchorRatio + b.KeywordAlignment + b.LinkPosition +
		b.FirstLink + b.Reciprocal + b.PageRank + b.RelevanceDecay + b.ContextQuality
	b.TotalSEOScore = mathx.MinMax(mathx.Clamp(raw, rawScoreMin, rawScoreMax), rawScoreMin, rawScoreMax, 0, 100)
	return b
}

func anchorDiversityScore(useCount int) float64 {
	switch {
	case useCount == 0:
		return 30
	case useCount == 1:
		return 28
	case useCount == 2:
		return 25
	case useCount <= 5:
		return 20
	case useCount <= 10:
		return 10
	default:
		return 0
	}
}

func (c *Cache) anchorRatioScore(t article.AnchorType) float64 {
	ratio := c.AnchorTypeRatio(t)
	switch t {
	case article.AnchorExactMatch:
		if ratio > 0.40 {
			return 4
		}
		return 14
	case article.AnchorGeneric:
		if ratio > 0.10 {
			return 2
		}
		return 10
	case article.AnchorNatural, article.AnchorBranded:
		return 20
	case article.AnchorPartialMatch:
		return 16
	case article.AnchorNakedURL:
		return 6
	default:
		return 12
	}
}

var genericAnchorPhrases = map[string]bool{
	"click here": true, "read more": true, "learn more": true,
	"this article": true, "this post": true, "find out more": true,
}

// ClassifyAnchor buckets an anchor phrase by how it reads against the
// target's title, shared with the recommender's auto-insert step.
func ClassifyAnchor(anchorText, targetTitle string) article.AnchorType {
	lower := strings.ToLower(strings.TrimSpace(anchorText))
	switch {
	case strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "www."):
		return article.AnchorNakedURL
	case genericAnchorPhrases[lower]:
		return article.AnchorGeneric
	case lower == strings.ToLower(strings.TrimSpace(targetTitle)):
		return article.AnchorExactMatch
	case targetTitle != "" && strings.Contains(strings.ToLower(targetTitle), lower):
		return article.AnchorPartialMatch
	default:
		return article.AnchorNatural
	}
}

func keywordAlignmentScore(anchorText string, target ArticleMeta, lex anchor.Lexicon) float64 {
	anchorWords := strings.Fields(strings.ToLower(anchorText))
	if len(anchorWords) == 0 {
		return 0
	}

	targetTerms := make(map[string]bool)
	addTerms := func(terms ...string) {
		for _, term := range terms {
			for _, w := range strings.Fields(strings.ToLower(term)) {
				targetTerms[w] = true
			}
		}
	}
	addTerms(target.Title, target.TopicCluster)
	addTerms(target.MainTopics...)
	addTerms(target.SemanticKeywords...)

	var matched float64
	for _, w := range anchorWords {
		if targetTerms[w] {
			matched += 1.0
			continue
		}
		stem := lex.Stem(w)
		if targetTerms[stem] {
			matched += 0.8
			continue
		}
		matchedSynonym := false
		for _, syn := range lex.Expand(w) {
			if targetTerms[syn] {
				matched += 0.8
				matchedSynonym = true
				break
			}
		}
		_ = matchedSynonym
	}

	ratio := matched / float64(len(anchorWords))
	return mathx.Clamp(ratio, 0, 1) * 25
}

// linkPositionScore implements spec §4.E step 5: semantic positions
// (heading/list/blockquote) override the numeric percentile bucket. It
// looks for anchorText inside the source HTML's structural elements using
// goquery, falling back to a percentile-of-offset bucket in plaintext.
func linkPositionScore(sourceHTML, anchorText string) float64 {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sourceHTML))
	if err == nil {
		lowerAnchor := strings.ToLower(anchorText)
		found := 0.0
		doc.Find("h1,h2,h3,h4,h5,h6").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if strings.Contains(strings.ToLower(s.Text()), lowerAnchor) {
				found = 25
				return false
			}
			return true
		})
		if found > 0 {
			return found
		}
		doc.Find("li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if strings.Contains(strings.ToLower(s.Text()), lowerAnchor) {
				found = 22
				return false
			}
			return true
		})
		if found > 0 {
			return found
		}
		doc.Find("blockquote,.callout").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if strings.Contains(strings.ToLower(s.Text()), lowerAnchor) {
				found = 20
				return false
			}
			return true
		})
		if found > 0 {
			return found
		}
	}

	plain, err := anchor.PlainText(sourceHTML)
	if err != nil || len(plain) == 0 {
		return 7
	}
	idx := strings.Index(strings.ToLower(plain), strings.ToLower(anchorText))
	if idx < 0 {
		return 7
	}
	percentile := float64(idx) / float64(len(plain)) * 100
	switch {
	case percentile <= 5:
		return 20
	case percentile <= 10:
		return 19
	case percentile <= 20:
		return 17
	case percentile <= 35:
		return 15
	case percentile <= 50:
		return 13
	case percentile <= 65:
		return 11
	case percentile <= 85:
		return 9
	default:
		return 7
	}
}

func (c *Cache) firstLinkScore(sourceID, targetID int64, anchorText string, existingLinks map[int64]bool) float64 {
	if existingLinks[targetID] || c.LinksTo(sourceID, targetID) {
		return 0
	}
	_, firstAnchor, hasFirst := c.FirstLink(targetID)
	if !hasFirst {
		return 15
	}
	if strings.EqualFold(firstAnchor, anchorText) {
		return 12
	}
	return 8
}

func (c *Cache) reciprocalScore(sourceID, targetID int64) float64 {
	if c.LinksTo(targetID, sourceID) {
		return -15
	}
	if c.IsReciprocal(sourceID, targetID) {
		return -10
	}
	return 0
}

func (c *Cache) pageRankScore(sourceID, targetID int64, cluster string) float64 {
	sourceRank := c.GlobalRank(sourceID)
	targetRank := c.GlobalRank(targetID)

	var base float64
	switch {
	case sourceRank >= 70 && targetRank < 30:
		base = 20
	case sourceRank >= 40:
		base = 15
	case targetRank >= 70:
		base = 10
	default:
		base = 5
	}

	if cluster != "" {
		sourceTopicRank := c.TopicRank(cluster, sourceID)
		targetTopicRank := c.TopicRank(cluster, targetID)
		if sourceTopicRank >= 70 && targetTopicRank < 30 {
			base += 5
		}
	}
	return base
}

func relevanceDecayScore(updatedAt time.Time) float64 {
	if updatedAt.IsZero() {
		return 5
	}
	days := time.Since(updatedAt).Hours() / 24
	switch {
	case days <= 30:
		return 15
	case days <= 90:
		return 12
	case days <= 180:
		return 10
	case days <= 365:
		return 7
	default:
		return 5
	}
}

var boilerplatePhrases = []string{"click here", "read more", "learn more", "for more information"}
var actionWords = []string{"discover", "learn", "explore", "see", "read", "check out", "find"}

// contextQualityScore inspects +/-100 chars around anchorText in the
// plaintext source for topic-word density, boilerplate phrases (penalty),
// and an action-word prefix (bonus), per spec §4.E step 10.
func contextQualityScore(sourceHTML, anchorText string, target ArticleMeta) float64 {
	plain, err := anchor.PlainText(sourceHTML)
	if err != nil || plain == "" {
		return 10
	}
	lowerPlain := strings.ToLower(plain)
	idx := strings.Index(lowerPlain, strings.ToLower(anchorText))
	if idx < 0 {
		return 10
	}

	start := idx - 100
	if start < 0 {
		start = 0
	}
	end := idx + len(anchorText) + 100
	if end > len(plain) {
		end = len(plain)
	}
	window := strings.ToLower(plain[start:end])

	score := 12.0

	topicTerms := make(map[string]bool)
	for _, term := range append(append([]string{}, target.MainTopics...), target.SemanticKeywords...) {
		for _, w := range strings.Fields(strings.ToLower(term)) {
			topicTerms[w] = true
		}
	}
	density := 0
	for _, w := range strings.Fields(window) {
		if topicTerms[w] {
			density++
		}
	}
	score += mathx.Clamp(float64(density)*2, 0, 8)

	for _, phrase := range boilerplatePhrases {
		if strings.Contains(window, phrase) {
			score -= 5
			break
		}
	}

	prefixStart := start
	prefixEnd := idx
	if prefixEnd > prefixStart {
		prefix := strings.ToLower(plain[prefixStart:prefixEnd])
		for _, word := range actionWords {
			if strings.Contains(prefix, word) {
				score += 5
				break
			}
		}
	}

	return mathx.Clamp(score, 0, 25)
}
