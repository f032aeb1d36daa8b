// Package article defines the Article entity shared by every subsystem:
// the vector catalog persists it, the scorers read it, the recommender
// assembles proposals from it.
package article

import "time"

// ContentType distinguishes a blog entry from a stable cornerstone page.
type ContentType string

const (
	ContentPost ContentType = "post"
	ContentPage ContentType = "page"
)

// FunnelStage orders an article along the awareness-to-decision path.
type FunnelStage string

const (
	FunnelAwareness     FunnelStage = "awareness"
	FunnelConsideration FunnelStage = "consideration"
	FunnelDecision      FunnelStage = "decision"
	FunnelUnknown       FunnelStage = "unknown"
)

type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
)

type ContentLifespan string

const (
	LifespanEvergreen ContentLifespan = "evergreen"
	LifespanTimely    ContentLifespan = "timely"
	LifespanSeasonal  ContentLifespan = "seasonal"
)

// AnchorType classifies an inbound anchor by how it reads.
type AnchorType string

const (
	AnchorBranded      AnchorType = "branded"
	AnchorExactMatch   AnchorType = "exact_match"
	AnchorPartialMatch AnchorType = "partial_match"
	AnchorGeneric      AnchorType = "generic"
	AnchorNakedURL     AnchorType = "naked_url"
	AnchorNatural      AnchorType = "natural"
)

// InboundAnchor records one link pointed at this article.
type InboundAnchor struct {
	Text      string     `json:"text"`
	SourceID  int64      `json:"sourceId"`
	Type      AnchorType `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`
}

// OutboundLink records one link this article makes to another.
type OutboundLink struct {
	TargetID  int64     `json:"targetId"`
	Anchor    string    `json:"anchor"`
	CreatedAt time.Time `json:"createdAt"`
}

// DismissedLink records a suppressed recommendation for this source.
type DismissedLink struct {
	TargetID    int64     `json:"targetId"`
	DismissedAt time.Time `json:"dismissedAt"`
	Reason      string    `json:"reason,omitempty"`
}

// Article is the persistent entity stored in the vector catalog, identified
// by the CMS-assigned postId.
type Article struct {
	PostID  int64       `json:"postId"`
	Title   string      `json:"title"`
	URL     string      `json:"url"`
	Slug    string      `json:"slug"`
	Content ContentType `json:"contentType"`

	Embedding         []float32 `json:"embedding,omitempty"`
	Summary           string    `json:"summary"`
	MainTopics        []string  `json:"mainTopics"`
	SemanticKeywords  []string  `json:"semanticKeywords"`
	SuggestedAnchors  []string  `json:"suggestedAnchors"`
	QuestionsAnswered []string  `json:"questionsAnswered"`
	// Entities is the set of named entities extracted by the LLM during
	// sync (auto-analyze). It backs the entity/knowledge-graph retriever.
	Entities []string `json:"entities,omitempty"`

	TopicCluster    string          `json:"topicCluster"`
	RelatedClusters []string        `json:"relatedClusters"`
	FunnelStage     FunnelStage     `json:"funnelStage"`
	TargetPersona   string          `json:"targetPersona"`
	Difficulty      DifficultyLevel `json:"difficultyLevel"`
	Lifespan        ContentLifespan `json:"contentLifespan"`
	QualityScore    int             `json:"qualityScore"`
	IsPillar        bool            `json:"isPillar"`

	InboundAnchors   []InboundAnchor `json:"inboundAnchors"`
	OutboundLinks    []OutboundLink  `json:"outboundLinks"`
	InboundLinkCount int             `json:"inboundLinkCount"`
	DismissedLinks   []DismissedLink `json:"dismissedLinks"`

	PublishedAt time.Time `json:"publishedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Extras carries forward-compatible fields the vector index metadata
	// blob holds but this struct does not model explicitly.
	Extras map[string]any `json:"extras,omitempty"`
}

// Normalize enforces the invariants from the data model: isPillar requires
// contentType==page, quality is clamped to [1,100], and an empty funnel
// stage becomes "unknown".
func (a *Article) Normalize() {
	if a.Content != ContentPage {
		a.IsPillar = false
	}
	if a.QualityScore < 1 {
		a.QualityScore = 1
	}
	if a.QualityScore > 100 {
		a.QualityScore = 100
	}
	if a.FunnelStage == "" {
		a.FunnelStage = FunnelUnknown
	}
	if a.Content == "" {
		a.Content = ContentPost
	}
}

// FirstInboundAnchor returns the InboundAnchor with the minimum CreatedAt,
// or false if there are none. Used to keep the site-wide first-link map
// honest after a direct scan of an article's metadata (e.g. cache rebuild).
func (a *Article) FirstInboundAnchor() (InboundAnchor, bool) {
	if len(a.InboundAnchors) == 0 {
		return InboundAnchor{}, false
	}
	first := a.InboundAnchors[0]
	for _, anchor := range a.InboundAnchors[1:] {
		if anchor.CreatedAt.Before(first.CreatedAt) {
			first = anchor
		}
	}
	return first, true
}

// IsDismissed reports whether targetID is in this article's dismissed set.
func (a *Article) IsDismissed(targetID int64) bool {
	for _, d := range a.DismissedLinks {
		if d.TargetID == targetID {
			return true
		}
	}
	return false
}
