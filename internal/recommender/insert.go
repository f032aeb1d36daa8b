package recommender

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"linkatlas/internal/seo"
)

// autoInsert renders withAnchors into sourceHTML as <a itemprop="relatedLink">
// tags (spec §4.H step 13), inserting at most one new link per paragraph and
// skipping a proposal if its anchor text can't be found verbatim in any
// still-eligible paragraph. It returns the linked HTML and the set of
// link-graph updates the caller should persist.
func (r *Recommender) autoInsert(sourceID int64, sourceHTML string, proposals []LinkProposal) (string, []seo.LinkUpdate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sourceHTML))
	if err != nil {
		return sourceHTML, nil, fmt.Errorf("recommender: parse source html: %w", err)
	}

	paragraphs := doc.Find("p")
	usedParagraph := make(map[int]bool, paragraphs.Length())
	now := time.Now()
	updates := make([]seo.LinkUpdate, 0, len(proposals))

	for _, p := range proposals {
		if p.AnchorText == "" {
			continue
		}
		inserted := false
		paragraphs.EachWithBreak(func(i int, s *goquery.Selection) bool {
			if usedParagraph[i] {
				return true
			}
			// A paragraph that already links out is not eligible: spec §8
			// forbids a paragraph that previously contained an <a> from
			// gaining one.
			if s.Find("a").Length() > 0 {
				return true
			}
			html, err := s.Html()
			if err != nil {
				return true
			}
			idx := firstUnlinkedIndex(html, p.AnchorText)
			if idx < 0 {
				return true
			}
			tag := fmt.Sprintf(`<a href="%s" itemprop="relatedLink">%s</a>`, p.URL, p.AnchorText)
			s.SetHtml(html[:idx] + tag + html[idx+len(p.AnchorText):])
			usedParagraph[i] = true
			inserted = true
			return false
		})
		if !inserted {
			continue
		}
		updates = append(updates, seo.LinkUpdate{
			SourceID:   sourceID,
			TargetID:   p.PostID,
			AnchorText: p.AnchorText,
			AnchorType: seo.ClassifyAnchor(p.AnchorText, p.Title),
			CreatedAt:  now,
		})
	}

	linked, err := doc.Find("body").Html()
	if err != nil {
		return sourceHTML, updates, fmt.Errorf("recommender: render linked html: %w", err)
	}
	return linked, updates, nil
}

// firstUnlinkedIndex returns the byte offset of the first occurrence of
// anchor in html that falls outside any <a>...</a> span (spec §4.H step 13,
// "first unlinked occurrence"). Paragraphs reaching this point have already
// been rejected if they contain an <a> element at all (see s.Find("a") above),
// so in practice html never contains one — this still walks span-by-span
// rather than assuming that, so a paragraph containing a raw unparsed anchor
// tag can't be tricked into nesting a link inside another.
func firstUnlinkedIndex(html, anchor string) int {
	offset := 0
	for {
		openRel := strings.Index(html[offset:], "<a")
		var segment string
		if openRel < 0 {
			segment = html[offset:]
		} else {
			segment = html[offset : offset+openRel]
		}
		if idx := strings.Index(segment, anchor); idx >= 0 {
			return offset + idx
		}
		if openRel < 0 {
			return -1
		}
		closeRel := strings.Index(html[offset+openRel:], "</a>")
		if closeRel < 0 {
			return -1
		}
		offset += openRel + closeRel + len("</a>")
	}
}

// persistInserted folds auto-inserted links into the SEO cache and the
// catalog in the background (spec §4.H step 13, "fire-and-forget"): the
// smart-link response does not wait on this write path.
func (r *Recommender) persistInserted(sourceID int64, updates []seo.LinkUpdate) {
	ctx := context.Background()
	for _, u := range updates {
		if err := r.SEO.TrackAnchorUsage(ctx, u, true); err != nil {
			r.log("persist inserted link %d->%d failed: %v", sourceID, u.TargetID, err)
			continue
		}
		if r.EventLog != nil {
			if err := r.EventLog.LogLinkInserted(sourceID, u.TargetID, u.AnchorText); err != nil {
				r.log("event log write failed: %v", err)
			}
		}
	}
}
