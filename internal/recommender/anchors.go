package recommender

import (
	"context"
	"strings"

	"linkatlas/internal/anchor"
	"linkatlas/internal/llm"
)

// selectAnchors assigns each proposal a verbatim anchor phrase (spec §4.H
// step 10, §4.G). When req.UseClaudeAnalysis is set and an LLM client is
// configured, it asks the model to choose phrasing first, falling back to
// the deterministic anchor finder for anything the model's answer fails the
// verbatim check on (or skips). Proposals nothing can find an anchor for are
// dropped — the verbatim-anchor invariant admits no exceptions.
func (r *Recommender) selectAnchors(ctx context.Context, req Request, proposals []LinkProposal) []LinkProposal {
	used := make(map[string]bool, len(proposals))

	llmChoices := map[int64]string{}
	if req.UseClaudeAnalysis && r.LLM != nil && len(proposals) > 0 {
		candidates := make([]llm.AnchorCandidate, 0, len(proposals))
		for _, p := range proposals {
			candidates = append(candidates, llm.AnchorCandidate{PostID: p.PostID, Title: p.Title})
		}
		if selected, err := r.LLM.SelectAnchors(ctx, req.Content, candidates); err == nil {
			llmChoices = selected.Anchors
		}
	}

	out := make([]LinkProposal, 0, len(proposals))
	for _, p := range proposals {
		if choice, ok := llmChoices[p.PostID]; ok && choice != "" &&
			containsVerbatim(req.Content, choice) && !used[strings.ToLower(choice)] {
			p.AnchorText = choice
			p.Placement = string(anchor.PositionBody)
			p.Reasoning = "anchor phrase selected by language-model analysis"
			used[strings.ToLower(choice)] = true
			out = append(out, p)
			continue
		}

		cand, found := anchor.Find(req.Content, p.Title, used)
		if !found {
			continue
		}
		p.AnchorText = cand.Text
		p.Placement = string(cand.Position)
		p.Reasoning = anchorReasoning(cand)
		used[strings.ToLower(cand.Text)] = true
		out = append(out, p)
	}
	return out
}

func anchorReasoning(c anchor.Candidate) string {
	switch c.Type {
	case anchor.TypePhrase:
		return "verbatim title phrase found in source body"
	case anchor.TypeSentence:
		return "matched a full sentence referencing the target topic"
	default:
		return "matched contextual phrasing around the target topic"
	}
}
