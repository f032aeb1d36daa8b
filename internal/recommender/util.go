package recommender

import (
	"sort"
	"strings"
	"time"
)

func daysSince(t time.Time) float64 {
	return time.Since(t).Hours() / 24
}

// containsVerbatim reports whether needle occurs in haystack as a
// case-insensitive substring — the anchor-verbatim invariant spec §3 and
// §8 require of every emitted anchorText.
func containsVerbatim(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// sortProposalsDesc orders proposals by descending enhanced score, breaking
// ties by postId ascending for a stable, reproducible order.
func sortProposalsDesc(props []LinkProposal) {
	sort.SliceStable(props, func(i, j int) bool {
		if props[i].enhanced != props[j].enhanced {
			return props[i].enhanced > props[j].enhanced
		}
		return props[i].PostID < props[j].PostID
	})
}
