package duplicate

import (
	"fmt"
	"sort"

	"github.com/shannon-orourke/mediavault/internal/models"
)

// rankedMember is a group member after ranking, ready to be written
// as a models.DuplicateMember.
type rankedMember struct {
	asset             *models.MediaAsset
	rank              int
	recommendedAction models.RecommendedAction
	actionReason      string
}

// rankAndRecommend sorts members by quality_score desc, size_bytes
// desc, logical_path asc, assigns rank starting at 1, and derives each
// non-rank-1 member's recommendation relative to the best-ranked member.
func rankAndRecommend(members []*models.MediaAsset) []rankedMember {
	sorted := make([]*models.MediaAsset, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		if a.SizeBytes != b.SizeBytes {
			return a.SizeBytes > b.SizeBytes
		}
		return a.LogicalPath < b.LogicalPath
	})

	best := sorted[0]
	out := make([]rankedMember, 0, len(sorted))
	for i, m := range sorted {
		rank := i + 1
		if rank == 1 {
			out = append(out, rankedMember{asset: m, rank: rank, recommendedAction: models.ActionKeep})
			continue
		}
		action, reason := recommendForMember(m, best)
		out = append(out, rankedMember{asset: m, rank: rank, recommendedAction: action, actionReason: reason})
	}
	return out
}

// recommendForMember implements §4.5's per-member recommendation rule
// for a non-rank-1 member m relative to the group's best.
func recommendForMember(m, best *models.MediaAsset) (models.RecommendedAction, string) {
	delta := best.QualityScore - m.QualityScore
	guardrailPasses, guardrailReason := LanguageGuardrailPasses(m, best)

	if delta >= 50 {
		if guardrailPasses {
			return models.ActionStage, fmt.Sprintf("quality delta of %d warrants staging the lower-ranked copy", delta)
		}
		return models.ActionReview, guardrailReason
	}
	if delta < 20 {
		return models.ActionReview, "close quality; human judgment required"
	}
	// 20 <= delta < 50
	if guardrailPasses {
		return models.ActionStage, fmt.Sprintf("quality delta of %d warrants staging the lower-ranked copy", delta)
	}
	return models.ActionReview, guardrailReason
}

// groupRecommendation derives the group-level recommendation from its
// ranked members: any member under review forces the whole group to
// review, otherwise the group recommends staging the lower copies.
func groupRecommendation(ranked []rankedMember) (models.GroupRecommendation, string) {
	for _, m := range ranked {
		if m.recommendedAction == models.ActionReview {
			return models.GroupActionReview, "one or more members require human review"
		}
	}
	return models.GroupActionStageLower, "lower-ranked members are safe to stage"
}
