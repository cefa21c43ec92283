package duplicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shannon-orourke/mediavault/internal/models"
)

func TestRankAndRecommendOrdersByQuality(t *testing.T) {
	low := newAsset("/z.mkv", models.MediaKindMovie, nil)
	low.QualityScore = 50
	low.SizeBytes = 100

	high := newAsset("/a.mkv", models.MediaKindMovie, nil)
	high.QualityScore = 120
	high.SizeBytes = 100

	ranked := rankAndRecommend([]*models.MediaAsset{low, high})
	require.Len(t, ranked, 2)
	assert.Equal(t, high.ID, ranked[0].asset.ID)
	assert.Equal(t, 1, ranked[0].rank)
	assert.Equal(t, models.ActionKeep, ranked[0].recommendedAction)
	assert.Equal(t, 2, ranked[1].rank)
}

func TestRankAndRecommendTieBreaksOnSizeThenPath(t *testing.T) {
	a := newAsset("/b.mkv", models.MediaKindMovie, nil)
	a.QualityScore = 50
	a.SizeBytes = 100
	b := newAsset("/a.mkv", models.MediaKindMovie, nil)
	b.QualityScore = 50
	b.SizeBytes = 200
	c := newAsset("/c.mkv", models.MediaKindMovie, nil)
	c.QualityScore = 50
	c.SizeBytes = 100

	ranked := rankAndRecommend([]*models.MediaAsset{c, a, b})
	require.Len(t, ranked, 3)
	assert.Equal(t, b.ID, ranked[0].asset.ID, "larger file size must win the tie when quality scores match")
	assert.Equal(t, a.ID, ranked[1].asset.ID, "equal quality and size must fall back to ascending logical path")
	assert.Equal(t, c.ID, ranked[2].asset.ID)
}

func TestRecommendForMemberLargeDeltaStagesWhenGuardrailPasses(t *testing.T) {
	best := newAsset("/best.mkv", models.MediaKindMovie, nil)
	best.QualityScore = 150
	best.AudioLanguages = []string{"en"}
	worse := newAsset("/worse.mkv", models.MediaKindMovie, nil)
	worse.QualityScore = 90
	worse.AudioLanguages = []string{"en"}

	action, reason := recommendForMember(worse, best)
	assert.Equal(t, models.ActionStage, action)
	assert.NotEmpty(t, reason)
}

func TestRecommendForMemberGuardrailBlocksStaging(t *testing.T) {
	best := newAsset("/best.mkv", models.MediaKindMovie, nil)
	best.QualityScore = 150
	best.AudioLanguages = []string{"ja"}
	worse := newAsset("/worse.mkv", models.MediaKindMovie, nil)
	worse.QualityScore = 90
	worse.AudioLanguages = []string{"en"}

	action, reason := recommendForMember(worse, best)
	assert.Equal(t, models.ActionReview, action, "staging the only English-audio copy must be blocked")
	assert.Contains(t, reason, "English")
}

func TestRecommendForMemberCloseQualityAlwaysReviews(t *testing.T) {
	best := newAsset("/best.mkv", models.MediaKindMovie, nil)
	best.QualityScore = 100
	best.AudioLanguages = []string{"en"}
	closeMatch := newAsset("/close.mkv", models.MediaKindMovie, nil)
	closeMatch.QualityScore = 90
	closeMatch.AudioLanguages = []string{"en"}

	action, _ := recommendForMember(closeMatch, best)
	assert.Equal(t, models.ActionReview, action, "a quality delta under 20 must always require review")
}

func TestGroupRecommendationReviewPropagates(t *testing.T) {
	ranked := []rankedMember{
		{recommendedAction: models.ActionKeep},
		{recommendedAction: models.ActionReview},
		{recommendedAction: models.ActionStage},
	}
	action, _ := groupRecommendation(ranked)
	assert.Equal(t, models.GroupActionReview, action, "any member under review must force the group to review")
}

func TestGroupRecommendationAllSafeStagesLower(t *testing.T) {
	ranked := []rankedMember{
		{recommendedAction: models.ActionKeep},
		{recommendedAction: models.ActionStage},
	}
	action, _ := groupRecommendation(ranked)
	assert.Equal(t, models.GroupActionStageLower, action)
}
