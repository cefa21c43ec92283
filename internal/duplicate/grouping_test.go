package duplicate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shannon-orourke/mediavault/internal/models"
)

func intPtr(v int) *int { return &v }

func newAsset(path string, kind models.MediaKind, fingerprint *string) *models.MediaAsset {
	return &models.MediaAsset{
		ID:                 uuid.New(),
		LogicalPath:        path,
		ContentFingerprint: fingerprint,
		MediaKind:          kind,
	}
}

func TestBuildExactGroupsClustersSharedFingerprint(t *testing.T) {
	fp := "abc123"
	a := newAsset("/a.mkv", models.MediaKindMovie, &fp)
	b := newAsset("/b.mkv", models.MediaKindMovie, &fp)
	c := newAsset("/c.mkv", models.MediaKindMovie, nil)

	groups, consumed := buildExactGroups([]*models.MediaAsset{a, b, c})
	require.Len(t, groups, 1)
	assert.Equal(t, models.DuplicateKindExact, groups[0].kind)
	assert.Equal(t, 100.0, groups[0].confidence)
	assert.True(t, consumed[a.ID.String()])
	assert.True(t, consumed[b.ID.String()])
	assert.False(t, consumed[c.ID.String()])
}

func TestBuildExactGroupsSkipsSingletons(t *testing.T) {
	fp := "unique"
	a := newAsset("/a.mkv", models.MediaKindMovie, &fp)
	groups, _ := buildExactGroups([]*models.MediaAsset{a})
	assert.Empty(t, groups, "a fingerprint shared by only one asset must not form a group")
}

func TestFuzzyMatchRequiresSameMediaKind(t *testing.T) {
	a := newAsset("/a.mkv", models.MediaKindMovie, nil)
	a.ParsedTitle = "Inception"
	a.ParsedYear = intPtr(2010)
	b := newAsset("/b.mkv", models.MediaKindTV, nil)
	b.ParsedTitle = "Inception"
	b.ParsedYear = intPtr(2010)

	_, ok := fuzzyMatch(a, b, 85)
	assert.False(t, ok)
}

func TestFuzzyMatchMovieRequiresSameYear(t *testing.T) {
	a := newAsset("/a.mkv", models.MediaKindMovie, nil)
	a.ParsedTitle = "Inception"
	a.ParsedYear = intPtr(2010)
	b := newAsset("/b.mkv", models.MediaKindMovie, nil)
	b.ParsedTitle = "Inception"
	b.ParsedYear = intPtr(2011)

	_, ok := fuzzyMatch(a, b, 85)
	assert.False(t, ok, "differing release years must prevent a movie fuzzy match")
}

func TestFuzzyMatchMovieBothYearsNilRequiresHighSimilarity(t *testing.T) {
	a := newAsset("/a.mkv", models.MediaKindMovie, nil)
	a.ParsedTitle = "Inception"
	b := newAsset("/b.mkv", models.MediaKindMovie, nil)
	b.ParsedTitle = "Inception"

	sim, ok := fuzzyMatch(a, b, 85)
	assert.True(t, ok)
	assert.Equal(t, 100, sim)
}

func TestFuzzyMatchTVRequiresSameSeasonAndEpisode(t *testing.T) {
	a := newAsset("/a.mkv", models.MediaKindTV, nil)
	a.ParsedTitle = "Breaking Bad"
	a.ParsedSeason = intPtr(1)
	a.ParsedEpisode = intPtr(1)
	b := newAsset("/b.mkv", models.MediaKindTV, nil)
	b.ParsedTitle = "Breaking Bad"
	b.ParsedSeason = intPtr(1)
	b.ParsedEpisode = intPtr(2)

	_, ok := fuzzyMatch(a, b, 85)
	assert.False(t, ok, "a different episode number must prevent a TV fuzzy match")
}

func TestBuildFuzzyGroupsGreedyClustering(t *testing.T) {
	a := newAsset("/a.mkv", models.MediaKindMovie, nil)
	a.ParsedTitle = "Inception"
	a.ParsedYear = intPtr(2010)
	b := newAsset("/b.mkv", models.MediaKindMovie, nil)
	b.ParsedTitle = "inception"
	b.ParsedYear = intPtr(2010)
	c := newAsset("/c.mkv", models.MediaKindMovie, nil)
	c.ParsedTitle = "The Notebook"
	c.ParsedYear = intPtr(2004)

	groups := buildFuzzyGroups([]*models.MediaAsset{a, b, c}, 85)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].members, 2)
}

func TestCanonicalizeTitleFoldsDiacriticsAndPunctuation(t *testing.T) {
	assert.Equal(t, canonicalizeTitle("Amélie"), canonicalizeTitle("Amelie!"))
}

func TestBuildGroupsExcludesExactMembersFromFuzzyPass(t *testing.T) {
	fp := "shared"
	a := newAsset("/a.mkv", models.MediaKindMovie, &fp)
	a.ParsedTitle = "Inception"
	a.ParsedYear = intPtr(2010)
	b := newAsset("/b.mkv", models.MediaKindMovie, &fp)
	b.ParsedTitle = "Inception"
	b.ParsedYear = intPtr(2010)
	// Same title/year as the exact pair but no shared fingerprint; should
	// not fold into the exact group, and has nothing left to fuzzy-pair with.
	c := newAsset("/c.mkv", models.MediaKindMovie, nil)
	c.ParsedTitle = "Inception"
	c.ParsedYear = intPtr(2010)

	groups := buildGroups([]*models.MediaAsset{a, b, c}, 85)
	require.Len(t, groups, 1, "the exact group must consume a and b, leaving c unpaired")
	assert.Equal(t, models.DuplicateKindExact, groups[0].kind)
	assert.Len(t, groups[0].members, 2)
}
