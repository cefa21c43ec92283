package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripDiacritics(t *testing.T) {
	assert.Equal(t, "Amelie", StripDiacritics("Amélie"), "combining marks should be dropped")
	assert.Equal(t, "Leon", StripDiacritics("Léon"), "combining marks should be dropped")
	assert.Equal(t, "plain", StripDiacritics("plain"), "ascii input should pass through unchanged")
}

func TestTitleSimilarityIdenticalAfterFolding(t *testing.T) {
	assert.Equal(t, 100, TitleSimilarity("Amélie", "Amelie"), "diacritic-only differences must score a perfect match")
}

func TestTitleSimilarityWordOrderInvariant(t *testing.T) {
	assert.Equal(t, 100, TitleSimilarity("The Matrix", "Matrix The"), "token-sort must be invariant to word order")
}

func TestTitleSimilarityCaseAndPunctuationInvariant(t *testing.T) {
	assert.Equal(t, 100, TitleSimilarity("Spider-Man: Homecoming", "spider man homecoming"), "case and punctuation must not affect the score")
}

func TestTitleSimilarityBothEmpty(t *testing.T) {
	assert.Equal(t, 100, TitleSimilarity("", ""), "two empty titles are trivially identical")
}

func TestTitleSimilarityOneEmpty(t *testing.T) {
	assert.Equal(t, 0, TitleSimilarity("", "Inception"), "an empty title can never match a non-empty one")
}

func TestTitleSimilarityDissimilarTitles(t *testing.T) {
	score := TitleSimilarity("Inception", "The Notebook")
	assert.Less(t, score, 50, "unrelated titles should score well below the midpoint, got %d", score)
}
