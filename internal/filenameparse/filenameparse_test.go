package filenameparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMovie(t *testing.T) {
	p := Parse("The.Matrix.1999.1080p.BluRay-RARBG.mkv")
	assert.Equal(t, "movie", p.MediaKind)
	require.NotNil(t, p.Year)
	assert.Equal(t, 1999, *p.Year)
	assert.Equal(t, "The Matrix", p.Title)
	assert.Equal(t, "RARBG", p.ReleaseGroup)
}

func TestParseTVStandardPattern(t *testing.T) {
	p := Parse("Breaking.Bad.S05E14.Ozymandias.720p-NTb.mkv")
	assert.Equal(t, "tv", p.MediaKind)
	require.NotNil(t, p.Season)
	require.NotNil(t, p.Episode)
	assert.Equal(t, 5, *p.Season)
	assert.Equal(t, 14, *p.Episode)
	assert.Equal(t, "Breaking Bad", p.Title)
}

func TestParseTVAlternatePattern(t *testing.T) {
	p := Parse("Some.Show.3x07.mkv")
	require.NotNil(t, p.Season)
	require.NotNil(t, p.Episode)
	assert.Equal(t, 3, *p.Season)
	assert.Equal(t, 7, *p.Episode)
}

func TestParseUnrecognizedFallsBackToOther(t *testing.T) {
	p := Parse("random_home_video.mkv")
	assert.Equal(t, "other", p.MediaKind)
	assert.Nil(t, p.Year)
	assert.Nil(t, p.Season)
	assert.Nil(t, p.Episode)
	assert.Equal(t, "random home video", p.Title)
}

func TestParseIsTotalNeverPanics(t *testing.T) {
	inputs := []string{"", ".", "....", "S01E.mkv", "9999.mkv"}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			Parse(in)
		}, "Parse must never panic on input %q", in)
	}
}

func TestParseRejectsImplausibleYear(t *testing.T) {
	p := Parse("Movie.Title.9999.mkv")
	assert.Nil(t, p.Year, "a year outside the plausible range must not be accepted as a release year")
}
