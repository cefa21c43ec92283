package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasEnglishAudio(t *testing.T) {
	a := &MediaAsset{AudioLanguages: []string{"fr", "en"}}
	assert.True(t, a.HasEnglishAudio())

	b := &MediaAsset{AudioLanguages: []string{"fr", "ja"}}
	assert.False(t, b.HasEnglishAudio())
}

func TestHasEnglishSubtitles(t *testing.T) {
	a := &MediaAsset{SubtitleLanguages: []string{"en"}}
	assert.True(t, a.HasEnglishSubtitles())

	b := &MediaAsset{}
	assert.False(t, b.HasEnglishSubtitles())
}

func TestIsForeignLanguageTitle(t *testing.T) {
	ja := "ja"

	foreign := &MediaAsset{
		AudioLanguages:        []string{"ja"},
		SubtitleLanguages:     []string{"en"},
		DominantAudioLanguage: &ja,
	}
	assert.True(t, foreign.IsForeignLanguageTitle())

	englishAudio := &MediaAsset{
		AudioLanguages:        []string{"en"},
		SubtitleLanguages:     []string{"en"},
		DominantAudioLanguage: &ja,
	}
	assert.False(t, englishAudio.IsForeignLanguageTitle(), "English audio disqualifies the foreign-language-title predicate")

	noSubtitles := &MediaAsset{
		AudioLanguages:        []string{"ja"},
		DominantAudioLanguage: &ja,
	}
	assert.False(t, noSubtitles.IsForeignLanguageTitle(), "without English subtitles there is no way to tell intent")
}
