package duplicate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shannon-orourke/mediavault/internal/models"
)

func TestLanguageGuardrailBlocksRemovingOnlyEnglishCopy(t *testing.T) {
	m := newAsset("/m.mkv", models.MediaKindMovie, nil)
	m.AudioLanguages = []string{"en"}
	best := newAsset("/best.mkv", models.MediaKindMovie, nil)
	best.AudioLanguages = []string{"fr"}

	passes, reason := LanguageGuardrailPasses(m, best)
	assert.False(t, passes)
	assert.NotEmpty(t, reason)
}

func TestLanguageGuardrailPassesWhenBestAlsoHasEnglish(t *testing.T) {
	m := newAsset("/m.mkv", models.MediaKindMovie, nil)
	m.AudioLanguages = []string{"en"}
	best := newAsset("/best.mkv", models.MediaKindMovie, nil)
	best.AudioLanguages = []string{"en", "fr"}

	passes, reason := LanguageGuardrailPasses(m, best)
	assert.True(t, passes)
	assert.Empty(t, reason)
}

func TestLanguageGuardrailPassesWhenNeitherHasEnglish(t *testing.T) {
	m := newAsset("/m.mkv", models.MediaKindMovie, nil)
	m.AudioLanguages = []string{"ja"}
	best := newAsset("/best.mkv", models.MediaKindMovie, nil)
	best.AudioLanguages = []string{"ja"}

	passes, _ := LanguageGuardrailPasses(m, best)
	assert.True(t, passes)
}
