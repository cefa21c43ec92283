package duplicate

import "github.com/shannon-orourke/mediavault/internal/models"

// LanguageGuardrailPasses reports whether recommending m for staging
// relative to a higher-ranked best is safe with respect to English
// audio availability. It is shared between the duplicate engine (C5)
// and deletion staging (C6), which both must apply it identically.
func LanguageGuardrailPasses(m, best *models.MediaAsset) (bool, string) {
	if m.HasEnglishAudio() && !best.HasEnglishAudio() {
		return false, "would remove only English audio track"
	}
	return true, ""
}
