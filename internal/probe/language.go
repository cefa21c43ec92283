package probe

import (
	"strings"

	iso "github.com/barbashov/iso639-3"
)

// NormalizeLanguage maps an ffprobe language tag (which may be a
// two-letter, three-letter, or occasionally bibliographic code) to its
// ISO-639-1 form where one exists. Unrecognized or empty tags are
// returned lowercased and unchanged.
func NormalizeLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	lang := iso.FromAnyCode(tag)
	if lang == nil {
		return strings.ToLower(tag)
	}
	if lang.Part1 != "" {
		return lang.Part1
	}
	return strings.ToLower(tag)
}

// IsEnglish reports whether a normalized language code denotes English.
func IsEnglish(code string) bool {
	return code == "en"
}
