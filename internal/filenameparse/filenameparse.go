// Package filenameparse implements the heuristic, deterministic,
// total parser the scanner uses to extract a file's working identity
// (title, year, season, episode, release group, media kind) from its
// basename.
package filenameparse

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Parsed is the result of parsing a single filename. It is always
// populated, even on a file the parser can't make sense of: MediaKind
// falls back to "other" and Title falls back to the stripped
// basename rather than ever failing.
type Parsed struct {
	Title        string
	Year         *int
	Season       *int
	Episode      *int
	ReleaseGroup string
	MediaKind    string
}

// Movie: Title (Year) [optional trailing tags]
var movieYearPattern = regexp.MustCompile(`(?i)^(.+?)[.\s_(\[-]+(\d{4})[.\s_)\]-]*(.*)$`)

// TV episode markers, tried in order; the first to match wins. Mirrors
// the range of naming conventions real release groups use.
var tvPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)[.\s_-]+S(\d{1,2})E(\d{1,3})`),
	regexp.MustCompile(`(?i)^(.+?)[.\s_-]+(\d{1,2})x(\d{1,3})`),
	regexp.MustCompile(`(?i)^(.+?)[.\s_-]+[Ss](?:eason)?\s*(\d{1,2})\s*[Ee](?:pisode)?\s*(\d{1,3})`),
}

// Release-group suffix: "-GROUPNAME" immediately before the extension
// or at the very end of the cleaned title, e.g. "Movie.2021.1080p-RARBG".
var releaseGroupPattern = regexp.MustCompile(`(?i)-([A-Za-z0-9]+)$`)

var separators = strings.NewReplacer(".", " ", "_", " ")

// Parse extracts identity fields from filename (the basename including
// extension). It is total: it always returns a Parsed value, never an
// error.
func Parse(filename string) Parsed {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	for _, pat := range tvPatterns {
		if m := pat.FindStringSubmatch(base); m != nil {
			season, _ := strconv.Atoi(m[2])
			episode, _ := strconv.Atoi(m[3])
			title := cleanTitle(m[1])
			return Parsed{
				Title:        title,
				Season:       &season,
				Episode:      &episode,
				ReleaseGroup: extractReleaseGroup(base),
				MediaKind:    "tv",
			}
		}
	}

	if m := movieYearPattern.FindStringSubmatch(base); m != nil {
		year, err := strconv.Atoi(m[2])
		if err == nil && year >= 1880 && year <= 2100 {
			title := cleanTitle(m[1])
			return Parsed{
				Title:        title,
				Year:         &year,
				ReleaseGroup: extractReleaseGroup(base),
				MediaKind:    "movie",
			}
		}
	}

	// Nothing matched a recognizable convention; still return a total,
	// deterministic result.
	return Parsed{
		Title:        cleanTitle(base),
		ReleaseGroup: extractReleaseGroup(base),
		MediaKind:    "other",
	}
}

func extractReleaseGroup(base string) string {
	if m := releaseGroupPattern.FindStringSubmatch(base); m != nil {
		return m[1]
	}
	return ""
}

func cleanTitle(raw string) string {
	cleaned := separators.Replace(raw)
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.Trim(cleaned, "-_. ")
	return cleaned
}
