package duplicate

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/shannon-orourke/mediavault/internal/models"
	"github.com/shannon-orourke/mediavault/internal/similarity"
)

// candidateGroup is a duplicate group as computed in memory, before it
// is reconciled against the existing rows in storage.
type candidateGroup struct {
	fingerprint string
	kind        models.DuplicateGroupKind
	confidence  float64
	title       string
	year        *int
	season      *int
	episode     *int
	mediaKind   models.MediaKind
	members     []*models.MediaAsset
}

// buildGroups computes the exact and fuzzy duplicate groups over the
// live asset set, in that order; assets consumed by the exact pass
// never participate in the fuzzy pass.
func buildGroups(assets []*models.MediaAsset, fuzzyThreshold int) []candidateGroup {
	exactGroups, consumed := buildExactGroups(assets)
	remaining := make([]*models.MediaAsset, 0, len(assets))
	for _, a := range assets {
		if !consumed[a.ID.String()] {
			remaining = append(remaining, a)
		}
	}
	fuzzyGroups := buildFuzzyGroups(remaining, fuzzyThreshold)

	out := make([]candidateGroup, 0, len(exactGroups)+len(fuzzyGroups))
	out = append(out, exactGroups...)
	out = append(out, fuzzyGroups...)
	return out
}

func buildExactGroups(assets []*models.MediaAsset) ([]candidateGroup, map[string]bool) {
	byFingerprint := map[string][]*models.MediaAsset{}
	for _, a := range assets {
		if a.ContentFingerprint == nil || *a.ContentFingerprint == "" {
			continue
		}
		byFingerprint[*a.ContentFingerprint] = append(byFingerprint[*a.ContentFingerprint], a)
	}

	consumed := map[string]bool{}
	var groups []candidateGroup
	for fp, members := range byFingerprint {
		if len(members) < 2 {
			continue
		}
		// ListLive has no ORDER BY, so member order is not guaranteed
		// stable between rebuilds; sort by logical_path so the identity
		// fields derived below are reproducible (§5 rebuild determinism).
		sort.Slice(members, func(i, j int) bool { return members[i].LogicalPath < members[j].LogicalPath })
		first := members[0]
		groups = append(groups, candidateGroup{
			fingerprint: "exact:" + fp,
			kind:        models.DuplicateKindExact,
			confidence:  100,
			title:       first.ParsedTitle,
			year:        first.ParsedYear,
			season:      first.ParsedSeason,
			episode:     first.ParsedEpisode,
			mediaKind:   first.MediaKind,
			members:     members,
		})
		for _, m := range members {
			consumed[m.ID.String()] = true
		}
	}
	return groups, consumed
}

// buildFuzzyGroups greedily clusters remaining assets: each ungrouped
// asset seeds a cluster against which subsequent ungrouped assets of
// the same media kind are compared.
func buildFuzzyGroups(assets []*models.MediaAsset, threshold int) []candidateGroup {
	sorted := make([]*models.MediaAsset, len(assets))
	copy(sorted, assets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LogicalPath < sorted[j].LogicalPath })

	grouped := make([]bool, len(sorted))
	var groups []candidateGroup

	for i, seed := range sorted {
		if grouped[i] {
			continue
		}
		members := []*models.MediaAsset{seed}
		simSum, simCount := 0, 0
		grouped[i] = true

		for j := i + 1; j < len(sorted); j++ {
			if grouped[j] {
				continue
			}
			candidate := sorted[j]
			if sim, ok := fuzzyMatch(seed, candidate, threshold); ok {
				members = append(members, candidate)
				grouped[j] = true
				simSum += sim
				simCount++
			}
		}

		if len(members) < 2 {
			continue
		}
		confidence := float64(simSum) / float64(simCount)
		groups = append(groups, candidateGroup{
			fingerprint: fuzzyFingerprint(seed),
			kind:        models.DuplicateKindFuzzy,
			confidence:  confidence,
			title:       seed.ParsedTitle,
			year:        seed.ParsedYear,
			season:      seed.ParsedSeason,
			episode:     seed.ParsedEpisode,
			mediaKind:   seed.MediaKind,
			members:     members,
		})
	}
	return groups
}

// fuzzyMatch reports whether a and b belong in the same fuzzy group,
// returning the title similarity that justified the match.
func fuzzyMatch(a, b *models.MediaAsset, threshold int) (int, bool) {
	if a.MediaKind != b.MediaKind {
		return 0, false
	}
	sim := similarity.TitleSimilarity(a.ParsedTitle, b.ParsedTitle)

	switch a.MediaKind {
	case models.MediaKindTV:
		if !intPtrEqual(a.ParsedSeason, b.ParsedSeason) || !intPtrEqual(a.ParsedEpisode, b.ParsedEpisode) {
			return 0, false
		}
		return sim, sim >= threshold
	case models.MediaKindMovie:
		if a.ParsedYear == nil && b.ParsedYear == nil {
			return sim, sim >= 95
		}
		if !intPtrEqual(a.ParsedYear, b.ParsedYear) {
			return 0, false
		}
		return sim, sim >= threshold
	default:
		return 0, false
	}
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// fuzzyFingerprint formats the group identity fingerprint for a fuzzy
// group seeded by asset.
func fuzzyFingerprint(seed *models.MediaAsset) string {
	var identity string
	switch seed.MediaKind {
	case models.MediaKindTV:
		season, episode := 0, 0
		if seed.ParsedSeason != nil {
			season = *seed.ParsedSeason
		}
		if seed.ParsedEpisode != nil {
			episode = *seed.ParsedEpisode
		}
		identity = fmt.Sprintf("S%02dE%02d", season, episode)
	case models.MediaKindMovie:
		if seed.ParsedYear != nil {
			identity = fmt.Sprintf("%d", *seed.ParsedYear)
		} else {
			identity = "unknown"
		}
	default:
		identity = "unknown"
	}
	return fmt.Sprintf("fuzzy:%s:%s:%s", seed.MediaKind, canonicalizeTitle(seed.ParsedTitle), identity)
}

// canonicalizeTitle lowercases and strips punctuation for use in a
// stable group fingerprint; it intentionally does not sort tokens, so
// two titles that are merely similar (not identical once normalized)
// still land in distinct fingerprints when un-clustered by a prior run.
func canonicalizeTitle(title string) string {
	lower := strings.ToLower(similarity.StripDiacritics(title))
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, lower)
}
