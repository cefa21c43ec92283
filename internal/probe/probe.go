package probe

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/shannon-orourke/mediavault/internal/coreerr"
	"github.com/shannon-orourke/mediavault/internal/quality"
)

// AssetMetadata is the full set of technical fields C2 extracts for a
// single file, ready to be written onto a MediaAsset row.
type AssetMetadata struct {
	Container          string
	VideoCodec         string
	AudioCodec         string
	Width              int
	Height             int
	ResolutionTier     string
	BitrateKbps        int
	DurationSeconds    float64
	AudioChannels      float64
	AudioTrackCount    int
	SubtitleTrackCount int
	AudioLanguages     []string
	SubtitleLanguages  []string
	HDRType            string
	ContentFingerprint string
}

// ProbeAsset extracts technical metadata and computes the content
// fingerprint for the file at absolutePath, under timeout.
//
// Failure semantics: returns a coreerr ProbeFailed when the subprocess
// fails or its output can't be parsed; IOError when the file can't be
// opened for fingerprinting.
func (p *Prober) ProbeAsset(ctx context.Context, absolutePath string, timeout time.Duration, chunkBytes int) (*AssetMetadata, error) {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := p.Probe(probeCtx, absolutePath)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.ProbeFailed, "probe.ProbeAsset", "ffprobe invocation or parse failed", err)
	}

	// ResolutionTier is derived from the same height thresholds the
	// quality scorer's resolution component uses, so the persisted tier
	// and the bitrate component's "ideal for this tier" lookup agree
	// (§4.3: resolution_tier "is the same mapping").
	meta := &AssetMetadata{
		Container:       result.Container(),
		VideoCodec:      result.VideoCodec(),
		AudioCodec:      result.AudioCodec(),
		Width:           result.Width(),
		Height:          result.Height(),
		ResolutionTier:  quality.ResolutionTier(result.Height()),
		BitrateKbps:     result.BitrateKbps(),
		DurationSeconds: result.DurationSeconds(),
		AudioChannels:   result.AudioChannels(),
		HDRType:         result.HDRType(),
	}

	for _, t := range result.AudioTracks() {
		meta.AudioTrackCount++
		if lang := NormalizeLanguage(t.Language); lang != "" {
			meta.AudioLanguages = append(meta.AudioLanguages, lang)
		}
	}
	for _, t := range result.SubtitleTracks() {
		meta.SubtitleTrackCount++
		if lang := NormalizeLanguage(t.Language); lang != "" {
			meta.SubtitleLanguages = append(meta.SubtitleLanguages, lang)
		}
	}

	fingerprint, err := Fingerprint(absolutePath, chunkBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return nil, coreerr.Wrap(coreerr.IOError, "probe.ProbeAsset", "cannot open file for fingerprinting", err)
		}
		return nil, coreerr.Wrap(coreerr.IOError, "probe.ProbeAsset", "fingerprinting failed", err)
	}
	meta.ContentFingerprint = fingerprint

	return meta, nil
}

// DominantAudioLanguage is the first non-empty entry in AudioLanguages.
func (m *AssetMetadata) DominantAudioLanguage() *string {
	if len(m.AudioLanguages) == 0 {
		return nil
	}
	lang := m.AudioLanguages[0]
	return &lang
}
