package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreZeroForEmptyInput(t *testing.T) {
	assert.Equal(t, 0, Score(Input{}), "an asset with no probed metadata should score 0, not negative or NaN")
}

func TestScoreClampsAtUpperBound(t *testing.T) {
	in := Input{
		Height:             2160,
		VideoCodec:         "av1",
		BitrateKbps:        1_000_000,
		ResolutionTier:     "2160p",
		AudioChannels:      8,
		AudioTrackCount:    20,
		SubtitleTrackCount: 20,
		HDRType:            "DolbyVision",
	}
	assert.Equal(t, 200, Score(in), "an absurdly well-specified asset should clamp to the 200 ceiling")
}

func TestScoreCodecOrdering(t *testing.T) {
	base := Input{Height: 1080, ResolutionTier: "1080p"}

	av1 := base
	av1.VideoCodec = "av1"
	hevc := base
	hevc.VideoCodec = "hevc"
	h264 := base
	h264.VideoCodec = "h264"
	unknown := base
	unknown.VideoCodec = "mpeg2"

	assert.Greater(t, Score(av1), Score(hevc), "av1 must outscore hevc")
	assert.Greater(t, Score(hevc), Score(h264), "hevc must outscore h264")
	assert.Greater(t, Score(h264), Score(unknown), "a known codec must outscore an unrecognized one")
}

func TestResolutionTier(t *testing.T) {
	cases := []struct {
		height int
		want   string
	}{
		{2160, "2160p"},
		{2200, "2160p"},
		{1080, "1080p"},
		{1079, "720p"},
		{720, "720p"},
		{480, "480p"},
		{360, "SD"},
		{0, "SD"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolutionTier(tc.height), "height=%d", tc.height)
	}
}

func TestMultiAudioComponentClampsAtFloor(t *testing.T) {
	in := Input{AudioTrackCount: 0}
	assert.Equal(t, 0, Score(in), "zero audio tracks must not produce a negative component")
}

func TestHDRComponent(t *testing.T) {
	base := Input{Height: 1080, ResolutionTier: "1080p", VideoCodec: "h264"}

	sdr := base
	sdr.HDRType = "SDR"
	hdr10 := base
	hdr10.HDRType = "HDR10"

	assert.Greater(t, Score(hdr10), Score(sdr), "HDR10 must score higher than SDR, all else equal")
}
