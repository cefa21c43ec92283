// Package probe implements C2: extracting technical metadata from a
// media file via an external ffprobe subprocess, and computing its
// full-file content fingerprint.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type rawResult struct {
	Format  formatInfo   `json:"format"`
	Streams []streamInfo `json:"streams"`
}

type formatInfo struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	Bitrate    string `json:"bit_rate"`
}

type streamInfo struct {
	Index          int               `json:"index"`
	CodecType      string            `json:"codec_type"`
	CodecName      string            `json:"codec_name"`
	Width          int               `json:"width"`
	Height         int               `json:"height"`
	Channels       int               `json:"channels"`
	ChannelLayout  string            `json:"channel_layout"`
	SampleRate     string            `json:"sample_rate"`
	BitRate        string            `json:"bit_rate"`
	ColorTransfer  string            `json:"color_transfer"`
	ColorPrimaries string            `json:"color_primaries"`
	Profile        string            `json:"profile"`
	SideDataList   []sideDataItem    `json:"side_data_list"`
	Tags           map[string]string `json:"tags"`
}

type sideDataItem struct {
	SideDataType string `json:"side_data_type"`
}

// Result is the parsed, query-ready shape of an ffprobe invocation.
type Result struct {
	raw rawResult
}

// Prober wraps the ffprobe binary at Path.
type Prober struct {
	Path string
}

func New(path string) *Prober {
	if path == "" {
		path = "ffprobe"
	}
	return &Prober{Path: path}
}

// Probe runs ffprobe against filePath under ctx's deadline and returns
// the parsed result. Exit-non-zero, timeout, and unparseable output all
// surface as coreerr.ProbeFailed to the caller (wrapped higher up).
func (p *Prober) Probe(ctx context.Context, filePath string) (*Result, error) {
	cmd := exec.CommandContext(ctx, p.Path, "-v", "quiet", "-print_format", "json",
		"-show_format", "-show_streams", "-show_chapters", filePath)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe invocation failed: %w", err)
	}
	var raw rawResult
	if err := json.Unmarshal(output, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	return &Result{raw: raw}, nil
}

func (r *Result) DurationSeconds() float64 {
	d, _ := strconv.ParseFloat(r.raw.Format.Duration, 64)
	return d
}

func (r *Result) videoStream() (streamInfo, bool) {
	for _, s := range r.raw.Streams {
		if s.CodecType == "video" {
			return s, true
		}
	}
	return streamInfo{}, false
}

func (r *Result) firstAudioStream() (streamInfo, bool) {
	for _, s := range r.raw.Streams {
		if s.CodecType == "audio" {
			return s, true
		}
	}
	return streamInfo{}, false
}

func (r *Result) Width() int {
	s, _ := r.videoStream()
	return s.Width
}

func (r *Result) Height() int {
	s, _ := r.videoStream()
	return s.Height
}

func (r *Result) VideoCodec() string {
	s, _ := r.videoStream()
	return strings.ToLower(s.CodecName)
}

func (r *Result) AudioCodec() string {
	s, _ := r.firstAudioStream()
	return strings.ToLower(s.CodecName)
}

func (r *Result) AudioChannels() float64 {
	s, ok := r.firstAudioStream()
	if !ok {
		return 0
	}
	switch s.ChannelLayout {
	case "5.1", "5.1(side)":
		return 5.1
	case "7.1", "7.1(wide)":
		return 7.1
	case "stereo":
		return 2.0
	case "mono":
		return 1.0
	default:
		return float64(s.Channels)
	}
}

// BitrateKbps is taken from the format layer, falling back to the sum
// of per-stream bitrates when the container omits an overall bitrate.
func (r *Result) BitrateKbps() int {
	if br, err := strconv.ParseInt(r.raw.Format.Bitrate, 10, 64); err == nil && br > 0 {
		return int(br / 1000)
	}
	var sum int64
	for _, s := range r.raw.Streams {
		if br, err := strconv.ParseInt(s.BitRate, 10, 64); err == nil {
			sum += br
		}
	}
	return int(sum / 1000)
}

// HDRType reports the dynamic-range classification of the first video
// stream: Dolby Vision via side-data, otherwise PQ/HLG transfer tags.
func (r *Result) HDRType() string {
	s, ok := r.videoStream()
	if !ok {
		return "SDR"
	}
	for _, sd := range s.SideDataList {
		t := strings.ToLower(sd.SideDataType)
		if strings.Contains(t, "dovi") || strings.Contains(t, "dolby vision") {
			return "DolbyVision"
		}
	}
	switch s.ColorTransfer {
	case "smpte2084":
		return "HDR10"
	case "arib-std-b67":
		return "HLG"
	}
	return "SDR"
}

// AudioTrack describes one audio stream's track-level metadata.
type AudioTrack struct {
	Language string
	Channels int
}

func (r *Result) AudioTracks() []AudioTrack {
	var tracks []AudioTrack
	for _, s := range r.raw.Streams {
		if s.CodecType != "audio" {
			continue
		}
		tracks = append(tracks, AudioTrack{
			Language: s.Tags["language"],
			Channels: s.Channels,
		})
	}
	return tracks
}

// SubtitleTrack describes one subtitle stream's track-level metadata.
type SubtitleTrack struct {
	Language string
}

func (r *Result) SubtitleTracks() []SubtitleTrack {
	var tracks []SubtitleTrack
	for _, s := range r.raw.Streams {
		if s.CodecType != "subtitle" {
			continue
		}
		tracks = append(tracks, SubtitleTrack{Language: s.Tags["language"]})
	}
	return tracks
}

// Container returns the first comma-separated format name ffprobe
// reports (e.g. "matroska,webm" -> "matroska").
func (r *Result) Container() string {
	name := r.raw.Format.FormatName
	if idx := strings.Index(name, ","); idx >= 0 {
		name = name[:idx]
	}
	return name
}
