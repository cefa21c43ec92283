package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

type MediaKind string

const (
	MediaKindMovie   MediaKind = "movie"
	MediaKindTV      MediaKind = "tv"
	MediaKindOther   MediaKind = "other"
	MediaKindUnknown MediaKind = "unknown"
)

type HDRType string

const (
	HDRNone        HDRType = "SDR"
	HDR10          HDRType = "HDR10"
	HDRDolbyVision HDRType = "DolbyVision"
	HDRHLG         HDRType = "HLG"
	HDRUnknown     HDRType = "unknown"
)

type ResolutionTier string

const (
	Tier2160p ResolutionTier = "2160p"
	Tier1080p ResolutionTier = "1080p"
	Tier720p  ResolutionTier = "720p"
	Tier480p  ResolutionTier = "480p"
	TierSD    ResolutionTier = "SD"
)

type DuplicateGroupKind string

const (
	DuplicateKindExact DuplicateGroupKind = "exact"
	DuplicateKindFuzzy DuplicateGroupKind = "fuzzy"
)

type RecommendedAction string

const (
	ActionKeep   RecommendedAction = "keep"
	ActionReview RecommendedAction = "review"
	ActionStage  RecommendedAction = "stage"
)

type GroupRecommendation string

const (
	GroupActionReview     GroupRecommendation = "review"
	GroupActionStageLower GroupRecommendation = "stage_lower"
)

type ScanKind string

const (
	ScanKindFull        ScanKind = "full"
	ScanKindIncremental ScanKind = "incremental"
)

type ScanStatus string

const (
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

type ArchiveOperationKind string

const (
	ArchiveOpStage   ArchiveOperationKind = "stage"
	ArchiveOpDelete  ArchiveOperationKind = "delete"
	ArchiveOpRestore ArchiveOperationKind = "restore"
)

// ──────────────────── MediaAsset ────────────────────

// MediaAsset is the canonical record for a single discovered media file.
type MediaAsset struct {
	ID                    uuid.UUID  `json:"id" db:"id"`
	LogicalPath           string     `json:"logical_path" db:"logical_path"`
	Filename              string     `json:"filename" db:"filename"`
	SizeBytes             int64      `json:"size_bytes" db:"size_bytes"`
	ContentFingerprint    *string    `json:"content_fingerprint,omitempty" db:"content_fingerprint"`
	Container             string     `json:"container" db:"container"`
	VideoCodec            string     `json:"video_codec" db:"video_codec"`
	AudioCodec            string     `json:"audio_codec" db:"audio_codec"`
	Width                 int        `json:"width" db:"width"`
	Height                int        `json:"height" db:"height"`
	ResolutionTier        ResolutionTier `json:"resolution_tier" db:"resolution_tier"`
	BitrateKbps           int        `json:"bitrate_kbps" db:"bitrate_kbps"`
	FramerateFPS          float64    `json:"framerate_fps" db:"framerate_fps"`
	DurationSeconds       float64    `json:"duration_seconds" db:"duration_seconds"`
	AudioChannels         float64    `json:"audio_channels" db:"audio_channels"`
	AudioTrackCount       int        `json:"audio_track_count" db:"audio_track_count"`
	SubtitleTrackCount    int        `json:"subtitle_track_count" db:"subtitle_track_count"`
	AudioLanguages        []string   `json:"audio_languages" db:"audio_languages"`
	SubtitleLanguages     []string   `json:"subtitle_languages" db:"subtitle_languages"`
	DominantAudioLanguage *string    `json:"dominant_audio_language,omitempty" db:"dominant_audio_language"`
	HDRType               HDRType    `json:"hdr_type" db:"hdr_type"`
	ParsedTitle           string     `json:"parsed_title" db:"parsed_title"`
	ParsedYear            *int       `json:"parsed_year,omitempty" db:"parsed_year"`
	ParsedSeason          *int       `json:"parsed_season,omitempty" db:"parsed_season"`
	ParsedEpisode         *int       `json:"parsed_episode,omitempty" db:"parsed_episode"`
	ParsedReleaseGroup    string     `json:"parsed_release_group,omitempty" db:"parsed_release_group"`
	MediaKind             MediaKind  `json:"media_kind" db:"media_kind"`
	QualityScore          int        `json:"quality_score" db:"quality_score"`
	IsStaged              bool       `json:"is_staged" db:"is_staged"`
	IsDeleted             bool       `json:"is_deleted" db:"is_deleted"`
	DiscoveredAt          time.Time  `json:"discovered_at" db:"discovered_at"`
	LastScannedAt         time.Time  `json:"last_scanned_at" db:"last_scanned_at"`
	MetadataUpdatedAt     time.Time  `json:"metadata_updated_at" db:"metadata_updated_at"`
}

// HasEnglishAudio reports whether English is among the asset's audio tracks.
func (a *MediaAsset) HasEnglishAudio() bool {
	for _, lang := range a.AudioLanguages {
		if lang == "en" {
			return true
		}
	}
	return false
}

// HasEnglishSubtitles reports whether English is among the asset's subtitle tracks.
func (a *MediaAsset) HasEnglishSubtitles() bool {
	for _, lang := range a.SubtitleLanguages {
		if lang == "en" {
			return true
		}
	}
	return false
}

// IsForeignLanguageTitle reports whether the asset carries no English audio
// but intentional English subtitles over a non-English dominant track.
func (a *MediaAsset) IsForeignLanguageTitle() bool {
	if a.HasEnglishAudio() {
		return false
	}
	if !a.HasEnglishSubtitles() {
		return false
	}
	return a.DominantAudioLanguage != nil && *a.DominantAudioLanguage != "en"
}

// ──────────────────── DuplicateGroup ────────────────────

type DuplicateGroup struct {
	ID                uuid.UUID           `json:"id" db:"id"`
	GroupFingerprint  string              `json:"group_fingerprint" db:"group_fingerprint"`
	Kind              DuplicateGroupKind  `json:"kind" db:"kind"`
	Confidence        float64             `json:"confidence" db:"confidence"`
	Title             string              `json:"title" db:"title"`
	Year              *int                `json:"year,omitempty" db:"year"`
	Season            *int                `json:"season,omitempty" db:"season"`
	Episode           *int                `json:"episode,omitempty" db:"episode"`
	MediaKind         MediaKind           `json:"media_kind" db:"media_kind"`
	MemberCount       int                 `json:"member_count" db:"member_count"`
	RecommendedAction GroupRecommendation `json:"recommended_action" db:"recommended_action"`
	ActionReason      string              `json:"action_reason" db:"action_reason"`
	Reviewed          bool                `json:"reviewed" db:"reviewed"`
	ReviewedAt        *time.Time          `json:"reviewed_at,omitempty" db:"reviewed_at"`
	DetectedAt        time.Time           `json:"detected_at" db:"detected_at"`
}

// ──────────────────── DuplicateMember ────────────────────

type DuplicateMember struct {
	GroupID           uuid.UUID         `json:"group_id" db:"group_id"`
	AssetID           uuid.UUID         `json:"asset_id" db:"asset_id"`
	Rank              int               `json:"rank" db:"rank"`
	RecommendedAction RecommendedAction `json:"recommended_action" db:"recommended_action"`
	ActionReason      string            `json:"action_reason" db:"action_reason"`
}

// ──────────────────── PendingDeletion ────────────────────

// PendingDeletionMetadata is the tagged-variant shape of the free-form
// metadata column. Unknown shapes round-trip through Extra.
type PendingDeletionMetadata struct {
	SourceMissing bool                   `json:"source_missing"`
	Extra         map[string]interface{} `json:"-"`
}

func (m PendingDeletionMetadata) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{"source_missing": m.SourceMissing}
	for k, v := range m.Extra {
		if k == "source_missing" {
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

func (m *PendingDeletionMetadata) UnmarshalJSON(data []byte) error {
	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["source_missing"].(bool); ok {
		m.SourceMissing = v
	}
	delete(raw, "source_missing")
	m.Extra = raw
	return nil
}

type PendingDeletion struct {
	ID                    uuid.UUID               `json:"id" db:"id"`
	AssetID               uuid.UUID               `json:"asset_id" db:"asset_id"`
	OriginalLogicalPath   string                  `json:"original_logical_path" db:"original_logical_path"`
	StagedPath            *string                 `json:"staged_path,omitempty" db:"staged_path"`
	SizeBytes             int64                   `json:"size_bytes" db:"size_bytes"`
	Reason                string                  `json:"reason" db:"reason"`
	GroupID               *uuid.UUID              `json:"group_id,omitempty" db:"group_id"`
	BetterAssetID         *uuid.UUID              `json:"better_asset_id,omitempty" db:"better_asset_id"`
	QualityDelta          int                     `json:"quality_delta" db:"quality_delta"`
	LanguageConcern       bool                    `json:"language_concern" db:"language_concern"`
	LanguageConcernReason string                  `json:"language_concern_reason" db:"language_concern_reason"`
	StagedAt              time.Time               `json:"staged_at" db:"staged_at"`
	Approved              bool                    `json:"approved" db:"approved"`
	ApprovedAt            *time.Time              `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedBy            *string                 `json:"approved_by,omitempty" db:"approved_by"`
	DeletedAt             *time.Time              `json:"deleted_at,omitempty" db:"deleted_at"`
	Metadata              PendingDeletionMetadata `json:"metadata" db:"metadata"`
}

// ──────────────────── ArchiveOperation ────────────────────

type ArchiveOperation struct {
	ID                uuid.UUID            `json:"id" db:"id"`
	AssetID           uuid.UUID            `json:"asset_id" db:"asset_id"`
	Kind              ArchiveOperationKind `json:"kind" db:"kind"`
	SourcePath        string               `json:"source_path" db:"source_path"`
	DestinationPath   string               `json:"destination_path" db:"destination_path"`
	Success           bool                 `json:"success" db:"success"`
	ErrorMessage       string              `json:"error_message,omitempty" db:"error_message"`
	PerformedAt       time.Time            `json:"performed_at" db:"performed_at"`
	PerformedBy       string               `json:"performed_by" db:"performed_by"`
	OperationMetadata map[string]interface{} `json:"operation_metadata,omitempty" db:"operation_metadata"`
}

// ──────────────────── ScanRun ────────────────────

type ScanErrorDetail struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type ScanRun struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	Kind          ScanKind          `json:"kind" db:"kind"`
	Roots         []string          `json:"roots" db:"roots"`
	StartedAt     time.Time         `json:"started_at" db:"started_at"`
	EndedAt       *time.Time        `json:"ended_at,omitempty" db:"ended_at"`
	FilesFound    int               `json:"files_found" db:"files_found"`
	FilesNew      int               `json:"files_new" db:"files_new"`
	FilesUpdated  int               `json:"files_updated" db:"files_updated"`
	FilesDeleted  int               `json:"files_deleted" db:"files_deleted"`
	ErrorsCount   int               `json:"errors_count" db:"errors_count"`
	ErrorDetails  []ScanErrorDetail `json:"error_details,omitempty" db:"error_details"`
	Status        ScanStatus        `json:"status" db:"status"`
	FailureReason string            `json:"failure_reason,omitempty" db:"failure_reason"`
}
