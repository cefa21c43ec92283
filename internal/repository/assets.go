// Package repository implements raw database/sql access to the
// catalog, one file per aggregate, following the teacher's
// hand-written-SQL repository style rather than an ORM.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shannon-orourke/mediavault/internal/coreerr"
	"github.com/shannon-orourke/mediavault/internal/models"
)

type AssetRepository struct {
	db *sql.DB
}

func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

const assetColumns = `id, logical_path, filename, size_bytes, content_fingerprint, container,
	video_codec, audio_codec, width, height, resolution_tier, bitrate_kbps, framerate_fps,
	duration_seconds, audio_channels, audio_track_count, subtitle_track_count, audio_languages,
	subtitle_languages, dominant_audio_language, hdr_type, parsed_title, parsed_year,
	parsed_season, parsed_episode, parsed_release_group, media_kind, quality_score, is_staged,
	is_deleted, discovered_at, last_scanned_at, metadata_updated_at`

func scanAsset(row interface{ Scan(...interface{}) error }) (*models.MediaAsset, error) {
	a := &models.MediaAsset{}
	err := row.Scan(
		&a.ID, &a.LogicalPath, &a.Filename, &a.SizeBytes, &a.ContentFingerprint, &a.Container,
		&a.VideoCodec, &a.AudioCodec, &a.Width, &a.Height, &a.ResolutionTier, &a.BitrateKbps,
		&a.FramerateFPS, &a.DurationSeconds, &a.AudioChannels, &a.AudioTrackCount,
		&a.SubtitleTrackCount, pq.Array(&a.AudioLanguages), pq.Array(&a.SubtitleLanguages),
		&a.DominantAudioLanguage, &a.HDRType, &a.ParsedTitle, &a.ParsedYear, &a.ParsedSeason,
		&a.ParsedEpisode, &a.ParsedReleaseGroup, &a.MediaKind, &a.QualityScore, &a.IsStaged,
		&a.IsDeleted, &a.DiscoveredAt, &a.LastScannedAt, &a.MetadataUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByLogicalPath returns the asset at logicalPath, or a NotFound
// coreerr if none exists.
func (r *AssetRepository) GetByLogicalPath(ctx context.Context, logicalPath string) (*models.MediaAsset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM media_assets WHERE logical_path = $1`, logicalPath)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, coreerr.New(coreerr.NotFound, "AssetRepository.GetByLogicalPath", "no asset at "+logicalPath)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset by logical path: %w", err)
	}
	return a, nil
}

func (r *AssetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MediaAsset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM media_assets WHERE id = $1`, id)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, coreerr.New(coreerr.NotFound, "AssetRepository.GetByID", "no asset with id "+id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get asset by id: %w", err)
	}
	return a, nil
}

// Upsert inserts a on first sight, updates it on subsequent sight.
// discovered_at is preserved across updates (callers must not mutate
// it for existing rows before calling Upsert); the caller determines
// files_new vs files_updated by checking existence beforehand.
func (r *AssetRepository) Upsert(ctx context.Context, tx *sql.Tx, a *models.MediaAsset) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO media_assets (
			id, logical_path, filename, size_bytes, content_fingerprint, container,
			video_codec, audio_codec, width, height, resolution_tier, bitrate_kbps, framerate_fps,
			duration_seconds, audio_channels, audio_track_count, subtitle_track_count,
			audio_languages, subtitle_languages, dominant_audio_language, hdr_type, parsed_title,
			parsed_year, parsed_season, parsed_episode, parsed_release_group, media_kind,
			quality_score, is_staged, is_deleted, discovered_at, last_scanned_at, metadata_updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,
			$25,$26,$27,$28,$29,$30,$31,$32,$33
		)
		ON CONFLICT (logical_path) DO UPDATE SET
			filename = EXCLUDED.filename,
			size_bytes = EXCLUDED.size_bytes,
			content_fingerprint = EXCLUDED.content_fingerprint,
			container = EXCLUDED.container,
			video_codec = EXCLUDED.video_codec,
			audio_codec = EXCLUDED.audio_codec,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			resolution_tier = EXCLUDED.resolution_tier,
			bitrate_kbps = EXCLUDED.bitrate_kbps,
			framerate_fps = EXCLUDED.framerate_fps,
			duration_seconds = EXCLUDED.duration_seconds,
			audio_channels = EXCLUDED.audio_channels,
			audio_track_count = EXCLUDED.audio_track_count,
			subtitle_track_count = EXCLUDED.subtitle_track_count,
			audio_languages = EXCLUDED.audio_languages,
			subtitle_languages = EXCLUDED.subtitle_languages,
			dominant_audio_language = EXCLUDED.dominant_audio_language,
			hdr_type = EXCLUDED.hdr_type,
			parsed_title = EXCLUDED.parsed_title,
			parsed_year = EXCLUDED.parsed_year,
			parsed_season = EXCLUDED.parsed_season,
			parsed_episode = EXCLUDED.parsed_episode,
			parsed_release_group = EXCLUDED.parsed_release_group,
			media_kind = EXCLUDED.media_kind,
			quality_score = EXCLUDED.quality_score,
			is_staged = EXCLUDED.is_staged,
			is_deleted = FALSE,
			last_scanned_at = EXCLUDED.last_scanned_at,
			metadata_updated_at = EXCLUDED.metadata_updated_at
		`,
		a.ID, a.LogicalPath, a.Filename, a.SizeBytes, a.ContentFingerprint, a.Container,
		a.VideoCodec, a.AudioCodec, a.Width, a.Height, a.ResolutionTier, a.BitrateKbps,
		a.FramerateFPS, a.DurationSeconds, a.AudioChannels, a.AudioTrackCount,
		a.SubtitleTrackCount, pq.Array(a.AudioLanguages), pq.Array(a.SubtitleLanguages),
		a.DominantAudioLanguage, a.HDRType, a.ParsedTitle, a.ParsedYear, a.ParsedSeason,
		a.ParsedEpisode, a.ParsedReleaseGroup, a.MediaKind, a.QualityScore, a.IsStaged,
		a.IsDeleted, a.DiscoveredAt, a.LastScannedAt, a.MetadataUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert asset: %w", err)
	}
	return nil
}

// MarkDeletedNotSeen sets is_deleted=true and metadata_updated_at=now()
// for every live asset whose logical_path has the given root prefix and
// was not present in seenPaths. Used by full scans to retire vanished
// files. No separate deletion timestamp is recorded: media_assets has
// no deleted_at column.
func (r *AssetRepository) MarkDeletedNotSeen(ctx context.Context, tx *sql.Tx, root string, seenPaths []string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE media_assets
		SET is_deleted = TRUE, metadata_updated_at = NOW()
		WHERE is_deleted = FALSE
		  AND logical_path LIKE $1 || '%'
		  AND NOT (logical_path = ANY($2))
		`, root, pq.Array(seenPaths))
	if err != nil {
		return 0, fmt.Errorf("mark deleted: %w", err)
	}
	return res.RowsAffected()
}

// ListLive returns every non-deleted asset, used by the duplicate
// engine to build its working set.
func (r *AssetRepository) ListLive(ctx context.Context) ([]*models.MediaAsset, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+assetColumns+` FROM media_assets WHERE is_deleted = FALSE`)
	if err != nil {
		return nil, fmt.Errorf("list live assets: %w", err)
	}
	defer rows.Close()

	var out []*models.MediaAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssetRepository) SetStaged(ctx context.Context, tx *sql.Tx, id uuid.UUID, staged bool) error {
	_, err := tx.ExecContext(ctx, `UPDATE media_assets SET is_staged = $2, metadata_updated_at = NOW() WHERE id = $1`, id, staged)
	if err != nil {
		return fmt.Errorf("set staged: %w", err)
	}
	return nil
}

func (r *AssetRepository) MarkDeleted(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE media_assets SET is_deleted = TRUE, is_staged = FALSE, metadata_updated_at = NOW() WHERE id = $1
		`, id)
	if err != nil {
		return fmt.Errorf("mark asset deleted: %w", err)
	}
	return nil
}
