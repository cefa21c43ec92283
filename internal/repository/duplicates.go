package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shannon-orourke/mediavault/internal/coreerr"
	"github.com/shannon-orourke/mediavault/internal/models"
)

type DuplicateRepository struct {
	db *sql.DB
}

func NewDuplicateRepository(db *sql.DB) *DuplicateRepository {
	return &DuplicateRepository{db: db}
}

// ListGroupFingerprints returns fingerprint -> group id for every
// existing group, used by rebuild to decide what to delete vs update.
func (r *DuplicateRepository) ListGroupFingerprints(ctx context.Context) (map[string]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT group_fingerprint, id FROM duplicate_groups`)
	if err != nil {
		return nil, fmt.Errorf("list group fingerprints: %w", err)
	}
	defer rows.Close()

	out := map[string]uuid.UUID{}
	for rows.Next() {
		var fp string
		var id uuid.UUID
		if err := rows.Scan(&fp, &id); err != nil {
			return nil, fmt.Errorf("scan group fingerprint: %w", err)
		}
		out[fp] = id
	}
	return out, rows.Err()
}

// GetReviewState returns the reviewed/reviewed_at pair for an existing
// group fingerprint so rebuild can preserve human review state across
// a reappearing group. Returns reviewed=false, reviewedAt=nil if no
// such group currently exists.
func (r *DuplicateRepository) GetReviewState(ctx context.Context, groupFingerprint string) (reviewed bool, reviewedAt *time.Time, err error) {
	row := r.db.QueryRowContext(ctx, `SELECT reviewed, reviewed_at FROM duplicate_groups WHERE group_fingerprint = $1`, groupFingerprint)
	var rv bool
	var rt sql.NullTime
	if scanErr := row.Scan(&rv, &rt); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("get review state: %w", scanErr)
	}
	if rt.Valid {
		return rv, &rt.Time, nil
	}
	return rv, nil, nil
}

// DeleteGroups removes the groups with the given ids; their members
// cascade via the foreign key.
func (r *DuplicateRepository) DeleteGroups(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM duplicate_groups WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete group %s: %w", id, err)
		}
	}
	return nil
}

// UpsertGroup inserts or updates g by group_fingerprint, preserving
// reviewed/reviewed_at via ON CONFLICT DO UPDATE that never touches
// those two columns.
func (r *DuplicateRepository) UpsertGroup(ctx context.Context, tx *sql.Tx, g *models.DuplicateGroup) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO duplicate_groups (
			id, group_fingerprint, kind, confidence, title, year, season, episode, media_kind,
			member_count, recommended_action, action_reason, reviewed, reviewed_at, detected_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (group_fingerprint) DO UPDATE SET
			kind = EXCLUDED.kind,
			confidence = EXCLUDED.confidence,
			title = EXCLUDED.title,
			year = EXCLUDED.year,
			season = EXCLUDED.season,
			episode = EXCLUDED.episode,
			media_kind = EXCLUDED.media_kind,
			member_count = EXCLUDED.member_count,
			recommended_action = EXCLUDED.recommended_action,
			action_reason = EXCLUDED.action_reason
		`,
		g.ID, g.GroupFingerprint, g.Kind, g.Confidence, g.Title, g.Year, g.Season, g.Episode,
		g.MediaKind, g.MemberCount, g.RecommendedAction, g.ActionReason, g.Reviewed, g.ReviewedAt,
		g.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert group: %w", err)
	}
	// The fingerprint's id may differ from g.ID when the row already
	// existed (ON CONFLICT doesn't report the existing key); refresh it.
	return tx.QueryRowContext(ctx, `SELECT id FROM duplicate_groups WHERE group_fingerprint = $1`, g.GroupFingerprint).Scan(&g.ID)
}

// ReplaceMembers deletes every existing member row for groupID and
// inserts members, implementing "group members are replaced wholesale."
func (r *DuplicateRepository) ReplaceMembers(ctx context.Context, tx *sql.Tx, groupID uuid.UUID, members []models.DuplicateMember) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM duplicate_members WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}
	for _, m := range members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO duplicate_members (group_id, asset_id, rank, recommended_action, action_reason)
			VALUES ($1,$2,$3,$4,$5)
			`, groupID, m.AssetID, m.Rank, m.RecommendedAction, m.ActionReason); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}
	return nil
}

func (r *DuplicateRepository) GetGroupByID(ctx context.Context, id uuid.UUID) (*models.DuplicateGroup, error) {
	g := &models.DuplicateGroup{}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, group_fingerprint, kind, confidence, title, year, season, episode, media_kind,
			member_count, recommended_action, action_reason, reviewed, reviewed_at, detected_at
		FROM duplicate_groups WHERE id = $1
		`, id)
	err := row.Scan(&g.ID, &g.GroupFingerprint, &g.Kind, &g.Confidence, &g.Title, &g.Year,
		&g.Season, &g.Episode, &g.MediaKind, &g.MemberCount, &g.RecommendedAction, &g.ActionReason,
		&g.Reviewed, &g.ReviewedAt, &g.DetectedAt)
	if err == sql.ErrNoRows {
		return nil, coreerr.New(coreerr.NotFound, "DuplicateRepository.GetGroupByID", "no group with id "+id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// AcquireRebuildLock and ReleaseRebuildLock use a Postgres session
// advisory lock (pg_try_advisory_lock) so a concurrent rebuild
// attempt fails fast with Conflict rather than blocking.
const rebuildLockKey = 847_261_001

func (r *DuplicateRepository) AcquireRebuildLock(ctx context.Context, conn *sql.Conn) error {
	var ok bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, rebuildLockKey).Scan(&ok); err != nil {
		return fmt.Errorf("acquire rebuild lock: %w", err)
	}
	if !ok {
		return coreerr.New(coreerr.Conflict, "DuplicateRepository.AcquireRebuildLock", "a duplicate rebuild is already in progress")
	}
	return nil
}

func (r *DuplicateRepository) ReleaseRebuildLock(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, rebuildLockKey)
	if err != nil {
		return fmt.Errorf("release rebuild lock: %w", err)
	}
	return nil
}
