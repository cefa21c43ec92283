package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/shannon-orourke/mediavault/internal/coreerr"
	"github.com/shannon-orourke/mediavault/internal/models"
)

type PendingDeletionRepository struct {
	db *sql.DB
}

func NewPendingDeletionRepository(db *sql.DB) *PendingDeletionRepository {
	return &PendingDeletionRepository{db: db}
}

func scanPendingDeletion(row interface{ Scan(...interface{}) error }) (*models.PendingDeletion, error) {
	p := &models.PendingDeletion{}
	var metaRaw []byte
	err := row.Scan(
		&p.ID, &p.AssetID, &p.OriginalLogicalPath, &p.StagedPath, &p.SizeBytes, &p.Reason,
		&p.GroupID, &p.BetterAssetID, &p.QualityDelta, &p.LanguageConcern, &p.LanguageConcernReason,
		&p.StagedAt, &p.Approved, &p.ApprovedAt, &p.ApprovedBy, &p.DeletedAt, &metaRaw,
	)
	if err != nil {
		return nil, err
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &p.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal pending deletion metadata: %w", err)
		}
	}
	return p, nil
}

const pendingDeletionColumns = `id, asset_id, original_logical_path, staged_path, size_bytes, reason,
	group_id, better_asset_id, quality_delta, language_concern, language_concern_reason,
	staged_at, approved, approved_at, approved_by, deleted_at, metadata`

func (r *PendingDeletionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PendingDeletion, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+pendingDeletionColumns+` FROM pending_deletions WHERE id = $1`, id)
	p, err := scanPendingDeletion(row)
	if err == sql.ErrNoRows {
		return nil, coreerr.New(coreerr.NotFound, "PendingDeletionRepository.GetByID", "no pending deletion with id "+id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get pending deletion: %w", err)
	}
	return p, nil
}

func (r *PendingDeletionRepository) GetByAssetID(ctx context.Context, assetID uuid.UUID) (*models.PendingDeletion, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+pendingDeletionColumns+` FROM pending_deletions WHERE asset_id = $1`, assetID)
	p, err := scanPendingDeletion(row)
	if err == sql.ErrNoRows {
		return nil, coreerr.New(coreerr.NotFound, "PendingDeletionRepository.GetByAssetID", "no pending deletion for asset "+assetID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get pending deletion by asset: %w", err)
	}
	return p, nil
}

func (r *PendingDeletionRepository) Insert(ctx context.Context, tx *sql.Tx, p *models.PendingDeletion) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	metaRaw, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO pending_deletions (
			id, asset_id, original_logical_path, staged_path, size_bytes, reason, group_id,
			better_asset_id, quality_delta, language_concern, language_concern_reason, staged_at,
			approved, approved_at, approved_by, deleted_at, metadata
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		`,
		p.ID, p.AssetID, p.OriginalLogicalPath, p.StagedPath, p.SizeBytes, p.Reason, p.GroupID,
		p.BetterAssetID, p.QualityDelta, p.LanguageConcern, p.LanguageConcernReason, p.StagedAt,
		p.Approved, p.ApprovedAt, p.ApprovedBy, p.DeletedAt, metaRaw,
	)
	if err != nil {
		return fmt.Errorf("insert pending deletion: %w", err)
	}
	return nil
}

func (r *PendingDeletionRepository) MarkApproved(ctx context.Context, tx *sql.Tx, id uuid.UUID, approver string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE pending_deletions
		SET approved = TRUE, approved_at = NOW(), approved_by = $2, deleted_at = NOW()
		WHERE id = $1
		`, id, approver)
	if err != nil {
		return fmt.Errorf("mark pending deletion approved: %w", err)
	}
	return nil
}

// FinalizeSweep sets deleted_at=now() on a pending deletion that was
// already marked approved out of band, without re-touching approved
// or approved_by. Used by cleanup() to reconcile rows the ordinary
// approve() flow never got to finish.
func (r *PendingDeletionRepository) FinalizeSweep(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `UPDATE pending_deletions SET deleted_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("finalize sweep: %w", err)
	}
	return nil
}

func (r *PendingDeletionRepository) Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM pending_deletions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pending deletion: %w", err)
	}
	return nil
}

// ListApprovedAwaitingSweep returns pending deletions already approved
// but whose deleted_at (set at approve time) is still null and whose
// staged_at is more than olderThanDays days old. Such rows never occur
// in normal operation since approve() sets deleted_at in the same
// update as approved; the query serves administrative cleanup callers
// that pre-mark approved=true out of band.
func (r *PendingDeletionRepository) ListApprovedAwaitingSweep(ctx context.Context, olderThanDays int) ([]*models.PendingDeletion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+pendingDeletionColumns+` FROM pending_deletions
		WHERE approved = TRUE
		  AND deleted_at IS NULL
		  AND staged_at < NOW() - ($1 || ' days')::interval
		`, olderThanDays)
	if err != nil {
		return nil, fmt.Errorf("list approved awaiting sweep: %w", err)
	}
	defer rows.Close()

	var out []*models.PendingDeletion
	for rows.Next() {
		p, err := scanPendingDeletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending deletion: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ──────────────────── ArchiveOperationRepository ────────────────────

type ArchiveOperationRepository struct {
	db *sql.DB
}

func NewArchiveOperationRepository(db *sql.DB) *ArchiveOperationRepository {
	return &ArchiveOperationRepository{db: db}
}

func (r *ArchiveOperationRepository) Append(ctx context.Context, tx *sql.Tx, op *models.ArchiveOperation) error {
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	var metaRaw []byte
	var err error
	if op.OperationMetadata != nil {
		metaRaw, err = json.Marshal(op.OperationMetadata)
		if err != nil {
			return fmt.Errorf("marshal operation metadata: %w", err)
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO archive_operations (
			id, asset_id, kind, source_path, destination_path, success, error_message,
			performed_at, performed_by, operation_metadata
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`,
		op.ID, op.AssetID, op.Kind, op.SourcePath, op.DestinationPath, op.Success,
		op.ErrorMessage, op.PerformedAt, op.PerformedBy, metaRaw,
	)
	if err != nil {
		return fmt.Errorf("append archive operation: %w", err)
	}
	return nil
}
