package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shannon-orourke/mediavault/internal/coreerr"
	"github.com/shannon-orourke/mediavault/internal/models"
)

type ScanRunRepository struct {
	db *sql.DB
}

func NewScanRunRepository(db *sql.DB) *ScanRunRepository {
	return &ScanRunRepository{db: db}
}

func (r *ScanRunRepository) Create(ctx context.Context, run *models.ScanRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	detailsRaw, err := json.Marshal(run.ErrorDetails)
	if err != nil {
		return fmt.Errorf("marshal error details: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scan_runs (
			id, kind, roots, started_at, ended_at, files_found, files_new, files_updated,
			files_deleted, errors_count, error_details, status, failure_reason
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		`,
		run.ID, run.Kind, pq.Array(run.Roots), run.StartedAt, run.EndedAt, run.FilesFound,
		run.FilesNew, run.FilesUpdated, run.FilesDeleted, run.ErrorsCount, detailsRaw,
		run.Status, run.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("create scan run: %w", err)
	}
	return nil
}

// UpdateProgress persists the running counters for an in-flight scan run,
// called periodically so a crashed process leaves an observable partial run.
func (r *ScanRunRepository) UpdateProgress(ctx context.Context, id uuid.UUID, filesFound, filesNew, filesUpdated, filesDeleted, errorsCount int, errorDetails []models.ScanErrorDetail) error {
	detailsRaw, err := json.Marshal(errorDetails)
	if err != nil {
		return fmt.Errorf("marshal error details: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE scan_runs
		SET files_found = $2, files_new = $3, files_updated = $4, files_deleted = $5,
			errors_count = $6, error_details = $7
		WHERE id = $1
		`, id, filesFound, filesNew, filesUpdated, filesDeleted, errorsCount, detailsRaw)
	if err != nil {
		return fmt.Errorf("update scan run progress: %w", err)
	}
	return nil
}

func (r *ScanRunRepository) Finalize(ctx context.Context, id uuid.UUID, status models.ScanStatus, failureReason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE scan_runs SET status = $2, failure_reason = $3, ended_at = NOW() WHERE id = $1
		`, id, status, failureReason)
	if err != nil {
		return fmt.Errorf("finalize scan run: %w", err)
	}
	return nil
}

func (r *ScanRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ScanRun, error) {
	run := &models.ScanRun{}
	var detailsRaw []byte
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, roots, started_at, ended_at, files_found, files_new, files_updated,
			files_deleted, errors_count, error_details, status, failure_reason
		FROM scan_runs WHERE id = $1
		`, id)
	err := row.Scan(&run.ID, &run.Kind, pq.Array(&run.Roots), &run.StartedAt, &run.EndedAt,
		&run.FilesFound, &run.FilesNew, &run.FilesUpdated, &run.FilesDeleted, &run.ErrorsCount,
		&detailsRaw, &run.Status, &run.FailureReason)
	if err == sql.ErrNoRows {
		return nil, coreerr.New(coreerr.NotFound, "ScanRunRepository.GetByID", "no scan run with id "+id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get scan run: %w", err)
	}
	if len(detailsRaw) > 0 {
		if err := json.Unmarshal(detailsRaw, &run.ErrorDetails); err != nil {
			return nil, fmt.Errorf("unmarshal error details: %w", err)
		}
	}
	return run, nil
}

// GetLastCompletedScanTime returns the most recently started scan run
// of the given kind whose status is completed, or a NotFound coreerr if
// no such run exists yet.
func (r *ScanRunRepository) GetLastCompletedScanTime(ctx context.Context, kind models.ScanKind) (*models.ScanRun, error) {
	run := &models.ScanRun{}
	var detailsRaw []byte
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, roots, started_at, ended_at, files_found, files_new, files_updated,
			files_deleted, errors_count, error_details, status, failure_reason
		FROM scan_runs
		WHERE kind = $1 AND status = 'completed'
		ORDER BY started_at DESC
		LIMIT 1
		`, kind)
	err := row.Scan(&run.ID, &run.Kind, pq.Array(&run.Roots), &run.StartedAt, &run.EndedAt,
		&run.FilesFound, &run.FilesNew, &run.FilesUpdated, &run.FilesDeleted, &run.ErrorsCount,
		&detailsRaw, &run.Status, &run.FailureReason)
	if err == sql.ErrNoRows {
		return nil, coreerr.New(coreerr.NotFound, "ScanRunRepository.GetLastCompletedScanTime", "no completed scan run of kind "+string(kind))
	}
	if err != nil {
		return nil, fmt.Errorf("get last completed scan run: %w", err)
	}
	if len(detailsRaw) > 0 {
		if err := json.Unmarshal(detailsRaw, &run.ErrorDetails); err != nil {
			return nil, fmt.Errorf("unmarshal error details: %w", err)
		}
	}
	return run, nil
}
