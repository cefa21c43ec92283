// Package staging implements C6: the two-phase stage/approve/restore
// deletion workflow and its administrative cleanup sweep, logging
// every filesystem mutation as an ArchiveOperation.
package staging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shannon-orourke/mediavault/internal/coreerr"
	"github.com/shannon-orourke/mediavault/internal/duplicate"
	"github.com/shannon-orourke/mediavault/internal/models"
	"github.com/shannon-orourke/mediavault/internal/pathresolve"
	"github.com/shannon-orourke/mediavault/internal/repository"
)

type Stager struct {
	db          *sql.DB
	resolver    *pathresolve.Resolver
	assetRepo   *repository.AssetRepository
	pendingRepo *repository.PendingDeletionRepository
	archiveRepo *repository.ArchiveOperationRepository
	log         zerolog.Logger
}

func New(
	db *sql.DB,
	resolver *pathresolve.Resolver,
	assetRepo *repository.AssetRepository,
	pendingRepo *repository.PendingDeletionRepository,
	archiveRepo *repository.ArchiveOperationRepository,
	log zerolog.Logger,
) *Stager {
	return &Stager{
		db:          db,
		resolver:    resolver,
		assetRepo:   assetRepo,
		pendingRepo: pendingRepo,
		archiveRepo: archiveRepo,
		log:         log,
	}
}

// mediaKindSubdir picks the staging subdirectory for kind. Only movie
// and tv are distinguished today; MediaKind has no documentary value
// yet, so a future one falls under "other" until the catalog can
// actually classify it (see DESIGN.md open question 6).
func mediaKindSubdir(kind models.MediaKind) string {
	switch kind {
	case models.MediaKindMovie:
		return "movies"
	case models.MediaKindTV:
		return "tv"
	default:
		return "other"
	}
}

// Stage moves assetID's file into a staging directory (or records it
// as source-missing) and inserts the corresponding PendingDeletion.
func (s *Stager) Stage(ctx context.Context, assetID uuid.UUID, reason string, groupID, betterAssetID *uuid.UUID) (*models.PendingDeletion, error) {
	asset, err := s.assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.IsStaged {
		return nil, coreerr.New(coreerr.Conflict, "staging.Stage", "asset is already staged")
	}

	var stagedPath *string
	var sourceMissing bool
	var moveSucceeded bool

	absPath, resolved := s.resolver.Resolve(asset.LogicalPath)
	if resolved {
		destDir, ok := s.resolver.FirstWritableStageRoot(filepath.Join(mediaKindSubdir(asset.MediaKind), time.Now().Format("2006-01-02")))
		if !ok {
			return nil, coreerr.New(coreerr.DependencyFailed, "staging.Stage", "no writable stage root available")
		}
		destPath, err := uniqueDestPath(destDir, filepath.Base(absPath))
		if err != nil {
			return nil, coreerr.Wrap(coreerr.IOError, "staging.Stage", "could not compute a unique staging destination", err)
		}
		if err := moveFile(absPath, destPath); err != nil {
			return nil, coreerr.Wrap(coreerr.IOError, "staging.Stage", "failed to move file into staging", err)
		}
		stagedPath = &destPath
		moveSucceeded = true
	} else {
		sourceMissing = true
		s.log.Warn().Str("logical_path", asset.LogicalPath).Msg("staging source file could not be resolved; recording source_missing")
	}

	var languageConcern bool
	var languageConcernReason string
	var qualityDelta int
	if betterAssetID != nil {
		better, err := s.assetRepo.GetByID(ctx, *betterAssetID)
		if err == nil {
			qualityDelta = better.QualityScore - asset.QualityScore
			pass, guardReason := duplicate.LanguageGuardrailPasses(asset, better)
			if !pass {
				languageConcern = true
				languageConcernReason = guardReason
			}
		}
	}

	pd := &models.PendingDeletion{
		ID:                    uuid.New(),
		AssetID:               assetID,
		OriginalLogicalPath:   asset.LogicalPath,
		StagedPath:            stagedPath,
		SizeBytes:             asset.SizeBytes,
		Reason:                reason,
		GroupID:               groupID,
		BetterAssetID:         betterAssetID,
		QualityDelta:          qualityDelta,
		LanguageConcern:       languageConcern,
		LanguageConcernReason: languageConcernReason,
		StagedAt:              time.Now(),
		Metadata:              models.PendingDeletionMetadata{SourceMissing: sourceMissing},
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.compensateFailedStage(stagedPath, absPath, moveSucceeded)
		return nil, fmt.Errorf("staging: begin stage transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.pendingRepo.Insert(ctx, tx, pd); err != nil {
		s.compensateFailedStage(stagedPath, absPath, moveSucceeded)
		return nil, fmt.Errorf("staging: insert pending deletion: %w", err)
	}
	if err := s.assetRepo.SetStaged(ctx, tx, assetID, true); err != nil {
		s.compensateFailedStage(stagedPath, absPath, moveSucceeded)
		return nil, fmt.Errorf("staging: mark asset staged: %w", err)
	}
	archiveOp := &models.ArchiveOperation{
		AssetID:    assetID,
		Kind:       models.ArchiveOpStage,
		SourcePath: asset.LogicalPath,
		Success:    moveSucceeded || sourceMissing,
		PerformedAt: time.Now(),
		PerformedBy: "system",
	}
	if stagedPath != nil {
		archiveOp.DestinationPath = *stagedPath
	}
	if err := s.archiveRepo.Append(ctx, tx, archiveOp); err != nil {
		s.compensateFailedStage(stagedPath, absPath, moveSucceeded)
		return nil, fmt.Errorf("staging: append archive operation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.compensateFailedStage(stagedPath, absPath, moveSucceeded)
		return nil, fmt.Errorf("staging: commit stage: %w", err)
	}
	return pd, nil
}

// compensateFailedStage best-effort moves a file back to its original
// location if the database work that should have recorded the move
// never committed, so a crash mid-stage doesn't silently relocate a
// file the catalog knows nothing about.
func (s *Stager) compensateFailedStage(stagedPath *string, originalPath string, moved bool) {
	if !moved || stagedPath == nil {
		return
	}
	if err := os.Rename(*stagedPath, originalPath); err != nil {
		s.log.Error().Err(err).Str("staged_path", *stagedPath).Msg("failed to compensate a stage whose transaction did not commit")
	}
}

// Approve permanently removes a staged file and finalizes its
// PendingDeletion.
func (s *Stager) Approve(ctx context.Context, pendingID uuid.UUID, approver string) (*models.PendingDeletion, error) {
	pd, err := s.pendingRepo.GetByID(ctx, pendingID)
	if err != nil {
		return nil, err
	}
	if pd.DeletedAt != nil {
		return nil, coreerr.New(coreerr.InvalidState, "staging.Approve", "pending deletion is already finalized")
	}

	if pd.StagedPath != nil {
		if _, statErr := os.Stat(*pd.StagedPath); statErr == nil {
			if rmErr := os.Remove(*pd.StagedPath); rmErr != nil {
				return nil, coreerr.Wrap(coreerr.IOError, "staging.Approve", "failed to remove staged file", rmErr)
			}
		} else if !errors.Is(statErr, os.ErrNotExist) {
			return nil, coreerr.Wrap(coreerr.IOError, "staging.Approve", "failed to stat staged file", statErr)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("staging: begin approve transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.pendingRepo.MarkApproved(ctx, tx, pendingID, approver); err != nil {
		return nil, fmt.Errorf("staging: mark approved: %w", err)
	}
	if err := s.assetRepo.MarkDeleted(ctx, tx, pd.AssetID); err != nil {
		return nil, fmt.Errorf("staging: mark asset deleted: %w", err)
	}
	if err := s.archiveRepo.Append(ctx, tx, &models.ArchiveOperation{
		AssetID:     pd.AssetID,
		Kind:        models.ArchiveOpDelete,
		SourcePath:  pd.OriginalLogicalPath,
		Success:     true,
		PerformedAt: time.Now(),
		PerformedBy: approver,
	}); err != nil {
		return nil, fmt.Errorf("staging: append archive operation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("staging: commit approve: %w", err)
	}

	pd.Approved = true
	now := time.Now()
	pd.ApprovedAt = &now
	pd.ApprovedBy = &approver
	pd.DeletedAt = &now
	return pd, nil
}

// Restore moves a staged file back to its original location (or, for
// a source-missing pending deletion, simply drops the record) and
// clears the asset's staged flag.
func (s *Stager) Restore(ctx context.Context, pendingID uuid.UUID) (uuid.UUID, error) {
	pd, err := s.pendingRepo.GetByID(ctx, pendingID)
	if err != nil {
		return uuid.Nil, err
	}
	if pd.DeletedAt != nil {
		return uuid.Nil, coreerr.New(coreerr.InvalidState, "staging.Restore", "pending deletion is already finalized")
	}

	if pd.StagedPath != nil {
		if _, statErr := os.Stat(*pd.StagedPath); statErr == nil {
			destAbs := s.resolver.RewriteForWrite(pd.OriginalLogicalPath)
			if err := os.MkdirAll(filepath.Dir(destAbs), 0o755); err != nil {
				return uuid.Nil, coreerr.Wrap(coreerr.IOError, "staging.Restore", "failed to create destination directory", err)
			}
			if _, err := os.Stat(destAbs); err == nil {
				return uuid.Nil, coreerr.New(coreerr.Conflict, "staging.Restore", "a file already exists at the original location")
			}
			if err := moveFile(*pd.StagedPath, destAbs); err != nil {
				return uuid.Nil, coreerr.Wrap(coreerr.IOError, "staging.Restore", "failed to move staged file back", err)
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("staging: begin restore transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.pendingRepo.Delete(ctx, tx, pendingID); err != nil {
		return uuid.Nil, fmt.Errorf("staging: delete pending deletion: %w", err)
	}
	if err := s.assetRepo.SetStaged(ctx, tx, pd.AssetID, false); err != nil {
		return uuid.Nil, fmt.Errorf("staging: clear asset staged flag: %w", err)
	}
	if err := s.archiveRepo.Append(ctx, tx, &models.ArchiveOperation{
		AssetID:     pd.AssetID,
		Kind:        models.ArchiveOpRestore,
		DestinationPath: pd.OriginalLogicalPath,
		Success:     true,
		PerformedAt: time.Now(),
		PerformedBy: "system",
	}); err != nil {
		return uuid.Nil, fmt.Errorf("staging: append archive operation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("staging: commit restore: %w", err)
	}
	return pd.AssetID, nil
}

// Cleanup reconciles any PendingDeletion rows marked approved out of
// band whose physical deletion never completed, bounded by age_days
// on staged_at. It never sets approved=true itself.
func (s *Stager) Cleanup(ctx context.Context, ageDays int) (int, error) {
	rows, err := s.pendingRepo.ListApprovedAwaitingSweep(ctx, ageDays)
	if err != nil {
		return 0, fmt.Errorf("staging: list sweep candidates: %w", err)
	}

	swept := 0
	for _, pd := range rows {
		if pd.StagedPath != nil {
			if _, statErr := os.Stat(*pd.StagedPath); statErr == nil {
				if rmErr := os.Remove(*pd.StagedPath); rmErr != nil {
					s.log.Error().Err(rmErr).Str("staged_path", *pd.StagedPath).Msg("cleanup failed to remove staged file")
					continue
				}
			}
		}

		err := func() error {
			tx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Rollback() }()

			if err := s.pendingRepo.FinalizeSweep(ctx, tx, pd.ID); err != nil {
				return err
			}
			if err := s.assetRepo.MarkDeleted(ctx, tx, pd.AssetID); err != nil {
				return err
			}
			if err := s.archiveRepo.Append(ctx, tx, &models.ArchiveOperation{
				AssetID:     pd.AssetID,
				Kind:        models.ArchiveOpDelete,
				SourcePath:  pd.OriginalLogicalPath,
				Success:     true,
				PerformedAt: time.Now(),
				PerformedBy: "cleanup",
			}); err != nil {
				return err
			}
			return tx.Commit()
		}()
		if err != nil {
			s.log.Error().Err(err).Str("pending_deletion_id", pd.ID.String()).Msg("cleanup sweep failed to finalize row")
			continue
		}
		swept++
	}
	return swept, nil
}

// uniqueDestPath returns destDir/baseName, suffixing with _1, _2, ...
// until no file exists at the candidate path.
func uniqueDestPath(destDir, baseName string) (string, error) {
	ext := filepath.Ext(baseName)
	stem := baseName[:len(baseName)-len(ext)]

	candidate := filepath.Join(destDir, baseName)
	for i := 1; ; i++ {
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
		candidate = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if i > 10000 {
			return "", fmt.Errorf("could not find a unique destination for %s after %d attempts", baseName, i)
		}
	}
}

// moveFile renames src to dst, falling back to a copy-then-remove when
// the two paths are on different filesystems (EXDEV), which a plain
// rename cannot cross.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	return copyThenRemove(src, dst)
}

func copyThenRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
