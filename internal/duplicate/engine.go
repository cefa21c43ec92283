// Package duplicate implements C5: rebuilding the duplicate-group
// inventory from the live asset set via an exact pass over content
// fingerprints and a fuzzy pass over parsed identity.
package duplicate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shannon-orourke/mediavault/internal/models"
	"github.com/shannon-orourke/mediavault/internal/repository"
)

type Engine struct {
	db             *sql.DB
	assetRepo      *repository.AssetRepository
	dupRepo        *repository.DuplicateRepository
	fuzzyThreshold int
	log            zerolog.Logger
}

func New(db *sql.DB, assetRepo *repository.AssetRepository, dupRepo *repository.DuplicateRepository, fuzzyThreshold int, log zerolog.Logger) *Engine {
	return &Engine{db: db, assetRepo: assetRepo, dupRepo: dupRepo, fuzzyThreshold: fuzzyThreshold, log: log}
}

// Report summarizes one rebuild's effect on the group tables.
type Report struct {
	GroupsCreated int
	GroupsUpdated int
	GroupsDeleted int
	MembersTotal  int
}

// Rebuild recomputes every duplicate group from the current live asset
// set. It is idempotent and destructive toward groups whose
// fingerprint no longer appears, and serialized against concurrent
// rebuilds by a named advisory lock.
func (e *Engine) Rebuild(ctx context.Context) (*Report, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("duplicate: reserve connection: %w", err)
	}
	defer conn.Close()

	if err := e.dupRepo.AcquireRebuildLock(ctx, conn); err != nil {
		return nil, err
	}
	defer func() {
		if relErr := e.dupRepo.ReleaseRebuildLock(ctx, conn); relErr != nil {
			e.log.Error().Err(relErr).Msg("failed to release duplicate rebuild lock")
		}
	}()

	assets, err := e.assetRepo.ListLive(ctx)
	if err != nil {
		return nil, fmt.Errorf("duplicate: list live assets: %w", err)
	}

	candidates := buildGroups(assets, e.fuzzyThreshold)
	existing, err := e.dupRepo.ListGroupFingerprints(ctx)
	if err != nil {
		return nil, fmt.Errorf("duplicate: list existing fingerprints: %w", err)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("duplicate: begin rebuild transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	report := &Report{}
	seen := map[string]bool{}

	for _, cand := range candidates {
		seen[cand.fingerprint] = true
		_, existedBefore := existing[cand.fingerprint]

		reviewed, reviewedAt, err := e.dupRepo.GetReviewState(ctx, cand.fingerprint)
		if err != nil {
			return nil, fmt.Errorf("duplicate: get review state for %s: %w", cand.fingerprint, err)
		}

		ranked := rankAndRecommend(cand.members)
		recommendation, reason := groupRecommendation(ranked)

		group := &models.DuplicateGroup{
			GroupFingerprint:  cand.fingerprint,
			Kind:              cand.kind,
			Confidence:        cand.confidence,
			Title:             cand.title,
			Year:              cand.year,
			Season:            cand.season,
			Episode:           cand.episode,
			MediaKind:         cand.mediaKind,
			MemberCount:       len(ranked),
			RecommendedAction: recommendation,
			ActionReason:      reason,
			Reviewed:          reviewed,
			ReviewedAt:        reviewedAt,
			DetectedAt:        time.Now(),
		}

		if err := e.dupRepo.UpsertGroup(ctx, tx, group); err != nil {
			return nil, fmt.Errorf("duplicate: upsert group %s: %w", cand.fingerprint, err)
		}

		members := make([]models.DuplicateMember, 0, len(ranked))
		for _, r := range ranked {
			members = append(members, models.DuplicateMember{
				GroupID:           group.ID,
				AssetID:           r.asset.ID,
				Rank:              r.rank,
				RecommendedAction: r.recommendedAction,
				ActionReason:      r.actionReason,
			})
		}
		if err := e.dupRepo.ReplaceMembers(ctx, tx, group.ID, members); err != nil {
			return nil, fmt.Errorf("duplicate: replace members for %s: %w", cand.fingerprint, err)
		}

		if existedBefore {
			report.GroupsUpdated++
		} else {
			report.GroupsCreated++
		}
		report.MembersTotal += len(members)
	}

	var stale []uuid.UUID
	for fp, id := range existing {
		if !seen[fp] {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := e.dupRepo.DeleteGroups(ctx, tx, stale); err != nil {
			return nil, fmt.Errorf("duplicate: delete stale groups: %w", err)
		}
		report.GroupsDeleted = len(stale)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("duplicate: commit rebuild: %w", err)
	}
	return report, nil
}
