package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/shannon-orourke/mediavault/internal/duplicate"
	"github.com/shannon-orourke/mediavault/internal/models"
	"github.com/shannon-orourke/mediavault/internal/scanner"
	"github.com/shannon-orourke/mediavault/internal/staging"
)

// ──────── Payloads ────────

type ScanPayload struct {
	Kind  string   `json:"kind"`
	Roots []string `json:"roots"`
}

type RebuildDuplicatesPayload struct{}

type CleanupDeletionsPayload struct {
	AgeDays int `json:"age_days"`
}

// ──────── Scan handler ────────

type ScanHandler struct {
	scanner *scanner.Scanner
	log     zerolog.Logger
}

func NewScanHandler(sc *scanner.Scanner, log zerolog.Logger) *ScanHandler {
	return &ScanHandler{scanner: sc, log: log}
}

func (h *ScanHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ScanPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal scan payload: %w", err)
	}

	kind := models.ScanKind(p.Kind)
	h.log.Info().Str("kind", p.Kind).Strs("roots", p.Roots).Msg("job: scan starting")

	run, err := h.scanner.RunScan(ctx, kind, p.Roots)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	h.log.Info().
		Str("run_id", run.ID.String()).
		Str("status", string(run.Status)).
		Int("files_found", run.FilesFound).
		Int("files_new", run.FilesNew).
		Int("files_updated", run.FilesUpdated).
		Int("files_deleted", run.FilesDeleted).
		Int("errors", run.ErrorsCount).
		Msg("job: scan finished")

	if run.Status == models.ScanStatusFailed {
		return fmt.Errorf("scan run %s failed: %s", run.ID, run.FailureReason)
	}
	return nil
}

// ScanTaskID returns a deterministic task ID so two requests for the
// same kind+roots combination while one is in flight collapse to one.
func ScanTaskID(kind models.ScanKind, roots []string) string {
	return "scan:" + string(kind) + ":" + strings.Join(roots, ",")
}

// ──────── Duplicate rebuild handler ────────

type RebuildDuplicatesHandler struct {
	engine *duplicate.Engine
	log    zerolog.Logger
}

func NewRebuildDuplicatesHandler(engine *duplicate.Engine, log zerolog.Logger) *RebuildDuplicatesHandler {
	return &RebuildDuplicatesHandler{engine: engine, log: log}
}

func (h *RebuildDuplicatesHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	h.log.Info().Msg("job: duplicate rebuild starting")
	report, err := h.engine.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild duplicates: %w", err)
	}
	h.log.Info().
		Int("groups_created", report.GroupsCreated).
		Int("groups_updated", report.GroupsUpdated).
		Int("groups_deleted", report.GroupsDeleted).
		Int("members_total", report.MembersTotal).
		Msg("job: duplicate rebuild finished")
	return nil
}

// ──────── Cleanup handler ────────

type CleanupDeletionsHandler struct {
	stager *staging.Stager
	log    zerolog.Logger
}

func NewCleanupDeletionsHandler(stager *staging.Stager, log zerolog.Logger) *CleanupDeletionsHandler {
	return &CleanupDeletionsHandler{stager: stager, log: log}
}

func (h *CleanupDeletionsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p CleanupDeletionsPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal cleanup payload: %w", err)
	}
	swept, err := h.stager.Cleanup(ctx, p.AgeDays)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	h.log.Info().Int("swept", swept).Int("age_days", p.AgeDays).Msg("job: deletion cleanup finished")
	return nil
}

// RegisterHandlers wires every background task handler onto q.
func RegisterHandlers(q *Queue, sc *scanner.Scanner, engine *duplicate.Engine, stager *staging.Stager, log zerolog.Logger) {
	q.RegisterHandler(TaskScanLibrary, NewScanHandler(sc, log))
	q.RegisterHandler(TaskRebuildDuplicates, NewRebuildDuplicatesHandler(engine, log))
	q.RegisterHandler(TaskCleanupDeletions, NewCleanupDeletionsHandler(stager, log))
}
