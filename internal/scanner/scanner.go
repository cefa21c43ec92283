// Package scanner implements C4: orchestrating path resolution (C1),
// metadata probing (C2), and quality scoring (C3) over a set of
// logical roots, producing a resumable, incremental catalog scan.
package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/shannon-orourke/mediavault/internal/coreerr"
	"github.com/shannon-orourke/mediavault/internal/filenameparse"
	"github.com/shannon-orourke/mediavault/internal/models"
	"github.com/shannon-orourke/mediavault/internal/pathresolve"
	"github.com/shannon-orourke/mediavault/internal/probe"
	"github.com/shannon-orourke/mediavault/internal/quality"
	"github.com/shannon-orourke/mediavault/internal/repository"
)

// batchSize bounds how many asset writes share a single transaction.
// Not an external tunable: a batch rollback is an implementation
// detail of write durability, not a scan-behavior knob.
const batchSize = 50

// sourceLikeSegments marks path components that, combined with a
// small file size, indicate a source tree rather than a media library
// (e.g. a ".ts" TypeScript file rather than an MPEG transport stream).
var sourceLikeSegments = map[string]bool{
	"src": true, "source": true, "lib": true, "test": true,
	"tests": true, "__tests__": true, "pkg": true, "cmd": true,
}

type Scanner struct {
	db           *sql.DB
	resolver     *pathresolve.Resolver
	prober       *probe.Prober
	assetRepo    *repository.AssetRepository
	scanRunRepo  *repository.ScanRunRepository
	log          zerolog.Logger

	mediaExtensions   map[string]bool
	denyDirs          []string
	minMediaBytes     int64
	workers           int
	probeTimeout      time.Duration
	fingerprintChunk  int
}

func New(
	db *sql.DB,
	resolver *pathresolve.Resolver,
	prober *probe.Prober,
	assetRepo *repository.AssetRepository,
	scanRunRepo *repository.ScanRunRepository,
	mediaExtensions []string,
	denyDirs []string,
	minMediaBytes int64,
	workers int,
	probeTimeout time.Duration,
	fingerprintChunk int,
	log zerolog.Logger,
) *Scanner {
	extSet := make(map[string]bool, len(mediaExtensions))
	for _, e := range mediaExtensions {
		extSet[strings.ToLower(e)] = true
	}
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		db:               db,
		resolver:         resolver,
		prober:           prober,
		assetRepo:        assetRepo,
		scanRunRepo:      scanRunRepo,
		log:              log,
		mediaExtensions:  extSet,
		denyDirs:         denyDirs,
		minMediaBytes:    minMediaBytes,
		workers:          workers,
		probeTimeout:     probeTimeout,
		fingerprintChunk: fingerprintChunk,
	}
}

// scanTask is one candidate file dispatched to the worker pool.
type scanTask struct {
	root        string
	logicalPath string
	absPath     string
	size        int64
	modTime     time.Time
}

// scanOutcome is a worker's verdict on one task, consumed by the
// single batching coordinator.
type scanOutcome struct {
	asset     *models.MediaAsset
	isNew     bool
	unchanged bool
	errPath   string
	err       error
}

// RunScan executes one scan of kind over roots, returning the
// finalized ScanRun. It never returns a non-nil error for per-file
// problems — those are folded into the run's error count — only for
// conditions that prevent the run from being recorded at all.
func (s *Scanner) RunScan(ctx context.Context, kind models.ScanKind, roots []string) (*models.ScanRun, error) {
	run := &models.ScanRun{
		Kind:      kind,
		Roots:     roots,
		StartedAt: time.Now(),
		Status:    models.ScanStatusRunning,
	}
	if err := s.scanRunRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("scanner: create scan run: %w", err)
	}

	counters := &scanCounters{}
	seenByRoot := map[string][]string{}
	var seenMu sync.Mutex

	taskCh := make(chan scanTask, s.workers*4)
	resultCh := make(chan scanOutcome, s.workers*4)

	var workersWG sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		workersWG.Add(1)
		go func() {
			defer workersWG.Done()
			s.worker(ctx, kind, taskCh, resultCh)
		}()
	}

	var coordWG sync.WaitGroup
	coordWG.Add(1)
	go func() {
		defer coordWG.Done()
		s.coordinate(ctx, resultCh, counters)
	}()

	cancelled := false
	for _, root := range roots {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if err := s.walkRoot(ctx, root, taskCh, &seenMu, seenByRoot); err != nil {
			counters.recordError(root, err.Error())
		}
	}
	close(taskCh)
	workersWG.Wait()
	close(resultCh)
	coordWG.Wait()

	if ctx.Err() != nil {
		cancelled = true
	}

	if kind == models.ScanKindFull && !cancelled {
		if err := s.retireVanished(ctx, roots, seenByRoot, counters); err != nil {
			counters.recordError("<retire>", err.Error())
		}
	}

	status := models.ScanStatusCompleted
	failureReason := ""
	if cancelled {
		status = models.ScanStatusFailed
		failureReason = "cancelled"
	}

	if err := s.scanRunRepo.UpdateProgress(ctx, run.ID, counters.found, counters.newCount, counters.updated, counters.deleted, counters.errors, counters.details); err != nil {
		s.log.Error().Err(err).Str("scan_run_id", run.ID.String()).Msg("failed to persist final scan counters")
	}
	if err := s.scanRunRepo.Finalize(ctx, run.ID, status, failureReason); err != nil {
		return nil, fmt.Errorf("scanner: finalize scan run: %w", err)
	}

	run.FilesFound = counters.found
	run.FilesNew = counters.newCount
	run.FilesUpdated = counters.updated
	run.FilesDeleted = counters.deleted
	run.ErrorsCount = counters.errors
	run.ErrorDetails = counters.details
	run.Status = status
	run.FailureReason = failureReason
	return run, nil
}

// scanCounters accumulates run-level counts behind a mutex; both the
// coordinator and the root-retirement pass write to it.
type scanCounters struct {
	mu      sync.Mutex
	found   int
	newCount    int
	updated int
	deleted int
	errors  int
	details []models.ScanErrorDetail
}

func (c *scanCounters) recordError(path, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors++
	c.details = append(c.details, models.ScanErrorDetail{Path: path, Message: message})
}

// walkRoot resolves root via C1, then walks the local filesystem
// single-threaded, dispatching media candidates onto taskCh. Symbolic
// links are not followed (filepath.WalkDir does not traverse them), so
// symlinked directories and files are not scanned; directories whose
// device/inode pair was already visited in this walk are skipped.
func (s *Scanner) walkRoot(ctx context.Context, root string, taskCh chan<- scanTask, seenMu *sync.Mutex, seenByRoot map[string][]string) error {
	absRoot, ok := s.resolver.Resolve(root)
	if !ok {
		return fmt.Errorf("root %s did not resolve to a local path", root)
	}

	visited := map[string]bool{}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != absRoot && pathresolve.IsDenied(d.Name(), s.denyDirs) {
				return filepath.SkipDir
			}
			key, cerr := dirIdentity(path)
			if cerr == nil {
				if visited[key] {
					return filepath.SkipDir
				}
				visited[key] = true
			}
			return nil
		}

		info, ierr := d.Info()
		if ierr != nil {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !s.mediaExtensions[ext] {
			return nil
		}
		if info.Size() < s.minMediaBytes && looksLikeSourceTree(path) {
			return nil
		}

		relPath, rerr := filepath.Rel(absRoot, path)
		if rerr != nil {
			return nil
		}
		logicalPath := filepath.Join(root, relPath)

		seenMu.Lock()
		seenByRoot[root] = append(seenByRoot[root], logicalPath)
		seenMu.Unlock()

		select {
		case taskCh <- scanTask{root: root, logicalPath: logicalPath, absPath: path, size: info.Size(), modTime: info.ModTime()}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
}

// dirIdentity returns a stable device/inode identity string for path,
// used to detect symlink cycles during the walk.
func dirIdentity(path string) (string, error) {
	var st syscall.Stat_t
	if err := syscall.Stat(path, &st); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%d", st.Dev, st.Ino), nil
}

func looksLikeSourceTree(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		if sourceLikeSegments[strings.ToLower(seg)] {
			return true
		}
	}
	return false
}

// worker processes tasks from taskCh until it's closed, publishing one
// outcome per task onto resultCh.
func (s *Scanner) worker(ctx context.Context, kind models.ScanKind, taskCh <-chan scanTask, resultCh chan<- scanOutcome) {
	for task := range taskCh {
		if ctx.Err() != nil {
			return
		}
		resultCh <- s.processTask(ctx, kind, task)
	}
}

func (s *Scanner) processTask(ctx context.Context, kind models.ScanKind, task scanTask) scanOutcome {
	absPath, ok := s.resolver.Resolve(task.logicalPath)
	if !ok {
		return scanOutcome{errPath: task.logicalPath, err: fmt.Errorf("candidate did not resolve")}
	}

	existing, err := s.assetRepo.GetByLogicalPath(ctx, task.logicalPath)
	var priorAsset *models.MediaAsset
	if err == nil {
		priorAsset = existing
	} else if !coreerr.Is(err, coreerr.NotFound) {
		return scanOutcome{errPath: task.logicalPath, err: fmt.Errorf("lookup existing asset: %w", err)}
	}

	if kind == models.ScanKindIncremental && priorAsset != nil {
		if priorAsset.SizeBytes == task.size && priorAsset.LastScannedAt.After(task.modTime) {
			return scanOutcome{unchanged: true}
		}
	}

	meta, err := s.prober.ProbeAsset(ctx, absPath, s.probeTimeout, s.fingerprintChunk)
	now := time.Now()
	parsed := filenameparse.Parse(filepath.Base(task.logicalPath))

	asset := &models.MediaAsset{
		LogicalPath:        task.logicalPath,
		Filename:           filepath.Base(task.logicalPath),
		SizeBytes:          task.size,
		ParsedTitle:        parsed.Title,
		ParsedYear:         parsed.Year,
		ParsedSeason:       parsed.Season,
		ParsedEpisode:      parsed.Episode,
		ParsedReleaseGroup: parsed.ReleaseGroup,
		MediaKind:          models.MediaKind(parsed.MediaKind),
		IsDeleted:          false,
		LastScannedAt:      now,
		MetadataUpdatedAt:  now,
	}
	if priorAsset != nil {
		asset.ID = priorAsset.ID
		asset.DiscoveredAt = priorAsset.DiscoveredAt
		asset.IsStaged = priorAsset.IsStaged
	} else {
		asset.DiscoveredAt = now
	}

	if err != nil {
		asset.MediaKind = models.MediaKindUnknown
		asset.QualityScore = 0
		result := scanOutcome{asset: asset, isNew: priorAsset == nil}
		result.errPath = task.logicalPath
		result.err = err
		return result
	}

	asset.ContentFingerprint = &meta.ContentFingerprint
	asset.Container = meta.Container
	asset.VideoCodec = meta.VideoCodec
	asset.AudioCodec = meta.AudioCodec
	asset.Width = meta.Width
	asset.Height = meta.Height
	asset.ResolutionTier = models.ResolutionTier(meta.ResolutionTier)
	asset.BitrateKbps = meta.BitrateKbps
	asset.DurationSeconds = meta.DurationSeconds
	asset.AudioChannels = meta.AudioChannels
	asset.AudioTrackCount = meta.AudioTrackCount
	asset.SubtitleTrackCount = meta.SubtitleTrackCount
	asset.AudioLanguages = meta.AudioLanguages
	asset.SubtitleLanguages = meta.SubtitleLanguages
	asset.DominantAudioLanguage = meta.DominantAudioLanguage()
	asset.HDRType = models.HDRType(meta.HDRType)
	asset.QualityScore = quality.Score(quality.Input{
		Height:             meta.Height,
		VideoCodec:         meta.VideoCodec,
		BitrateKbps:        meta.BitrateKbps,
		ResolutionTier:     meta.ResolutionTier,
		AudioChannels:      meta.AudioChannels,
		AudioTrackCount:    meta.AudioTrackCount,
		SubtitleTrackCount: meta.SubtitleTrackCount,
		HDRType:            meta.HDRType,
	})

	return scanOutcome{asset: asset, isNew: priorAsset == nil}
}

// coordinate drains resultCh, batching successful asset writes into
// transactions of batchSize and folding every outcome into counters.
func (s *Scanner) coordinate(ctx context.Context, resultCh <-chan scanOutcome, counters *scanCounters) {
	batch := make([]scanOutcome, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.writeBatch(ctx, batch); err != nil {
			counters.mu.Lock()
			counters.errors++
			counters.details = append(counters.details, models.ScanErrorDetail{Path: "<batch>", Message: err.Error()})
			counters.mu.Unlock()
		} else {
			counters.mu.Lock()
			for _, o := range batch {
				if o.isNew {
					counters.newCount++
				} else {
					counters.updated++
				}
			}
			counters.mu.Unlock()
		}
		batch = batch[:0]
	}

	for outcome := range resultCh {
		counters.mu.Lock()
		counters.found++
		counters.mu.Unlock()

		if outcome.unchanged {
			continue
		}
		if outcome.err != nil && outcome.asset == nil {
			counters.recordError(outcome.errPath, outcome.err.Error())
			continue
		}
		if outcome.err != nil {
			counters.recordError(outcome.errPath, outcome.err.Error())
		}
		batch = append(batch, outcome)
		if len(batch) >= batchSize {
			flush()
		}
	}
	flush()
}

func (s *Scanner) writeBatch(ctx context.Context, batch []scanOutcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch transaction: %w", err)
	}
	for _, o := range batch {
		if err := s.assetRepo.Upsert(ctx, tx, o.asset); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert %s: %w", o.asset.LogicalPath, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// retireVanished marks is_deleted=true for assets previously observed
// under any current root that were not seen in this run. Only called
// for full scans.
func (s *Scanner) retireVanished(ctx context.Context, roots []string, seenByRoot map[string][]string, counters *scanCounters) error {
	for _, root := range roots {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin retire transaction: %w", err)
		}
		n, err := s.assetRepo.MarkDeletedNotSeen(ctx, tx, root, seenByRoot[root])
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mark deleted for root %s: %w", root, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit retire for root %s: %w", root, err)
		}
		counters.mu.Lock()
		counters.deleted += int(n)
		counters.mu.Unlock()
	}
	return nil
}
