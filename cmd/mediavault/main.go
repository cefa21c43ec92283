// Command mediavault runs the catalog scanner, duplicate engine, and
// deletion-staging core as a single background process: it applies
// migrations, starts the asynq worker, and schedules the periodic
// cleanup sweep. Triggering a scan or a duplicate rebuild from outside
// this process is done by enqueueing onto the same Redis queue; the
// REST surface that would expose that to end users is out of scope.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/shannon-orourke/mediavault/internal/config"
	"github.com/shannon-orourke/mediavault/internal/db"
	"github.com/shannon-orourke/mediavault/internal/duplicate"
	"github.com/shannon-orourke/mediavault/internal/jobs"
	"github.com/shannon-orourke/mediavault/internal/pathresolve"
	"github.com/shannon-orourke/mediavault/internal/probe"
	"github.com/shannon-orourke/mediavault/internal/procguard"
	"github.com/shannon-orourke/mediavault/internal/repository"
	"github.com/shannon-orourke/mediavault/internal/scanner"
	"github.com/shannon-orourke/mediavault/internal/scheduler"
	"github.com/shannon-orourke/mediavault/internal/staging"
	"github.com/shannon-orourke/mediavault/internal/version"
)

func main() {
	migrationsDir := flag.String("migrations", "migrations", "directory of .up.sql migration files")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	v := version.Load()
	log.Info().Str("version", v.Version).Msg("mediavault starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	guard, err := procguard.Acquire(cfg.WorkerLockPath)
	if err != nil {
		log.Fatal().Err(err).Msg("another mediavault instance is already running")
	}
	defer guard.Release()

	conn, err := db.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to catalog database")
	}
	defer conn.Close()

	if err := db.Migrate(conn, *migrationsDir, log); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	resolver := pathresolve.New(cfg.ShareMountPrefix, cfg.DevFallbackPrefix, cfg.StageRootCandidates, log)
	prober := probe.New(cfg.FFprobePath)

	assetRepo := repository.NewAssetRepository(conn)
	scanRunRepo := repository.NewScanRunRepository(conn)
	dupRepo := repository.NewDuplicateRepository(conn)
	pendingRepo := repository.NewPendingDeletionRepository(conn)
	archiveRepo := repository.NewArchiveOperationRepository(conn)

	sc := scanner.New(
		conn, resolver, prober, assetRepo, scanRunRepo,
		cfg.MediaExtensions, cfg.ScanDenyDirs, cfg.ScanMinMediaBytes,
		cfg.ScanMaxWorkers, time.Duration(cfg.ProbeTimeoutSeconds)*time.Second, cfg.FingerprintChunkBytes,
		log,
	)
	engine := duplicate.New(conn, assetRepo, dupRepo, cfg.FuzzySimilarityThreshold, log)
	stager := staging.New(conn, resolver, assetRepo, pendingRepo, archiveRepo, log)

	queue := jobs.NewQueue(cfg.RedisAddr, log)
	jobs.RegisterHandlers(queue, sc, engine, stager, log)

	cleanupSched, err := scheduler.New(stager, cfg.PendingDeletionRetentionDays, cfg.CleanupCronExpr, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build cleanup scheduler")
	}
	cleanupSched.Start()
	defer cleanupSched.Stop()

	go func() {
		if err := queue.Start(context.Background()); err != nil {
			log.Error().Err(err).Msg("job queue worker stopped")
		}
	}()
	defer queue.Stop()

	log.Info().Msg("mediavault is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")
}
