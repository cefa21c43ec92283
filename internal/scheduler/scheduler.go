// Package scheduler runs the periodic background trigger the core
// itself never initiates on its own: the deletion-cleanup sweep.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/shannon-orourke/mediavault/internal/staging"
)

// CleanupScheduler invokes Cleanup(ageDays) on a cron schedule.
type CleanupScheduler struct {
	cron    *cron.Cron
	stager  *staging.Stager
	ageDays int
	log     zerolog.Logger
}

// New builds a scheduler that runs the cleanup sweep according to
// cronExpr (e.g. "0 3 * * *" for daily at 03:00) with the configured
// retention window.
func New(stager *staging.Stager, ageDays int, cronExpr string, log zerolog.Logger) (*CleanupScheduler, error) {
	c := cron.New()
	s := &CleanupScheduler{cron: c, stager: stager, ageDays: ageDays, log: log}
	if _, err := c.AddFunc(cronExpr, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CleanupScheduler) runOnce() {
	swept, err := s.stager.Cleanup(context.Background(), s.ageDays)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled cleanup sweep failed")
		return
	}
	s.log.Info().Int("swept", swept).Msg("scheduled cleanup sweep complete")
}

// Start begins the cron loop.
func (s *CleanupScheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("cleanup scheduler started")
}

// Stop waits for any in-flight run to finish, then returns.
func (s *CleanupScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
