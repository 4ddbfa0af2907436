// Package scheduler runs unattended sweeps of simulation input files on a
// cron schedule.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one unit of scheduled work — typically one full simulation run.
type Job interface {
	Run() error
	Name() string
}

// Scheduler wraps a cron.Cron with structured logging around every job run.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a Scheduler with second-level cron precision.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop waits for any in-flight job to finish, then stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

// AddJob registers job to run on the given cron schedule.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		log := s.log.With().Str("job", job.Name()).Logger()
		log.Info().Msg("job started")
		if err := job.Run(); err != nil {
			log.Error().Err(err).Msg("job failed")
			return
		}
		log.Info().Msg("job completed")
	})
	return err
}

// RunNow executes job immediately, outside of its cron schedule.
func (s *Scheduler) RunNow(job Job) error {
	log := s.log.With().Str("job", job.Name()).Logger()
	log.Info().Msg("job started (manual trigger)")
	if err := job.Run(); err != nil {
		log.Error().Err(err).Msg("job failed")
		return err
	}
	log.Info().Msg("job completed")
	return nil
}
