// Command server runs the Large-World simulation service: an HTTP API for
// submitting and observing runs, plus an optional cron-scheduled sweep job.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nullstate/largeworld/internal/archive"
	"github.com/nullstate/largeworld/internal/config"
	"github.com/nullstate/largeworld/internal/events"
	"github.com/nullstate/largeworld/internal/scheduler"
	"github.com/nullstate/largeworld/internal/server"
	"github.com/nullstate/largeworld/pkg/logger"
)

func main() {
	cfg, err := config.LoadService()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log.Info().Msg("starting largeworld service")

	bus := events.NewBus(log)

	var uploader *archive.Uploader
	if cfg.S3Bucket != "" {
		uploader, err = archive.NewUploader(context.Background(), cfg.S3Bucket)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize archive uploader, archival disabled")
		}
	}
	if uploader != nil {
		bus.Subscribe(events.RunCompleted, func(e *events.Event) {
			dbPath := filepath.Join(cfg.DataDir, e.RunID+".db")
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				defer cancel()
				if err := uploader.UploadRun(ctx, e.RunID, dbPath); err != nil {
					log.Error().Err(err).Str("run_id", e.RunID).Msg("archive upload failed")
				}
			}()
		})
	}

	sched := scheduler.New(log)
	if cfg.CronSpec != "" {
		inputFile := os.Getenv("LARGEWORLD_SWEEP_INPUT")
		if inputFile == "" {
			log.Warn().Msg("LARGEWORLD_CRON set but LARGEWORLD_SWEEP_INPUT is empty, scheduled sweeps disabled")
		} else {
			job := &scheduler.SweepJob{InputFile: inputFile, DataDir: cfg.DataDir, Bus: bus}
			if err := sched.AddJob(cfg.CronSpec, job); err != nil {
				log.Fatal().Err(err).Msg("failed to register sweep job")
			}
		}
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Bus:       bus,
		Scheduler: sched,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server stopped")
}
