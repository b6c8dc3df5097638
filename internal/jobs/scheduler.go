package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"

	"mastersrl/carnivalhub/internal/config"
)

const (
	queueIngest      = "ingest"
	tokenPurgeEvery  = 24 * time.Hour
	manualIngestSpan = time.Minute
)

// Scheduler owns the river client. Jobs run only between Start and Stop.
type Scheduler struct {
	client *river.Client[pgx.Tx]
	logger *zap.Logger
}

func NewScheduler(pool *pgxpool.Pool, cfg config.IngestConfig, ingester Ingester, purger TokenPurger, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("jobs")

	workers := river.NewWorkers()
	river.AddWorker(workers, NewIngestWorker(ingester, logger))
	river.AddWorker(workers, NewTokenPurgeWorker(purger, logger))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
			queueIngest:        {MaxWorkers: 1},
		},
		Workers:      workers,
		PeriodicJobs: periodicJobs(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	return &Scheduler{client: client, logger: logger}, nil
}

func periodicJobs(cfg config.IngestConfig) []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(cfg.Interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return IngestArgs{Trigger: "schedule"}, &river.InsertOpts{Queue: queueIngest}
			},
			&river.PeriodicJobOpts{RunOnStart: cfg.RunOnStart},
		),
		river.NewPeriodicJob(
			river.PeriodicInterval(tokenPurgeEvery),
			func() (river.JobArgs, *river.InsertOpts) {
				return TokenPurgeArgs{}, nil
			},
			nil,
		),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("start river client: %w", err)
	}
	s.logger.Info("scheduler started")
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	if err := s.client.Stop(ctx); err != nil {
		return fmt.Errorf("stop river client: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// TriggerIngest enqueues a manual run. Repeated triggers within a minute
// collapse into one job.
func (s *Scheduler) TriggerIngest(ctx context.Context) error {
	_, err := s.client.Insert(ctx, IngestArgs{Trigger: "manual"}, &river.InsertOpts{
		Queue: queueIngest,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: manualIngestSpan,
		},
	})
	if err != nil {
		return fmt.Errorf("enqueue ingest: %w", err)
	}
	return nil
}

// Migrate brings the river schema up to date.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
	if err != nil {
		return fmt.Errorf("migrate river schema: %w", err)
	}
	for _, v := range res.Versions {
		logger.Info("applied river migration", zap.Int("version", v.Version))
	}
	return nil
}
