// Package jobs schedules the background work: the periodic carnival ingest
// and the daily invitation-token purge, both backed by river on Postgres.
package jobs

import (
	"context"
	"errors"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"mastersrl/carnivalhub/internal/service"
)

// IngestArgs runs one carnival ingest. Trigger is "schedule" or "manual".
type IngestArgs struct {
	Trigger string `json:"trigger"`
}

func (IngestArgs) Kind() string { return "carnival_ingest" }

// TokenPurgeArgs hard-deletes consumed and expired invitation tokens.
type TokenPurgeArgs struct{}

func (TokenPurgeArgs) Kind() string { return "invitation_token_purge" }

type Ingester interface {
	Run(ctx context.Context) (*service.IngestReport, error)
}

type TokenPurger interface {
	PurgeSpentTokens(ctx context.Context) (int64, error)
}

type IngestWorker struct {
	river.WorkerDefaults[IngestArgs]
	ingester Ingester
	logger   *zap.Logger
}

func NewIngestWorker(ingester Ingester, logger *zap.Logger) *IngestWorker {
	return &IngestWorker{ingester: ingester, logger: logger}
}

func (w *IngestWorker) Work(ctx context.Context, job *river.Job[IngestArgs]) error {
	report, err := w.ingester.Run(ctx)
	if errors.Is(err, service.ErrIngestRunning) {
		w.logger.Info("ingest already running, job skipped", zap.String("trigger", job.Args.Trigger))
		return nil
	}
	if err != nil {
		return err
	}
	w.logger.Info("ingest job finished",
		zap.String("trigger", job.Args.Trigger),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
	)
	return nil
}

type TokenPurgeWorker struct {
	river.WorkerDefaults[TokenPurgeArgs]
	purger TokenPurger
	logger *zap.Logger
}

func NewTokenPurgeWorker(purger TokenPurger, logger *zap.Logger) *TokenPurgeWorker {
	return &TokenPurgeWorker{purger: purger, logger: logger}
}

func (w *TokenPurgeWorker) Work(ctx context.Context, _ *river.Job[TokenPurgeArgs]) error {
	n, err := w.purger.PurgeSpentTokens(ctx)
	if err != nil {
		return err
	}
	w.logger.Info("purged invitation tokens", zap.Int64("deleted", n))
	return nil
}
