package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"mastersrl/carnivalhub/internal/handler"
	"mastersrl/carnivalhub/internal/jobs"
	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/service"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API, notification dispatcher and job scheduler",
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c, false)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(c.Context)
		},
	}
}

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.pool == nil {
		if err := a.auth.EnsureAdmin(ctx, a.cfg.Admin.Email, a.cfg.Admin.Password); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}
	if err := a.startNotifications(ctx); err != nil {
		return err
	}

	// Without postgres there is no queue; the admin trigger runs ingest inline.
	var trigger handler.IngestTrigger
	if a.pool != nil {
		scheduler, err := jobs.NewScheduler(a.pool, a.cfg.Ingest, a.ingest, a.delegates, a.logger)
		if err != nil {
			return err
		}
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.GracefulShutdownTimeout)
			defer cancel()
			if err := scheduler.Stop(stopCtx); err != nil {
				a.logger.Error("scheduler stop failed", zap.Error(err))
			}
		}()
		trigger = scheduler
	}

	router := handler.SetupRouter(a.cfg, a.logger, a.registry, handler.Handlers{
		Auth:          handler.NewAuthHandler(a.auth),
		Carnivals:     handler.NewCarnivalHandler(a.carnivals, a.ownership, a.attendance, a.directory),
		Clubs:         handler.NewClubHandler(a.delegates, a.ownership, a.directory),
		Subscriptions: handler.NewSubscriptionHandler(a.subs),
		Admin:         handler.NewAdminHandler(a.ingest, trigger, a.delegates, a.directory),
		Authenticator: a.auth,
	})

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
	case <-ctx.Done():
	}
	a.logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info("server exited gracefully")
	return nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or update tables, install the job queue schema and seed the admin",
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c, false)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requirePostgres("migrate"); err != nil {
				return err
			}

			if err := model.AutoMigrate(a.db); err != nil {
				return fmt.Errorf("auto-migrate: %w", err)
			}
			if err := jobs.Migrate(c.Context, a.pool, a.logger); err != nil {
				return err
			}
			if err := a.auth.EnsureAdmin(c.Context, a.cfg.Admin.Email, a.cfg.Admin.Password); err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			a.logger.Info("migration completed")
			return nil
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "run one external event ingest and print the report",
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c, true)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.startNotifications(c.Context); err != nil {
				return err
			}

			report, err := a.ingest.Run(c.Context)
			if errors.Is(err, service.ErrIngestRunning) {
				return cli.Exit("another ingest run holds the lock", 2)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "source=%s inserted=%d updated=%d unchanged=%d skipped=%d failed=%d\n",
				report.Source, report.Inserted, report.Updated, report.Unchanged, report.Skipped, report.Failed)
			return nil
		},
	}
}

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "tokens",
		Usage: "invitation token maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "purge",
				Usage: "delete consumed and expired invitation tokens",
				Action: func(c *cli.Context) error {
					a, err := bootstrap(c, false)
					if err != nil {
						return err
					}
					defer a.close()

					n, err := a.delegates.PurgeSpentTokens(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(os.Stdout, "deleted %d tokens\n", n)
					return nil
				},
			},
		},
	}
}
