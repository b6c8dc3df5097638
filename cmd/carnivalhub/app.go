package main

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"mastersrl/carnivalhub/internal/config"
	"mastersrl/carnivalhub/internal/event"
	"mastersrl/carnivalhub/internal/ingest"
	"mastersrl/carnivalhub/internal/metrics"
	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/notify"
	"mastersrl/carnivalhub/internal/repository"
	"mastersrl/carnivalhub/internal/service"
	jwtpkg "mastersrl/carnivalhub/pkg/jwt"
)

// app holds the wired object graph shared by every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry

	db    *gorm.DB
	pool  *pgxpool.Pool
	store repository.Store
	state repository.StateStore

	bus     *gochannel.GoChannel
	wmLog   watermill.LoggerAdapter
	metrics *metrics.Metrics

	auth       *service.AuthService
	carnivals  *service.CarnivalService
	ownership  *service.OwnershipService
	attendance *service.AttendanceService
	delegates  *service.DelegateService
	directory  *service.DirectoryService
	subs       *service.SubscriptionService
	ingest     *service.IngestService

	closers []func()
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// bootstrap loads config and wires storage, events and services. syncEvents
// makes publishing wait for the notification dispatcher, for commands that
// exit right after their work.
func bootstrap(c *cli.Context, syncEvents bool) (*app, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	if err := a.openStore(c.Context); err != nil {
		a.close()
		return nil, err
	}
	if err := a.openState(); err != nil {
		a.close()
		return nil, err
	}

	a.wmLog = event.NewZapLogger(logger)
	a.bus = event.NewGoChannel(a.wmLog, syncEvents)
	a.closers = append(a.closers, func() { _ = a.bus.Close() })

	if err := a.wireServices(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Backend {
	case "postgres":
		db, err := config.NewPostgresDB(a.cfg.Database.Postgres)
		if err != nil {
			return err
		}
		a.db = db
		a.closers = append(a.closers, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
		if a.cfg.Database.Postgres.AutoMigrate {
			if err := model.AutoMigrate(db); err != nil {
				return fmt.Errorf("auto-migrate: %w", err)
			}
			a.logger.Info("database migration completed")
		}
		pool, err := config.NewPGXPool(ctx, a.cfg.Database.Postgres)
		if err != nil {
			return err
		}
		a.pool = pool
		a.closers = append(a.closers, pool.Close)
		a.store = repository.NewPGStore(db)
		a.logger.Info("using postgres store")
	case "memory":
		a.store = repository.NewMemoryStore()
		a.logger.Warn("using in-memory store, data is lost on exit")
	}
	return nil
}

func (a *app) openState() error {
	switch a.cfg.State.Backend {
	case "redis":
		client, err := config.NewRedisClient(a.cfg.Database.Redis)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.state = repository.NewRedisStateStore(client)
		a.logger.Info("using redis state store")
	case "memory":
		a.state = repository.NewMemoryStateStore()
		a.logger.Info("using in-memory state store")
	}
	return nil
}

func (a *app) wireServices() error {
	deps := service.Deps{
		Store:     a.store,
		Publisher: event.NewWatermillPublisher(a.bus, a.wmLog),
		Clock:     service.NewSystemClock(),
		Logger:    a.logger,
		Metrics:   a.metrics,
	}

	source, err := ingest.NewSource(a.cfg.Ingest, a.logger)
	if err != nil {
		return err
	}

	jwtManager := jwtpkg.NewManager(a.cfg.JWT.SigningKey, a.cfg.JWT.Issuer, a.cfg.JWT.AccessTokenTTL)
	a.auth = service.NewAuthService(deps, jwtManager)
	a.carnivals = service.NewCarnivalService(deps)
	a.ownership = service.NewOwnershipService(deps)
	a.attendance = service.NewAttendanceService(deps)
	a.delegates = service.NewDelegateService(deps, service.NewTokenMinter(a.cfg.Invite))
	a.directory = service.NewDirectoryService(deps)
	a.subs = service.NewSubscriptionService(deps)
	a.ingest = service.NewIngestService(deps, source, a.state, a.cfg.Ingest.LockTTL)
	return nil
}

// startNotifications subscribes the mail dispatcher to the event bus.
func (a *app) startNotifications(ctx context.Context) error {
	var sender notify.MailSender
	if a.cfg.Mail.Enabled {
		s, err := notify.NewSMTPSender(a.cfg.SMTP)
		if err != nil {
			return err
		}
		sender = s
	} else {
		sender = notify.NewLogSender(a.logger)
		a.logger.Info("mail disabled, notifications are logged only")
	}
	dispatcher := notify.NewDispatcher(a.store, sender, a.cfg.Mail.BaseURL, a.logger, a.metrics)
	return event.Consume(ctx, a.bus, dispatcher.Handle, a.wmLog)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func (a *app) requirePostgres(command string) error {
	if a.pool == nil {
		return cli.Exit(command+" requires store.backend=postgres", 1)
	}
	return nil
}
