package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"mastersrl/carnivalhub/internal/event"
	"mastersrl/carnivalhub/internal/metrics"
	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/repository"
)

// Deps are the collaborators every service shares.
type Deps struct {
	Store     repository.Store
	Publisher event.Publisher
	Clock     Clock
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

type runtime struct {
	store     repository.Store
	publisher event.Publisher
	clock     Clock
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func newRuntime(d Deps, name string) runtime {
	r := runtime{
		store:     d.Store,
		publisher: d.Publisher,
		clock:     d.Clock,
		logger:    d.Logger,
		metrics:   d.Metrics,
	}
	if r.publisher == nil {
		r.publisher = &event.Recorder{}
	}
	if r.clock == nil {
		r.clock = NewSystemClock()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.logger = r.logger.Named(name)
	return r
}

// emitFunc queues events that are published only if the transaction commits.
type emitFunc func(events ...event.Event)

type txFunc func(ctx context.Context, tx repository.Repositories, emit emitFunc) error

// transact runs fn in one transaction, then publishes whatever fn emitted.
// Publish failures are logged and swallowed: the commit already happened.
func (r runtime) transact(ctx context.Context, fn txFunc) error {
	var pending []event.Event
	err := r.store.Transaction(ctx, func(ctx context.Context, tx repository.Repositories) error {
		pending = pending[:0]
		return fn(ctx, tx, func(events ...event.Event) { pending = append(pending, events...) })
	})
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	// The caller may have gone away; delivery must not depend on it.
	if perr := r.publisher.Publish(context.WithoutCancel(ctx), pending...); perr != nil {
		r.logger.Error("publish domain events failed", zap.Error(perr), zap.Int("events", len(pending)))
	}
	return nil
}

// execute wraps transact with classification, one log line and metrics.
func (r runtime) execute(ctx context.Context, op string, actorID uint, fn txFunc) error {
	start := time.Now()
	err := classify(op, r.transact(ctx, fn))

	outcome := "ok"
	fields := []zap.Field{zap.String("operation", op), zap.Duration("elapsed", time.Since(start))}
	if actorID != 0 {
		fields = append(fields, zap.Uint("actor_id", actorID))
	}
	switch kind := KindOf(err); {
	case err == nil:
		r.logger.Info("command completed", fields...)
	case kind == KindInternal:
		outcome = kind.String()
		r.logger.Error("command failed", append(fields, zap.Error(err))...)
	default:
		outcome = kind.String()
		r.logger.Warn("command rejected", append(fields, zap.String("kind", outcome), zap.String("reason", MessageOf(err)))...)
	}
	r.metrics.ObserveCommand(op, outcome, time.Since(start))
	return err
}

// view runs a read-only query and classifies its error.
func (r runtime) view(ctx context.Context, op string, fn func(ctx context.Context, v repository.Repositories) error) error {
	return classify(op, r.store.View(ctx, fn))
}

// classify leaves *Error untouched and turns store sentinels into kinds.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: "not found", Err: err}
	case errors.Is(err, repository.ErrDuplicate):
		return &Error{Kind: KindConflict, Message: "conflicts with an existing record", Err: err}
	}
	return internalError(op, err)
}

// loadActor reloads the acting user inside the transaction.
func loadActor(ctx context.Context, tx repository.Repositories, actorID uint) (*model.User, error) {
	if actorID == 0 {
		return nil, ErrNotAuthenticated
	}
	u, err := tx.Users().GetByID(ctx, actorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrActorInactive
	}
	return u, nil
}

func activeCarnival(ctx context.Context, tx repository.Repositories, id uint, lock bool) (*model.Carnival, error) {
	get := tx.Carnivals().GetByID
	if lock {
		get = tx.Carnivals().GetForUpdate
	}
	c, err := get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !c.IsActive) {
		return nil, ErrCarnivalNotFound
	}
	return c, err
}

func activeClub(ctx context.Context, tx repository.Repositories, id uint, lock bool) (*model.Club, error) {
	get := tx.Clubs().GetByID
	if lock {
		get = tx.Clubs().GetForUpdate
	}
	c, err := get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !c.IsActive) {
		return nil, ErrClubNotFound
	}
	return c, err
}
