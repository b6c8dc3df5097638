package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mastersrl/carnivalhub/internal/event"
	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/repository"
)

// EventSource supplies external events with stable ids.
type EventSource interface {
	Name() string
	Fetch(ctx context.Context) ([]model.ExternalEvent, error)
}

type IngestResult string

const (
	IngestInserted  IngestResult = "inserted"
	IngestUpdated   IngestResult = "updated"
	IngestUnchanged IngestResult = "unchanged"
	IngestSkipped   IngestResult = "skipped"
	IngestFailed    IngestResult = "failed"
)

// IngestReport counts per-event outcomes. Skipped events belong to an owner
// whose edits win; Failed events were malformed or hit a store error.
type IngestReport struct {
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Unchanged  int       `json:"unchanged"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}

func (r *IngestReport) add(res IngestResult) {
	switch res {
	case IngestInserted:
		r.Inserted++
	case IngestUpdated:
		r.Updated++
	case IngestUnchanged:
		r.Unchanged++
	case IngestSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

const (
	ingestLockKey    = "carnivalhub:ingest:lock"
	ingestLastRunKey = "carnivalhub:ingest:last_run"
)

// IngestService turns external events into ownerless carnivals. Each event is
// its own transaction, so a cancelled run leaves every processed event committed.
type IngestService struct {
	runtime
	source  EventSource
	state   repository.StateStore
	lockTTL time.Duration
}

func NewIngestService(d Deps, source EventSource, state repository.StateStore, lockTTL time.Duration) *IngestService {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	return &IngestService{runtime: newRuntime(d, "ingest"), source: source, state: state, lockTTL: lockTTL}
}

// Run fetches from the configured source and applies every event.
func (s *IngestService) Run(ctx context.Context) (*IngestReport, error) {
	runID := uuid.NewString()
	ok, err := s.state.SetNX(ctx, ingestLockKey, []byte(runID), s.lockTTL)
	if err != nil {
		return nil, internalError("acquire ingest lock", err)
	}
	if !ok {
		return nil, ErrIngestRunning
	}
	defer s.unlock(runID)

	report := &IngestReport{Source: s.source.Name(), StartedAt: s.clock.Now()}
	events, err := s.source.Fetch(ctx)
	if err != nil {
		s.logger.Error("fetch external events failed", zap.String("source", report.Source), zap.Error(err))
		return nil, internalError("fetch external events", err)
	}

	err = s.Apply(ctx, events, report)
	report.FinishedAt = s.clock.Now()
	if err != nil {
		s.logger.Warn("ingest interrupted", zap.Any("report", report), zap.Error(err))
		return report, err
	}

	if serr := s.state.Set(ctx, ingestLastRunKey, []byte(report.FinishedAt.Format(time.RFC3339Nano)), 0); serr != nil {
		s.logger.Error("record ingest last run failed", zap.Error(serr))
	}
	s.logger.Info("ingest completed",
		zap.String("source", report.Source),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *IngestService) unlock(runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	held, err := s.state.Get(ctx, ingestLockKey)
	if err != nil || string(held) != runID {
		return
	}
	if err := s.state.Delete(ctx, ingestLockKey); err != nil {
		s.logger.Warn("release ingest lock failed", zap.Error(err))
	}
}

// LastRun reports when the last complete run finished.
func (s *IngestService) LastRun(ctx context.Context) (time.Time, bool, error) {
	raw, err := s.state.Get(ctx, ingestLastRunKey)
	if err != nil || raw == nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse last run: %w", err)
	}
	return t, true, nil
}

// Apply processes events in order, stopping between events when ctx ends.
func (s *IngestService) Apply(ctx context.Context, events []model.ExternalEvent, report *IngestReport) error {
	for i := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := s.applyOne(ctx, events[i])
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("external event not applied",
				zap.String("external_id", events[i].ExternalID), zap.Error(err))
			res = IngestFailed
		}
		report.add(res)
		s.metrics.IngestEvent(string(res))
	}
	return nil
}

// Column widths of the carnival fields a provider can fill.
const (
	maxTitle      = 200
	maxExternalID = 100
	maxLocation   = 500
	maxContact    = 100
	maxEmail      = 320
	maxPhone      = 20
	maxLink       = 500
)

// normalizeExternal rejects events without identity and fits the optional
// fields to their columns: free text is clipped, while phones, emails and
// links that do not fit are dropped.
func normalizeExternal(e model.ExternalEvent) (model.ExternalEvent, error) {
	e.ExternalID = strings.TrimSpace(e.ExternalID)
	e.Title = strings.TrimSpace(e.Title)
	e.LocationAddress = clip(strings.TrimSpace(e.LocationAddress), maxLocation)
	e.ScheduleDetails = strings.TrimSpace(e.ScheduleDetails)
	e.OrganiserContactName = clip(strings.TrimSpace(e.OrganiserContactName), maxContact)
	e.OrganiserContactPhone = fitOrDrop(strings.TrimSpace(e.OrganiserContactPhone), maxPhone)
	e.OrganiserContactEmail = fitOrDrop(normalizeEmail(e.OrganiserContactEmail), maxEmail)
	e.RegistrationLink = fitOrDrop(strings.TrimSpace(e.RegistrationLink), maxLink)
	switch {
	case e.ExternalID == "":
		return e, errors.New("missing external id")
	case utf8.RuneCountInString(e.ExternalID) > maxExternalID:
		return e, fmt.Errorf("external id longer than %d characters", maxExternalID)
	case e.Title == "":
		return e, errors.New("missing title")
	case utf8.RuneCountInString(e.Title) > maxTitle:
		return e, fmt.Errorf("title longer than %d characters", maxTitle)
	case e.Date.IsZero():
		return e, errors.New("missing date")
	case !e.State.Valid():
		return e, fmt.Errorf("unknown state %q", e.State)
	}
	return e, nil
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

func fitOrDrop(s string, n int) string {
	if utf8.RuneCountInString(s) > n {
		return ""
	}
	return s
}

func (s *IngestService) applyOne(ctx context.Context, raw model.ExternalEvent) (IngestResult, error) {
	ev, err := normalizeExternal(raw)
	if err != nil {
		return IngestFailed, err
	}

	result := IngestUnchanged
	err = s.transact(ctx, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		existing, err := tx.Carnivals().GetActiveByExternalID(ctx, ev.ExternalID)
		if errors.Is(err, repository.ErrNotFound) {
			c := carnivalFromExternal(ev)
			if err := tx.Carnivals().Create(ctx, c); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					// Inserted concurrently by another writer.
					return nil
				}
				return err
			}
			result = IngestInserted
			emit(event.New(event.CarnivalImported, s.clock.Now()).ForCarnival(c))
			return nil
		}
		if err != nil {
			return err
		}
		if !existing.Ownerless() {
			result = IngestSkipped
			return nil
		}
		if !mergeExternal(existing, ev) {
			return nil
		}
		if err := tx.Carnivals().Update(ctx, existing); err != nil {
			return err
		}
		result = IngestUpdated
		emit(event.New(event.CarnivalUpdated, s.clock.Now()).ForCarnival(existing))
		return nil
	})
	if err != nil {
		return IngestFailed, err
	}
	return result, nil
}

func carnivalFromExternal(e model.ExternalEvent) *model.Carnival {
	externalID := e.ExternalID
	c := &model.Carnival{
		Title:                 e.Title,
		Date:                  e.Date,
		State:                 e.State,
		LocationAddress:       e.LocationAddress,
		ScheduleDetails:       e.ScheduleDetails,
		OrganiserContactName:  strings.TrimSpace(e.OrganiserContactName),
		OrganiserContactEmail: e.OrganiserContactEmail,
		OrganiserContactPhone: strings.TrimSpace(e.OrganiserContactPhone),
		ExternalEventID:       &externalID,
		IsManuallyEntered:     false,
		IsActive:              true,
	}
	if link := strings.TrimSpace(e.RegistrationLink); link != "" {
		c.RegistrationLink = &link
	}
	return c
}

// mergeExternal copies the provider-owned fields and reports whether anything changed.
func mergeExternal(c *model.Carnival, e model.ExternalEvent) bool {
	changed := false
	if c.Title != e.Title {
		c.Title = e.Title
		changed = true
	}
	if !c.Date.Equal(e.Date) {
		c.Date = e.Date
		changed = true
	}
	if c.LocationAddress != e.LocationAddress {
		c.LocationAddress = e.LocationAddress
		changed = true
	}
	if c.ScheduleDetails != e.ScheduleDetails {
		c.ScheduleDetails = e.ScheduleDetails
		changed = true
	}
	return changed
}
