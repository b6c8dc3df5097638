package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"

	"mastersrl/carnivalhub/internal/config"
	"mastersrl/carnivalhub/internal/event"
	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	store  *repository.MemoryStore
	clock  *fakeClock
	events *event.Recorder
	deps   Deps

	carnivals  *CarnivalService
	ownership  *OwnershipService
	attendance *AttendanceService
	delegates  *DelegateService
	directory  *DirectoryService
	subs       *SubscriptionService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := repository.NewMemoryStore(repository.WithMemoryClock(clock.Now))
	events := &event.Recorder{}
	deps := Deps{Store: store, Publisher: events, Clock: clock}
	minter := NewTokenMinter(config.InviteConfig{DelegateTTL: 7 * 24 * time.Hour, ProxyTTL: 14 * 24 * time.Hour})

	return &harness{
		t:          t,
		ctx:        context.Background(),
		store:      store,
		clock:      clock,
		events:     events,
		deps:       deps,
		carnivals:  NewCarnivalService(deps),
		ownership:  NewOwnershipService(deps),
		attendance: NewAttendanceService(deps),
		delegates:  NewDelegateService(deps, minter),
		directory:  NewDirectoryService(deps),
		subs:       NewSubscriptionService(deps),
	}
}

func (h *harness) tx(fn func(ctx context.Context, tx repository.Repositories) error) {
	h.t.Helper()
	require.NoError(h.t, h.store.Transaction(h.ctx, fn))
}

func (h *harness) newUser(email string) *model.User {
	h.t.Helper()
	if email == "" {
		email = gofakeit.Email()
	}
	u := &model.User{Email: email, DisplayName: gofakeit.Name(), IsActive: true}
	h.tx(func(ctx context.Context, tx repository.Repositories) error {
		return tx.Users().Create(ctx, u)
	})
	return u
}

func (h *harness) admin() *model.User {
	h.t.Helper()
	u := &model.User{Email: gofakeit.Email(), DisplayName: "Admin", IsActive: true, IsAdmin: true}
	h.tx(func(ctx context.Context, tx repository.Repositories) error {
		return tx.Users().Create(ctx, u)
	})
	return u
}

// clubWithPrimary creates a club through the service so the creator becomes primary delegate.
func (h *harness) clubWithPrimary(name string) (*model.Club, *model.User) {
	h.t.Helper()
	primary := h.newUser("")
	club, err := h.delegates.CreateClub(h.ctx, primary.ID, ClubInput{ClubName: name, State: model.StateQLD, Location: gofakeit.City()})
	require.NoError(h.t, err)
	return club, h.reload(primary.ID)
}

// addDelegate attaches a fresh regular delegate to club.
func (h *harness) addDelegate(club *model.Club) *model.User {
	h.t.Helper()
	u := h.newUser("")
	joined := h.clock.Now()
	h.clock.Advance(time.Second)
	u.ClubID = &club.ID
	u.JoinedClubAt = &joined
	h.tx(func(ctx context.Context, tx repository.Repositories) error {
		return tx.Users().Update(ctx, u)
	})
	return u
}

func (h *harness) reload(userID uint) *model.User {
	h.t.Helper()
	var u *model.User
	require.NoError(h.t, h.store.View(h.ctx, func(ctx context.Context, r repository.Repositories) error {
		var err error
		u, err = r.Users().GetByID(ctx, userID)
		return err
	}))
	return u
}

func (h *harness) carnival(id uint) *model.Carnival {
	h.t.Helper()
	var c *model.Carnival
	require.NoError(h.t, h.store.View(h.ctx, func(ctx context.Context, r repository.Repositories) error {
		var err error
		c, err = r.Carnivals().GetByID(ctx, id)
		return err
	}))
	return c
}

func (h *harness) token(value string) *model.InvitationToken {
	h.t.Helper()
	var tok *model.InvitationToken
	require.NoError(h.t, h.store.View(h.ctx, func(ctx context.Context, r repository.Repositories) error {
		var err error
		tok, err = r.Tokens().GetByValue(ctx, value)
		return err
	}))
	return tok
}

// importedCarnival inserts an ownerless carnival the way the ingest does.
func (h *harness) importedCarnival(externalID string) *model.Carnival {
	h.t.Helper()
	c := carnivalFromExternal(model.ExternalEvent{
		ExternalID: externalID,
		Title:      "Masters Carnival " + externalID,
		Date:       time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		State:      model.StateQLD,
	})
	h.tx(func(ctx context.Context, tx repository.Repositories) error {
		return tx.Carnivals().Create(ctx, c)
	})
	return c
}

func (h *harness) ownedCarnival(owner *model.User) *model.Carnival {
	h.t.Helper()
	c, err := h.carnivals.Create(h.ctx, owner.ID, carnivalInput())
	require.NoError(h.t, err)
	return c
}

func carnivalInput() CarnivalInput {
	return CarnivalInput{
		Title:           "Sunshine Coast Masters",
		Date:            time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		State:           model.StateQLD,
		LocationAddress: "Sunshine Coast Stadium, Bokarina",
	}
}

// primaryCount counts active primary delegates of clubID.
func (h *harness) primaryCount(clubID uint) int {
	h.t.Helper()
	var n int
	require.NoError(h.t, h.store.View(h.ctx, func(ctx context.Context, r repository.Repositories) error {
		users, err := r.Users().ListByClub(ctx, clubID)
		for _, u := range users {
			if u.IsPrimaryDelegate {
				n++
			}
		}
		return err
	}))
	return n
}

func ptr[T any](v T) *T { return &v }
