package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mastersrl/carnivalhub/internal/model"
)

func ptr[T any](v T) *T { return &v }

func newClub(name string) *model.Club {
	return &model.Club{ClubName: name, State: model.StateQLD, IsActive: true, IsPubliclyListed: true}
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(ctx context.Context, tx Repositories) error {
		require.NoError(t, tx.Clubs().Create(ctx, newClub("Gold Coast Dolphins")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = store.View(ctx, func(ctx context.Context, r Repositories) error {
		_, err := r.Clubs().GetActiveByName(ctx, "Gold Coast Dolphins")
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CancelledContextDiscardsWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	err := store.Transaction(ctx, func(ctx context.Context, tx Repositories) error {
		require.NoError(t, tx.Clubs().Create(ctx, newClub("Souths")))
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	err = store.View(context.Background(), func(ctx context.Context, r Repositories) error {
		clubs, err := r.Clubs().List(ctx, ClubFilter{IncludeUnlisted: true})
		assert.Empty(t, clubs)
		return err
	})
	require.NoError(t, err)
}

func TestMemoryStore_ActiveUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tests := []struct {
		name string
		run  func(ctx context.Context, tx Repositories) error
	}{
		{
			name: "club name is case-insensitive among active clubs",
			run: func(ctx context.Context, tx Repositories) error {
				if err := tx.Clubs().Create(ctx, newClub("Brisbane Broncos")); err != nil {
					return err
				}
				return tx.Clubs().Create(ctx, newClub("BRISBANE broncos"))
			},
		},
		{
			name: "one active registration per carnival and club",
			run: func(ctx context.Context, tx Repositories) error {
				for range 2 {
					reg := &model.CarnivalClub{CarnivalID: 1, ClubID: 2, IsActive: true, RegistrationDate: time.Now()}
					if err := tx.Attendances().Create(ctx, reg); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			name: "one active primary delegate per club",
			run: func(ctx context.Context, tx Repositories) error {
				for range 2 {
					u := &model.User{Email: gofakeit.Email(), ClubID: ptr(uint(9)), IsPrimaryDelegate: true, IsActive: true}
					if err := tx.Users().Create(ctx, u); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			name: "user email ignores case",
			run: func(ctx context.Context, tx Repositories) error {
				if err := tx.Users().Create(ctx, &model.User{Email: "sam@example.com", IsActive: true}); err != nil {
					return err
				}
				return tx.Users().Create(ctx, &model.User{Email: "SAM@example.com", IsActive: true})
			},
		},
		{
			name: "one active carnival per external id",
			run: func(ctx context.Context, tx Repositories) error {
				for range 2 {
					c := &model.Carnival{Title: "Import", ExternalEventID: ptr("ms-1"), IsActive: true}
					if err := tx.Carnivals().Create(ctx, c); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Transaction(ctx, tt.run)
			assert.ErrorIs(t, err, ErrDuplicate)
		})
	}
}

func TestMemoryStore_InactiveRowsFreeTheName(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Transaction(ctx, func(ctx context.Context, tx Repositories) error {
		old := newClub("Easts")
		require.NoError(t, tx.Clubs().Create(ctx, old))
		old.IsActive = false
		require.NoError(t, tx.Clubs().Update(ctx, old))
		return tx.Clubs().Create(ctx, newClub("Easts"))
	})
	assert.NoError(t, err)
}

func TestMemoryStore_AssignOwnerIsConditional(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Transaction(ctx, func(ctx context.Context, tx Repositories) error {
		c := &model.Carnival{Title: "Masters Cup", ExternalEventID: ptr("ms-7"), IsActive: true}
		require.NoError(t, tx.Carnivals().Create(ctx, c))

		require.NoError(t, tx.Carnivals().AssignOwner(ctx, c.ID, 11))
		assert.ErrorIs(t, tx.Carnivals().AssignOwner(ctx, c.ID, 12), ErrStale)

		got, err := tx.Carnivals().GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, got.OwnedBy(11))
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_TokenConsumeAndPurge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	err := store.Transaction(ctx, func(ctx context.Context, tx Repositories) error {
		live := &model.InvitationToken{Value: "live", ExpiresAt: now.Add(time.Hour)}
		expired := &model.InvitationToken{Value: "expired", ExpiresAt: now}
		require.NoError(t, tx.Tokens().Create(ctx, live))
		require.NoError(t, tx.Tokens().Create(ctx, expired))

		assert.ErrorIs(t, tx.Tokens().Consume(ctx, "expired", now), ErrStale)
		require.NoError(t, tx.Tokens().Consume(ctx, "live", now))
		assert.ErrorIs(t, tx.Tokens().Consume(ctx, "live", now), ErrStale)
		assert.ErrorIs(t, tx.Tokens().Consume(ctx, "missing", now), ErrStale)

		n, err := tx.Tokens().PurgeSpent(ctx, now)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_AttendanceOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	err := store.Transaction(ctx, func(ctx context.Context, tx Repositories) error {
		regs := []*model.CarnivalClub{
			{CarnivalID: 1, ClubID: 10, DisplayOrder: 2, RegistrationDate: base, IsActive: true},
			{CarnivalID: 1, ClubID: 11, DisplayOrder: 1, RegistrationDate: base.Add(time.Hour), IsActive: true},
			{CarnivalID: 1, ClubID: 12, DisplayOrder: 1, RegistrationDate: base, IsActive: true},
			{CarnivalID: 1, ClubID: 13, DisplayOrder: 9, RegistrationDate: base, IsActive: false},
		}
		for _, r := range regs {
			require.NoError(t, tx.Attendances().Create(ctx, r))
		}

		got, err := tx.Attendances().ListActiveByCarnival(ctx, 1)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []uint{12, 11, 10}, []uint{got[0].ClubID, got[1].ClubID, got[2].ClubID})

		highest, err := tx.Attendances().MaxDisplayOrder(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, highest)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_ClubTextSearchMatchesAlternateNames(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Transaction(ctx, func(ctx context.Context, tx Repositories) error {
		club := newClub("North Sydney Bears")
		require.NoError(t, tx.Clubs().Create(ctx, club))
		require.NoError(t, tx.AlternateNames().Create(ctx, &model.ClubAlternateName{
			ClubID: club.ID, AlternateName: "Norths", IsActive: true,
		}))
		hidden := newClub("Norths Reserve")
		hidden.IsPubliclyListed = false
		require.NoError(t, tx.Clubs().Create(ctx, hidden))

		got, err := tx.Clubs().List(ctx, ClubFilter{Text: "norths"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, club.ID, got[0].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_SubscriptionsByStateAndKind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Transaction(ctx, func(ctx context.Context, tx Repositories) error {
		subs := []*model.EmailSubscription{
			{Email: "a@example.com", States: model.StringSlice{"QLD"}, NotificationTypes: model.StringSlice{string(model.NotifyCarnivals)}, UnsubscribeToken: "a", IsActive: true},
			{Email: "b@example.com", States: model.StringSlice{"NSW"}, NotificationTypes: model.StringSlice{string(model.NotifyCarnivals)}, UnsubscribeToken: "b", IsActive: true},
			{Email: "c@example.com", States: model.StringSlice{"QLD"}, NotificationTypes: model.StringSlice{string(model.NotifyCarnivals)}, UnsubscribeToken: "c", IsActive: false},
		}
		for _, s := range subs {
			require.NoError(t, tx.Subscriptions().Create(ctx, s))
		}

		got, err := tx.Subscriptions().ListActiveFor(ctx, model.StateQLD, model.NotifyCarnivals)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a@example.com", got[0].Email)
		return nil
	})
	require.NoError(t, err)
}
