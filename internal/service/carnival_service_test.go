package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mastersrl/carnivalhub/internal/event"
	"mastersrl/carnivalhub/internal/repository"
)

func TestCarnivalService_Create(t *testing.T) {
	h := newHarness(t)
	_, primary := h.clubWithPrimary("Redcliffe Masters")
	h.events.Reset()

	c, err := h.carnivals.Create(h.ctx, primary.ID, carnivalInput())
	require.NoError(t, err)
	assert.True(t, c.IsManuallyEntered)
	assert.Nil(t, c.ExternalEventID)
	assert.True(t, c.OwnedBy(primary.ID))
	assert.Equal(t, []event.Kind{event.CarnivalCreated}, h.events.Kinds())
}

func TestCarnivalService_CreateRequiresClub(t *testing.T) {
	h := newHarness(t)
	loner := h.newUser("")

	_, err := h.carnivals.Create(h.ctx, loner.ID, carnivalInput())
	assert.ErrorIs(t, err, ErrClubRequired)
	assert.Empty(t, h.events.Events())
}

func TestCarnivalService_CreateValidation(t *testing.T) {
	h := newHarness(t)
	_, primary := h.clubWithPrimary("Redcliffe Masters")

	in := carnivalInput()
	in.Title = " x "
	in.State = "XYZ"
	_, err := h.carnivals.Create(h.ctx, primary.ID, in)
	require.Error(t, err)
	assert.Equal(t, KindInvalid, KindOf(err))

	fields := map[string]string{}
	for _, f := range FieldsOf(err) {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "must be at least 3 characters", fields["title"])
	assert.Equal(t, "must be an Australian state or territory code", fields["state"])
}

func TestCarnivalService_Update(t *testing.T) {
	h := newHarness(t)
	_, owner := h.clubWithPrimary("Redcliffe Masters")
	_, other := h.clubWithPrimary("Wynnum Masters")
	admin := h.admin()
	c := h.ownedCarnival(owner)

	in := carnivalInput()
	in.Title = "Sunshine Coast Masters 2026"
	updated, err := h.carnivals.Update(h.ctx, owner.ID, c.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Sunshine Coast Masters 2026", updated.Title)

	_, err = h.carnivals.Update(h.ctx, other.ID, c.ID, in)
	assert.ErrorIs(t, err, ErrNotPermitted)

	_, err = h.carnivals.Update(h.ctx, admin.ID, c.ID, in)
	assert.NoError(t, err)
}

func TestCarnivalService_UpdateImportedIsAdminOnlyUntilClaimed(t *testing.T) {
	h := newHarness(t)
	_, delegate := h.clubWithPrimary("Redcliffe Masters")
	admin := h.admin()
	c := h.importedCarnival("ms-7")

	_, err := h.carnivals.Update(h.ctx, delegate.ID, c.ID, carnivalInput())
	assert.ErrorIs(t, err, ErrNotPermitted)

	updated, err := h.carnivals.Update(h.ctx, admin.ID, c.ID, carnivalInput())
	require.NoError(t, err)
	require.NotNil(t, updated.ExternalEventID)
	assert.Equal(t, "ms-7", *updated.ExternalEventID)
	assert.False(t, updated.IsManuallyEntered)
}

func TestOwnershipService_ClaimImportedCarnival(t *testing.T) {
	h := newHarness(t)
	_, u := h.clubWithPrimary("Redcliffe Masters")
	_, v := h.clubWithPrimary("Wynnum Masters")
	x := h.importedCarnival("ms-42")
	h.events.Reset()

	claimed, err := h.ownership.ClaimCarnival(h.ctx, u.ID, x.ID)
	require.NoError(t, err)
	assert.True(t, claimed.OwnedBy(u.ID))
	assert.True(t, h.carnival(x.ID).OwnedBy(u.ID))

	evs := h.events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, event.CarnivalClaimed, evs[0].Kind)
	assert.Equal(t, u.Email, evs[0].UserEmail)

	_, err = h.ownership.ClaimCarnival(h.ctx, v.ID, x.ID)
	assert.ErrorIs(t, err, ErrCarnivalOwned)
	assert.Equal(t, KindForbidden, KindOf(err))

	again, err := h.ownership.ClaimCarnival(h.ctx, u.ID, x.ID)
	require.NoError(t, err)
	assert.True(t, again.OwnedBy(u.ID))
	assert.Len(t, h.events.Events(), 1)
}

func TestOwnershipService_ClaimRequiresClub(t *testing.T) {
	h := newHarness(t)
	loner := h.newUser("")
	x := h.importedCarnival("ms-43")

	_, err := h.ownership.ClaimCarnival(h.ctx, loner.ID, x.ID)
	assert.ErrorIs(t, err, ErrClubRequired)
	assert.True(t, h.carnival(x.ID).Ownerless())
}

func TestOwnershipService_Archive(t *testing.T) {
	h := newHarness(t)
	_, owner := h.clubWithPrimary("Redcliffe Masters")
	admin := h.admin()
	owned := h.ownedCarnival(owner)
	imported := h.importedCarnival("ms-44")

	assert.ErrorIs(t, h.ownership.ArchiveCarnival(h.ctx, owner.ID, imported.ID), ErrNotPermitted)
	require.NoError(t, h.ownership.ArchiveCarnival(h.ctx, owner.ID, owned.ID))
	require.NoError(t, h.ownership.ArchiveCarnival(h.ctx, admin.ID, imported.ID))
	assert.False(t, h.carnival(owned.ID).IsActive)

	_, err := h.directory.GetCarnival(h.ctx, owned.ID)
	assert.ErrorIs(t, err, ErrCarnivalNotFound)
}

func TestOwnershipService_UnknownCarnival(t *testing.T) {
	h := newHarness(t)
	_, u := h.clubWithPrimary("Redcliffe Masters")

	_, err := h.ownership.ClaimCarnival(h.ctx, u.ID, 9999)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestLoadActor_InactiveAndAnonymous(t *testing.T) {
	h := newHarness(t)
	u := h.newUser("")
	u.IsActive = false
	h.tx(func(ctx context.Context, tx repository.Repositories) error { return tx.Users().Update(ctx, u) })

	_, err := h.carnivals.Create(h.ctx, u.ID, carnivalInput())
	assert.ErrorIs(t, err, ErrActorInactive)

	_, err = h.carnivals.Create(h.ctx, 0, carnivalInput())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
