package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mastersrl/carnivalhub/internal/event"
	"mastersrl/carnivalhub/internal/model"
)

func TestAttendance_SelfServiceDefaultsContactAndRejectsDuplicate(t *testing.T) {
	h := newHarness(t)
	_, organiser := h.clubWithPrimary("Host Masters")
	club, u := h.clubWithPrimary("Redcliffe Masters")
	x := h.ownedCarnival(organiser)

	reg, err := h.attendance.RegisterSelfService(h.ctx, u.ID, x.ID, RegistrationInput{PlayerCount: ptr(18)})
	require.NoError(t, err)
	assert.Equal(t, club.ID, reg.ClubID)
	assert.Equal(t, 1, reg.DisplayOrder)
	assert.False(t, reg.IsPaid)
	require.NotNil(t, reg.ContactEmail)
	assert.Equal(t, u.Email, *reg.ContactEmail)
	require.NotNil(t, reg.ContactPerson)
	assert.Equal(t, u.DisplayName, *reg.ContactPerson)

	_, err = h.attendance.RegisterSelfService(h.ctx, u.ID, x.ID, RegistrationInput{})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestAttendance_SelfServiceIgnoresPaidFlag(t *testing.T) {
	h := newHarness(t)
	_, organiser := h.clubWithPrimary("Host Masters")
	_, u := h.clubWithPrimary("Redcliffe Masters")
	x := h.ownedCarnival(organiser)

	reg, err := h.attendance.RegisterSelfService(h.ctx, u.ID, x.ID, RegistrationInput{IsPaid: ptr(true)})
	require.NoError(t, err)
	assert.False(t, reg.IsPaid)
	assert.Nil(t, reg.PaymentDate)
}

func TestAttendance_PaidUnregistrationBlocked(t *testing.T) {
	h := newHarness(t)
	_, organiser := h.clubWithPrimary("Host Masters")
	_, u := h.clubWithPrimary("Redcliffe Masters")
	x := h.ownedCarnival(organiser)

	reg, err := h.attendance.RegisterSelfService(h.ctx, u.ID, x.ID, RegistrationInput{})
	require.NoError(t, err)

	paid, err := h.attendance.UpdateRegistration(h.ctx, organiser.ID, reg.ID, RegistrationInput{IsPaid: ptr(true), PaymentAmount: ptr(250.0)})
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaymentDate)
	assert.Equal(t, h.clock.Now(), *paid.PaymentDate)

	err = h.attendance.UnregisterSelfService(h.ctx, u.ID, x.ID)
	assert.ErrorIs(t, err, ErrRegistrationPaid)
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Contains(t, MessageOf(err), "contact the carnival organiser")

	unpaid, err := h.attendance.UpdateRegistration(h.ctx, organiser.ID, reg.ID, RegistrationInput{IsPaid: ptr(false)})
	require.NoError(t, err)
	assert.False(t, unpaid.IsPaid)
	assert.Nil(t, unpaid.PaymentDate)

	require.NoError(t, h.attendance.UnregisterSelfService(h.ctx, u.ID, x.ID))
}

func TestAttendance_UpdateKeepsPaymentDateWhileStillPaid(t *testing.T) {
	h := newHarness(t)
	_, organiser := h.clubWithPrimary("Host Masters")
	club, _ := h.clubWithPrimary("Redcliffe Masters")
	x := h.ownedCarnival(organiser)

	reg, err := h.attendance.RegisterOrganiserSide(h.ctx, organiser.ID, x.ID, club.ID, RegistrationInput{IsPaid: ptr(true)})
	require.NoError(t, err)
	first := *reg.PaymentDate

	h.clock.Advance(time.Hour)
	reg, err = h.attendance.UpdateRegistration(h.ctx, organiser.ID, reg.ID, RegistrationInput{IsPaid: ptr(true), TeamName: ptr("Redcliffe Reds")})
	require.NoError(t, err)
	assert.Equal(t, first, *reg.PaymentDate)
	assert.Equal(t, "Redcliffe Reds", *reg.TeamName)

	reg, err = h.attendance.UpdateRegistration(h.ctx, organiser.ID, reg.ID, RegistrationInput{TeamName: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, reg.TeamName)
	assert.True(t, reg.IsPaid)
}

func TestAttendance_OrganiserSideRequiresOwnership(t *testing.T) {
	h := newHarness(t)
	_, organiser := h.clubWithPrimary("Host Masters")
	club, stranger := h.clubWithPrimary("Redcliffe Masters")
	x := h.ownedCarnival(organiser)

	_, err := h.attendance.RegisterOrganiserSide(h.ctx, stranger.ID, x.ID, club.ID, RegistrationInput{})
	assert.ErrorIs(t, err, ErrNotPermitted)

	_, err = h.attendance.RegisterOrganiserSide(h.ctx, organiser.ID, x.ID, 9999, RegistrationInput{})
	assert.ErrorIs(t, err, ErrClubNotFound)
}

func TestAttendance_RemoveThenRegisterAgain(t *testing.T) {
	h := newHarness(t)
	_, organiser := h.clubWithPrimary("Host Masters")
	club, _ := h.clubWithPrimary("Redcliffe Masters")
	x := h.ownedCarnival(organiser)

	reg, err := h.attendance.RegisterOrganiserSide(h.ctx, organiser.ID, x.ID, club.ID, RegistrationInput{})
	require.NoError(t, err)
	require.NoError(t, h.attendance.RemoveOrganiserSide(h.ctx, organiser.ID, reg.ID))

	again, err := h.attendance.RegisterOrganiserSide(h.ctx, organiser.ID, x.ID, club.ID, RegistrationInput{})
	require.NoError(t, err)
	assert.NotEqual(t, reg.ID, again.ID)

	err = h.attendance.RemoveOrganiserSide(h.ctx, organiser.ID, reg.ID)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestAttendance_ReorderPermutation(t *testing.T) {
	h := newHarness(t)
	_, organiser := h.clubWithPrimary("Host Masters")
	x := h.ownedCarnival(organiser)

	var ids []uint
	for _, name := range []string{"Club A", "Club B", "Club C"} {
		club, _ := h.clubWithPrimary(name)
		reg, err := h.attendance.RegisterOrganiserSide(h.ctx, organiser.ID, x.ID, club.ID, RegistrationInput{})
		require.NoError(t, err)
		ids = append(ids, reg.ID)
	}
	a, b, c := ids[0], ids[1], ids[2]
	h.events.Reset()

	ordered, err := h.attendance.Reorder(h.ctx, organiser.ID, x.ID, []uint{c, a, b})
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	assert.Equal(t, []event.Kind{event.AttendanceReorder}, h.events.Kinds())

	entries, err := h.directory.ListAttendances(h.ctx, x.ID)
	require.NoError(t, err)
	got := map[uint]int{}
	for _, e := range entries {
		got[e.Registration.ID] = e.Registration.DisplayOrder
	}
	assert.Equal(t, map[uint]int{c: 1, a: 2, b: 3}, got)
	assert.Equal(t, c, entries[0].Registration.ID)

	_, err = h.attendance.Reorder(h.ctx, organiser.ID, x.ID, []uint{a, b})
	assert.ErrorIs(t, err, ErrNotPermutation)
	assert.Equal(t, KindInvalid, KindOf(err))

	_, err = h.attendance.Reorder(h.ctx, organiser.ID, x.ID, []uint{a, a, b})
	assert.ErrorIs(t, err, ErrNotPermutation)
}

func TestAttendance_NewRegistrationAppendsAfterGap(t *testing.T) {
	h := newHarness(t)
	_, organiser := h.clubWithPrimary("Host Masters")
	x := h.ownedCarnival(organiser)

	var regs []*model.CarnivalClub
	for _, name := range []string{"Club A", "Club B", "Club C"} {
		club, _ := h.clubWithPrimary(name)
		reg, err := h.attendance.RegisterOrganiserSide(h.ctx, organiser.ID, x.ID, club.ID, RegistrationInput{})
		require.NoError(t, err)
		regs = append(regs, reg)
	}
	require.NoError(t, h.attendance.RemoveOrganiserSide(h.ctx, organiser.ID, regs[0].ID))

	club, _ := h.clubWithPrimary("Club D")
	reg, err := h.attendance.RegisterOrganiserSide(h.ctx, organiser.ID, x.ID, club.ID, RegistrationInput{})
	require.NoError(t, err)
	assert.Equal(t, 4, reg.DisplayOrder)
}

func TestAttendance_InvalidContactEmail(t *testing.T) {
	h := newHarness(t)
	_, organiser := h.clubWithPrimary("Host Masters")
	club, _ := h.clubWithPrimary("Redcliffe Masters")
	x := h.ownedCarnival(organiser)

	_, err := h.attendance.RegisterOrganiserSide(h.ctx, organiser.ID, x.ID, club.ID, RegistrationInput{ContactEmail: ptr("not-an-email")})
	require.Error(t, err)
	assert.Equal(t, KindInvalid, KindOf(err))
	assert.Equal(t, "contact_email", FieldsOf(err)[0].Field)
}

func TestAttendance_RegistrationFieldBounds(t *testing.T) {
	cases := []struct {
		name  string
		in    RegistrationInput
		field string
	}{
		{name: "zero players", in: RegistrationInput{PlayerCount: ptr(0)}},
		{name: "hundred players", in: RegistrationInput{PlayerCount: ptr(100)}},
		{name: "too many players", in: RegistrationInput{PlayerCount: ptr(101)}, field: "player_count"},
		{name: "negative players", in: RegistrationInput{PlayerCount: ptr(-1)}, field: "player_count"},
		{name: "team name at limit", in: RegistrationInput{TeamName: ptr(strings.Repeat("é", 100))}},
		{name: "team name too long", in: RegistrationInput{TeamName: ptr(strings.Repeat("é", 101))}, field: "team_name"},
		{name: "special requirements too long", in: RegistrationInput{SpecialRequirements: ptr(strings.Repeat("x", 501))}, field: "special_requirements"},
		{name: "notes too long", in: RegistrationInput{RegistrationNotes: ptr(strings.Repeat("x", 1001))}, field: "registration_notes"},
		{name: "phone too long", in: RegistrationInput{ContactPhone: ptr(strings.Repeat("4", 21))}, field: "contact_phone"},
		{name: "negative payment", in: RegistrationInput{PaymentAmount: ptr(-0.01)}, field: "payment_amount"},
	}

	assertBounds := func(t *testing.T, err error, field string) {
		t.Helper()
		if field == "" {
			assert.NoError(t, err)
			return
		}
		require.Error(t, err)
		assert.Equal(t, KindInvalid, KindOf(err))
		fields := FieldsOf(err)
		require.Len(t, fields, 1)
		assert.Equal(t, field, fields[0].Field)
	}

	for _, tc := range cases {
		t.Run("organiser side/"+tc.name, func(t *testing.T) {
			h := newHarness(t)
			_, organiser := h.clubWithPrimary("Host Masters")
			club, _ := h.clubWithPrimary("Redcliffe Masters")
			x := h.ownedCarnival(organiser)

			_, err := h.attendance.RegisterOrganiserSide(h.ctx, organiser.ID, x.ID, club.ID, tc.in)
			assertBounds(t, err, tc.field)
		})

		t.Run("update/"+tc.name, func(t *testing.T) {
			h := newHarness(t)
			_, organiser := h.clubWithPrimary("Host Masters")
			club, _ := h.clubWithPrimary("Redcliffe Masters")
			x := h.ownedCarnival(organiser)
			reg, err := h.attendance.RegisterOrganiserSide(h.ctx, organiser.ID, x.ID, club.ID, RegistrationInput{})
			require.NoError(t, err)

			_, err = h.attendance.UpdateRegistration(h.ctx, organiser.ID, reg.ID, tc.in)
			assertBounds(t, err, tc.field)
		})
	}
}
