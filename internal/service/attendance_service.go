package service

import (
	"context"
	"errors"

	"mastersrl/carnivalhub/internal/event"
	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/policy"
	"mastersrl/carnivalhub/internal/repository"
)

// RegistrationInput carries the optional attendance fields. A nil pointer leaves
// the stored value alone; an empty string clears it.
type RegistrationInput struct {
	PlayerCount         *int     `json:"player_count" validate:"omitempty,min=0,max=100"`
	TeamName            *string  `json:"team_name" validate:"omitempty,max=100"`
	ContactPerson       *string  `json:"contact_person" validate:"omitempty,max=100"`
	ContactEmail        *string  `json:"contact_email" validate:"omitempty,max=320"`
	ContactPhone        *string  `json:"contact_phone" validate:"omitempty,max=20"`
	SpecialRequirements *string  `json:"special_requirements" validate:"omitempty,max=500"`
	RegistrationNotes   *string  `json:"registration_notes" validate:"omitempty,max=1000"`
	PaymentAmount       *float64 `json:"payment_amount" validate:"omitempty,min=0"`
	IsPaid              *bool    `json:"is_paid"`
}

func (in *RegistrationInput) normalize() error {
	in.TeamName = trimPtr(in.TeamName)
	in.ContactPerson = trimPtr(in.ContactPerson)
	in.ContactEmail = trimPtr(in.ContactEmail)
	in.ContactPhone = trimPtr(in.ContactPhone)
	in.SpecialRequirements = trimPtr(in.SpecialRequirements)
	in.RegistrationNotes = trimPtr(in.RegistrationNotes)
	if err := check(in); err != nil {
		return err
	}
	if in.ContactEmail != nil && *in.ContactEmail != "" {
		if err := validate.Var(*in.ContactEmail, "email"); err != nil {
			return invalidField("contact_email", "must be a valid email address")
		}
	}
	return nil
}

func (in *RegistrationInput) applyTo(r *model.CarnivalClub) {
	set := func(dst **string, src *string) {
		if src != nil {
			*dst = nonEmpty(src)
		}
	}
	if in.PlayerCount != nil {
		r.PlayerCount = in.PlayerCount
	}
	set(&r.TeamName, in.TeamName)
	set(&r.ContactPerson, in.ContactPerson)
	set(&r.ContactEmail, in.ContactEmail)
	set(&r.ContactPhone, in.ContactPhone)
	set(&r.SpecialRequirements, in.SpecialRequirements)
	set(&r.RegistrationNotes, in.RegistrationNotes)
	if in.PaymentAmount != nil {
		r.PaymentAmount = in.PaymentAmount
	}
}

// AttendanceService manages CarnivalClub registrations.
type AttendanceService struct {
	runtime
}

func NewAttendanceService(d Deps) *AttendanceService {
	return &AttendanceService{runtime: newRuntime(d, "attendance")}
}

// RegisterOrganiserSide lets the carnival's organiser register any active club.
func (s *AttendanceService) RegisterOrganiserSide(ctx context.Context, actorID, carnivalID, clubID uint, in RegistrationInput) (*model.CarnivalClub, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var reg *model.CarnivalClub
	err := s.execute(ctx, "attendance.register_organiser", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		carnival, err := activeCarnival(ctx, tx, carnivalID, true)
		if err != nil {
			return err
		}
		if !policy.CanEditCarnival(actor, carnival) {
			return ErrNotPermitted
		}
		club, err := activeClub(ctx, tx, clubID, false)
		if err != nil {
			return err
		}

		paid := in.IsPaid != nil && *in.IsPaid
		reg, err = s.insert(ctx, tx, carnival, club, in, paid)
		if err != nil {
			return err
		}
		emit(s.attendanceEvent(event.AttendanceAdded, carnival, club, reg).By(actor))
		return nil
	})
	return reg, err
}

// RegisterSelfService registers the actor's own club. Contact fields default to
// the actor and payment is always left for the organiser to confirm.
func (s *AttendanceService) RegisterSelfService(ctx context.Context, actorID, carnivalID uint, in RegistrationInput) (*model.CarnivalClub, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var reg *model.CarnivalClub
	err := s.execute(ctx, "attendance.register_self", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if actor.ClubID == nil {
			return ErrClubRequired
		}
		carnival, err := activeCarnival(ctx, tx, carnivalID, true)
		if err != nil {
			return err
		}
		club, err := activeClub(ctx, tx, *actor.ClubID, false)
		if err != nil {
			return err
		}
		if !policy.CanRegisterClub(actor, club.ID) {
			return ErrNotPermitted
		}

		if in.ContactPerson == nil || *in.ContactPerson == "" {
			in.ContactPerson = &actor.DisplayName
		}
		if in.ContactEmail == nil || *in.ContactEmail == "" {
			in.ContactEmail = &actor.Email
		}
		if (in.ContactPhone == nil || *in.ContactPhone == "") && actor.Phone != nil {
			in.ContactPhone = actor.Phone
		}
		reg, err = s.insert(ctx, tx, carnival, club, in, false)
		if err != nil {
			return err
		}
		emit(s.attendanceEvent(event.AttendanceAdded, carnival, club, reg).By(actor))
		return nil
	})
	return reg, err
}

func (s *AttendanceService) insert(
	ctx context.Context, tx repository.Repositories,
	carnival *model.Carnival, club *model.Club, in RegistrationInput, paid bool,
) (*model.CarnivalClub, error) {
	if _, err := tx.Attendances().GetActive(ctx, carnival.ID, club.ID); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	last, err := tx.Attendances().MaxDisplayOrder(ctx, carnival.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	reg := &model.CarnivalClub{
		CarnivalID:       carnival.ID,
		ClubID:           club.ID,
		DisplayOrder:     last + 1,
		RegistrationDate: now,
		IsActive:         true,
	}
	in.applyTo(reg)
	reg.SetPaid(paid, now)

	if err := tx.Attendances().Create(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}
	return reg, nil
}

// UpdateRegistration edits a registration; toggling is_paid sets or clears the payment date.
func (s *AttendanceService) UpdateRegistration(ctx context.Context, actorID, regID uint, in RegistrationInput) (*model.CarnivalClub, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var reg *model.CarnivalClub
	err := s.execute(ctx, "attendance.update", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		actor, carnival, r, err := s.organiserTarget(ctx, tx, actorID, regID)
		if err != nil {
			return err
		}

		in.applyTo(r)
		if in.IsPaid != nil {
			r.SetPaid(*in.IsPaid, s.clock.Now())
		}
		if err := tx.Attendances().Update(ctx, r); err != nil {
			return err
		}
		reg = r
		emit(s.attendanceEvent(event.AttendanceUpdated, carnival, nil, r).By(actor))
		return nil
	})
	return reg, err
}

// RemoveOrganiserSide soft-deletes a registration. Survivors keep their display
// order until the next Reorder.
func (s *AttendanceService) RemoveOrganiserSide(ctx context.Context, actorID, regID uint) error {
	return s.execute(ctx, "attendance.remove_organiser", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		actor, carnival, r, err := s.organiserTarget(ctx, tx, actorID, regID)
		if err != nil {
			return err
		}

		r.IsActive = false
		if err := tx.Attendances().Update(ctx, r); err != nil {
			return err
		}
		emit(s.attendanceEvent(event.AttendanceRemoved, carnival, nil, r).By(actor))
		return nil
	})
}

// organiserTarget loads an active registration and checks the actor may edit its carnival.
func (s *AttendanceService) organiserTarget(
	ctx context.Context, tx repository.Repositories, actorID, regID uint,
) (*model.User, *model.Carnival, *model.CarnivalClub, error) {
	actor, err := loadActor(ctx, tx, actorID)
	if err != nil {
		return nil, nil, nil, err
	}
	r, err := tx.Attendances().GetByID(ctx, regID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !r.IsActive) {
		return nil, nil, nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, nil, nil, err
	}
	carnival, err := activeCarnival(ctx, tx, r.CarnivalID, true)
	if err != nil {
		return nil, nil, nil, err
	}
	if !policy.CanEditCarnival(actor, carnival) {
		return nil, nil, nil, ErrNotPermitted
	}
	return actor, carnival, r, nil
}

// UnregisterSelfService withdraws the actor's club from a carnival unless it has paid.
func (s *AttendanceService) UnregisterSelfService(ctx context.Context, actorID, carnivalID uint) error {
	return s.execute(ctx, "attendance.unregister_self", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if actor.ClubID == nil {
			return ErrClubRequired
		}
		carnival, err := activeCarnival(ctx, tx, carnivalID, true)
		if err != nil {
			return err
		}
		r, err := tx.Attendances().GetActive(ctx, carnival.ID, *actor.ClubID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRegistrationNotFound
		}
		if err != nil {
			return err
		}
		if r.IsPaid {
			return ErrRegistrationPaid
		}

		r.IsActive = false
		if err := tx.Attendances().Update(ctx, r); err != nil {
			return err
		}
		emit(s.attendanceEvent(event.AttendanceRemoved, carnival, nil, r).By(actor))
		return nil
	})
}

// Reorder assigns display orders 1..N following orderedIDs, which must be a
// permutation of the carnival's active registration ids.
func (s *AttendanceService) Reorder(ctx context.Context, actorID, carnivalID uint, orderedIDs []uint) ([]model.CarnivalClub, error) {
	var result []model.CarnivalClub
	err := s.execute(ctx, "attendance.reorder", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		carnival, err := activeCarnival(ctx, tx, carnivalID, true)
		if err != nil {
			return err
		}
		if !policy.CanEditCarnival(actor, carnival) {
			return ErrNotPermitted
		}
		active, err := tx.Attendances().ListActiveByCarnival(ctx, carnival.ID)
		if err != nil {
			return err
		}
		if !isPermutation(active, orderedIDs) {
			return ErrNotPermutation
		}

		byID := make(map[uint]model.CarnivalClub, len(active))
		for _, r := range active {
			byID[r.ID] = r
		}
		result = make([]model.CarnivalClub, 0, len(orderedIDs))
		for i, id := range orderedIDs {
			r := byID[id]
			if r.DisplayOrder != i+1 {
				r.DisplayOrder = i + 1
				if err := tx.Attendances().Update(ctx, &r); err != nil {
					return err
				}
			}
			result = append(result, r)
		}
		emit(s.attendanceEvent(event.AttendanceReorder, carnival, nil, nil).By(actor))
		return nil
	})
	return result, err
}

func isPermutation(active []model.CarnivalClub, ids []uint) bool {
	if len(active) != len(ids) {
		return false
	}
	want := make(map[uint]bool, len(active))
	for _, r := range active {
		want[r.ID] = true
	}
	for _, id := range ids {
		if !want[id] {
			return false
		}
		delete(want, id)
	}
	return len(want) == 0
}

func (s *AttendanceService) attendanceEvent(kind event.Kind, c *model.Carnival, club *model.Club, r *model.CarnivalClub) event.Event {
	e := event.New(kind, s.clock.Now()).ForCarnival(c)
	if club != nil {
		e = e.ForClub(club)
	}
	if r != nil {
		e.RegistrationID = r.ID
		e.ClubID = r.ClubID
	}
	return e
}
