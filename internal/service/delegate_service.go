package service

import (
	"context"
	"errors"
	"strings"

	"mastersrl/carnivalhub/internal/event"
	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/policy"
	"mastersrl/carnivalhub/internal/repository"
	"mastersrl/carnivalhub/pkg/crypto"
)

type ClubInput struct {
	ClubName      string            `json:"club_name" validate:"required,min=2,max=100"`
	State         model.State       `json:"state" validate:"required,state"`
	Location      string            `json:"location" validate:"max=200"`
	ContactEmail  *string           `json:"contact_email" validate:"omitempty,email,max=320"`
	ContactPhone  *string           `json:"contact_phone" validate:"omitempty,max=20"`
	ContactPerson *string           `json:"contact_person" validate:"omitempty,max=100"`
	Description   *string           `json:"description" validate:"omitempty,max=2000"`
	LogoPath      *string           `json:"logo_path" validate:"omitempty,max=500"`
	Social        model.SocialLinks `json:"social"`
}

func (in *ClubInput) normalize() error {
	in.ClubName = strings.Join(strings.Fields(in.ClubName), " ")
	in.Location = strings.TrimSpace(in.Location)
	in.ContactEmail = nonEmpty(trimPtr(in.ContactEmail))
	in.ContactPhone = nonEmpty(trimPtr(in.ContactPhone))
	in.ContactPerson = nonEmpty(trimPtr(in.ContactPerson))
	in.Description = nonEmpty(trimPtr(in.Description))
	in.LogoPath = nonEmpty(trimPtr(in.LogoPath))
	return check(in)
}

func (in *ClubInput) applyTo(c *model.Club) {
	c.ClubName = in.ClubName
	c.State = in.State
	c.Location = in.Location
	c.ContactEmail = in.ContactEmail
	c.ContactPhone = in.ContactPhone
	c.ContactPerson = in.ContactPerson
	c.Description = in.Description
	c.LogoPath = in.LogoPath
	c.Social = in.Social
}

type ProxyClubInput struct {
	Club          ClubInput `json:"club"`
	InviteEmail   string    `json:"invite_email" validate:"required,email,max=320"`
	CustomMessage string    `json:"custom_message" validate:"max=1000"`
}

// ProxyInvitation is the result of creating a club on someone else's behalf.
type ProxyInvitation struct {
	Club  *model.Club
	Token *model.InvitationToken
}

type AcceptInvitationInput struct {
	Email       string  `json:"email" validate:"required,email,max=320"`
	DisplayName string  `json:"display_name" validate:"omitempty,min=2,max=100"`
	Password    string  `json:"password" validate:"omitempty,min=8,max=72"`
	Phone       *string `json:"phone" validate:"omitempty,max=20"`
}

type LeaveAction string

const (
	LeaveTransfer   LeaveAction = "transfer"
	LeaveDeactivate LeaveAction = "deactivate"
	LeaveAvailable  LeaveAction = "available"
)

type LeaveInput struct {
	Action       LeaveAction `json:"action"`
	TargetUserID *uint       `json:"target_user_id"`
	Confirmed    bool        `json:"confirmed"`
}

// DelegateService manages club membership, club profiles and invitations.
type DelegateService struct {
	runtime
	minter *TokenMinter
}

func NewDelegateService(d Deps, minter *TokenMinter) *DelegateService {
	return &DelegateService{runtime: newRuntime(d, "delegate"), minter: minter}
}

// CreateClub creates a club and makes the actor its primary delegate.
func (s *DelegateService) CreateClub(ctx context.Context, actorID uint, in ClubInput) (*model.Club, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var created *model.Club
	err := s.execute(ctx, "club.create", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		now := s.clock.Now()
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if actor.ClubID != nil {
			return ErrAlreadyInClub
		}
		club := &model.Club{
			IsActive:         true,
			IsPubliclyListed: true,
			CreatedByUserID:  &actor.ID,
		}
		in.applyTo(club)
		if err := createClub(ctx, tx, club); err != nil {
			return err
		}

		actor.ClubID = &club.ID
		actor.IsPrimaryDelegate = true
		actor.JoinedClubAt = &now
		if err := tx.Users().Update(ctx, actor); err != nil {
			return err
		}
		created = club
		emit(event.New(event.ClubCreated, now).ForClub(club).By(actor))
		return nil
	})
	return created, err
}

// CreateClubOnBehalf creates an unlisted proxy club and invites its future primary delegate.
func (s *DelegateService) CreateClubOnBehalf(ctx context.Context, actorID uint, in ProxyClubInput) (*ProxyInvitation, error) {
	in.InviteEmail = normalizeEmail(in.InviteEmail)
	in.CustomMessage = strings.TrimSpace(in.CustomMessage)
	if err := in.Club.normalize(); err != nil {
		return nil, err
	}
	if err := check(&in); err != nil {
		return nil, err
	}

	var out *ProxyInvitation
	err := s.execute(ctx, "club.create_on_behalf", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		now := s.clock.Now()
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if !policy.CanCreateOnBehalf(actor) {
			return ErrClubRequired
		}
		club := &model.Club{
			IsActive:         true,
			IsPubliclyListed: false,
			CreatedByUserID:  &actor.ID,
			CreatedByProxy:   true,
			InviteEmail:      &in.InviteEmail,
		}
		in.Club.applyTo(club)
		if err := createClub(ctx, tx, club); err != nil {
			return err
		}

		token, err := s.minter.invite(ctx, tx.Tokens(), mintRequest{
			Subject:   model.TokenSubjectProxyClub,
			ClubID:    club.ID,
			Email:     in.InviteEmail,
			InvitedBy: actor.ID,
			Now:       now,
		})
		if err != nil {
			return err
		}
		out = &ProxyInvitation{Club: club, Token: token}

		e := event.New(event.ProxyInvitationIssued, now).ForClub(club).By(actor)
		e.InviteEmail = token.InviteEmail
		e.InviterName = actor.DisplayName
		e.Token = token.Value
		e.TokenExpiresAt = &token.ExpiresAt
		e.CustomMessage = in.CustomMessage
		emit(e)
		return nil
	})
	return out, err
}

func createClub(ctx context.Context, tx repository.Repositories, club *model.Club) error {
	if _, err := tx.Clubs().GetActiveByName(ctx, club.ClubName); err == nil {
		return ErrClubNameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	err := tx.Clubs().Create(ctx, club)
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrClubNameTaken
	}
	return err
}

// InviteDelegate lets a primary delegate invite a co-delegate by email.
func (s *DelegateService) InviteDelegate(ctx context.Context, actorID uint, email string) (*model.InvitationToken, error) {
	email = normalizeEmail(email)
	if err := validate.Var(email, "required,email,max=320"); err != nil {
		return nil, invalidField("email", "must be a valid email address")
	}

	var token *model.InvitationToken
	err := s.execute(ctx, "delegate.invite", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		now := s.clock.Now()
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if !policy.CanInviteDelegate(actor) {
			return ErrNotPermitted
		}
		club, err := activeClub(ctx, tx, *actor.ClubID, false)
		if err != nil {
			return err
		}
		if existing, err := tx.Users().GetByEmail(ctx, email); err == nil {
			if existing.InClub(club.ID) {
				return ErrAlreadyDelegate
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		token, err = s.minter.invite(ctx, tx.Tokens(), mintRequest{
			Subject:   model.TokenSubjectDelegate,
			ClubID:    club.ID,
			Email:     email,
			InvitedBy: actor.ID,
			Now:       now,
		})
		if err != nil {
			return err
		}
		e := event.New(event.DelegateInvitationIssued, now).ForClub(club).By(actor)
		e.InviteEmail = token.InviteEmail
		e.InviterName = actor.DisplayName
		e.Token = token.Value
		e.TokenExpiresAt = &token.ExpiresAt
		emit(e)
		return nil
	})
	return token, err
}

// AcceptDelegateInvitation attaches the invited email to the club as a regular
// delegate, creating the account when it does not exist yet.
func (s *DelegateService) AcceptDelegateInvitation(ctx context.Context, tokenValue string, in AcceptInvitationInput) (*model.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Phone = nonEmpty(trimPtr(in.Phone))
	if err := check(&in); err != nil {
		return nil, err
	}

	var user *model.User
	err := s.execute(ctx, "delegate.accept_invitation", 0, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		now := s.clock.Now()
		token, err := usableToken(ctx, tx.Tokens(), tokenValue, model.TokenSubjectDelegate, now)
		if err != nil {
			return err
		}
		if !policy.EmailMatches(token.InviteEmail, in.Email) {
			return ErrEmailMismatch
		}
		club, err := activeClub(ctx, tx, token.SubjectID, false)
		if err != nil {
			return err
		}

		u, err := tx.Users().GetByEmail(ctx, in.Email)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			u, err = s.newUser(in)
			if err != nil {
				return err
			}
			u.ClubID = &club.ID
			u.JoinedClubAt = &now
			if err := tx.Users().Create(ctx, u); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return ErrEmailTaken
				}
				return err
			}
		case err != nil:
			return err
		default:
			if !u.IsActive {
				return ErrActorInactive
			}
			if u.InClub(club.ID) {
				return ErrAlreadyDelegate
			}
			if u.ClubID != nil {
				return ErrAlreadyInClub
			}
			u.ClubID = &club.ID
			u.IsPrimaryDelegate = false
			u.JoinedClubAt = &now
			if err := tx.Users().Update(ctx, u); err != nil {
				return err
			}
		}

		if err := consume(ctx, tx.Tokens(), token.Value, now); err != nil {
			return err
		}
		user = u
		emit(event.New(event.DelegateJoined, now).ForClub(club).WithUser(u))
		return nil
	})
	return user, err
}

func (s *DelegateService) newUser(in AcceptInvitationInput) (*model.User, error) {
	if in.Password == "" {
		return nil, invalidField("password", "is required")
	}
	if in.DisplayName == "" {
		return nil, invalidField("display_name", "is required")
	}
	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	return &model.User{
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		Phone:        in.Phone,
		PasswordHash: hash,
		IsActive:     true,
	}, nil
}

// JoinClub attaches the actor to a club that has no primary delegate.
func (s *DelegateService) JoinClub(ctx context.Context, actorID, clubID uint) (*model.User, error) {
	var joined *model.User
	err := s.execute(ctx, "delegate.join", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		now := s.clock.Now()
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if actor.ClubID != nil {
			return ErrAlreadyInClub
		}
		club, err := activeClub(ctx, tx, clubID, true)
		if err != nil {
			return err
		}
		if club.CreatedByProxy {
			return ErrClubProxyPending
		}
		delegates, err := tx.Users().ListByClub(ctx, club.ID)
		if err != nil {
			return err
		}
		for _, d := range delegates {
			if d.IsPrimaryDelegate {
				return ErrClubHasPrimary
			}
		}

		actor.ClubID = &club.ID
		actor.IsPrimaryDelegate = false
		actor.JoinedClubAt = &now
		if err := tx.Users().Update(ctx, actor); err != nil {
			return err
		}
		joined = actor
		emit(event.New(event.DelegateJoined, now).ForClub(club).By(actor).WithUser(actor))
		return nil
	})
	return joined, err
}

// LeaveClub detaches the actor. A primary delegate must say what happens to the club.
func (s *DelegateService) LeaveClub(ctx context.Context, actorID uint, in LeaveInput) error {
	if !in.Confirmed {
		return ErrLeaveNotConfirmed
	}

	return s.execute(ctx, "delegate.leave", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		now := s.clock.Now()
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if actor.ClubID == nil {
			return ErrClubRequired
		}
		club, err := tx.Clubs().GetForUpdate(ctx, *actor.ClubID)
		if err != nil {
			return err
		}

		if !actor.IsPrimaryDelegate {
			if err := detach(ctx, tx, actor); err != nil {
				return err
			}
			emit(event.New(event.DelegateLeft, now).ForClub(club).By(actor).WithUser(actor))
			return nil
		}

		switch in.Action {
		case LeaveTransfer:
			return s.leaveWithTransfer(ctx, tx, emit, actor, club, in.TargetUserID)
		case LeaveDeactivate:
			club.IsActive = false
			club.IsPubliclyListed = false
			if err := tx.Clubs().Update(ctx, club); err != nil {
				return err
			}
			if err := detach(ctx, tx, actor); err != nil {
				return err
			}
			emit(
				event.New(event.ClubDeactivated, now).ForClub(club).By(actor),
				event.New(event.DelegateLeft, now).ForClub(club).By(actor).WithUser(actor),
			)
			return nil
		case LeaveAvailable:
			return s.leaveAvailable(ctx, tx, emit, actor, club)
		default:
			return ErrUnknownLeave
		}
	})
}

// leaveWithTransfer detaches the actor before promoting the target so at most
// one primary delegate exists at every step.
func (s *DelegateService) leaveWithTransfer(
	ctx context.Context, tx repository.Repositories, emit emitFunc,
	actor *model.User, club *model.Club, targetID *uint,
) error {
	if targetID == nil || *targetID == actor.ID {
		return ErrInvalidTransfer
	}
	target, err := tx.Users().GetByID(ctx, *targetID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidTransfer
	}
	if err != nil {
		return err
	}
	if !target.IsActive || !target.InClub(club.ID) || target.IsPrimaryDelegate {
		return ErrInvalidTransfer
	}

	if err := detach(ctx, tx, actor); err != nil {
		return err
	}
	target.IsPrimaryDelegate = true
	if err := tx.Users().Update(ctx, target); err != nil {
		return err
	}
	now := s.clock.Now()
	emit(
		event.New(event.PrimaryDelegateChanged, now).ForClub(club).By(actor).WithUser(target),
		event.New(event.DelegateLeft, now).ForClub(club).By(actor).WithUser(actor),
	)
	return nil
}

// leaveAvailable promotes the earliest-joined remaining delegate, if any.
func (s *DelegateService) leaveAvailable(
	ctx context.Context, tx repository.Repositories, emit emitFunc,
	actor *model.User, club *model.Club,
) error {
	delegates, err := tx.Users().ListByClub(ctx, club.ID)
	if err != nil {
		return err
	}
	if err := detach(ctx, tx, actor); err != nil {
		return err
	}

	now := s.clock.Now()
	for i := range delegates {
		next := &delegates[i]
		if next.ID == actor.ID {
			continue
		}
		next.IsPrimaryDelegate = true
		if err := tx.Users().Update(ctx, next); err != nil {
			return err
		}
		emit(event.New(event.PrimaryDelegateChanged, now).ForClub(club).By(actor).WithUser(next))
		break
	}
	emit(event.New(event.DelegateLeft, now).ForClub(club).By(actor).WithUser(actor))
	return nil
}

func detach(ctx context.Context, tx repository.Repositories, u *model.User) error {
	u.Detach()
	return tx.Users().Update(ctx, u)
}

// UpdateClub edits the club profile (primary delegate or admin).
func (s *DelegateService) UpdateClub(ctx context.Context, actorID, clubID uint, in ClubInput) (*model.Club, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var updated *model.Club
	err := s.execute(ctx, "club.update", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		club, err := activeClub(ctx, tx, clubID, true)
		if err != nil {
			return err
		}
		if !policy.CanManageClub(actor, club) {
			return ErrNotPermitted
		}
		if !strings.EqualFold(club.ClubName, in.ClubName) {
			if other, err := tx.Clubs().GetActiveByName(ctx, in.ClubName); err == nil && other.ID != club.ID {
				return ErrClubNameTaken
			} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}

		in.applyTo(club)
		if err := tx.Clubs().Update(ctx, club); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrClubNameTaken
			}
			return err
		}
		updated = club
		emit(event.New(event.ClubUpdated, s.clock.Now()).ForClub(club).By(actor))
		return nil
	})
	return updated, err
}

// AddAlternateName registers a searchable alias for a club.
func (s *DelegateService) AddAlternateName(ctx context.Context, actorID, clubID uint, name string) (*model.ClubAlternateName, error) {
	name = strings.Join(strings.Fields(name), " ")
	if err := validate.Var(name, "min=2,max=100"); err != nil {
		return nil, invalidField("alternate_name", "must be between 2 and 100 characters")
	}

	var created *model.ClubAlternateName
	err := s.execute(ctx, "club.add_alternate_name", actorID, func(ctx context.Context, tx repository.Repositories, _ emitFunc) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		club, err := activeClub(ctx, tx, clubID, true)
		if err != nil {
			return err
		}
		if !policy.CanManageClub(actor, club) {
			return ErrNotPermitted
		}
		existing, err := tx.AlternateNames().ListByClub(ctx, club.ID)
		if err != nil {
			return err
		}
		for _, n := range existing {
			if strings.EqualFold(n.AlternateName, name) {
				return ErrAltNameTaken
			}
		}

		alt := &model.ClubAlternateName{ClubID: club.ID, AlternateName: name, IsActive: true}
		if err := tx.AlternateNames().Create(ctx, alt); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAltNameTaken
			}
			return err
		}
		created = alt
		return nil
	})
	return created, err
}

func (s *DelegateService) RemoveAlternateName(ctx context.Context, actorID, altID uint) error {
	return s.execute(ctx, "club.remove_alternate_name", actorID, func(ctx context.Context, tx repository.Repositories, _ emitFunc) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		alt, err := tx.AlternateNames().GetByID(ctx, altID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !alt.IsActive) {
			return ErrAltNameNotFound
		}
		if err != nil {
			return err
		}
		club, err := activeClub(ctx, tx, alt.ClubID, true)
		if err != nil {
			return err
		}
		if !policy.CanManageClub(actor, club) {
			return ErrNotPermitted
		}
		alt.IsActive = false
		return tx.AlternateNames().Update(ctx, alt)
	})
}

// PurgeSpentTokens hard-deletes consumed and expired invitation tokens.
func (s *DelegateService) PurgeSpentTokens(ctx context.Context) (int64, error) {
	var n int64
	err := s.execute(ctx, "tokens.purge", 0, func(ctx context.Context, tx repository.Repositories, _ emitFunc) error {
		var err error
		n, err = tx.Tokens().PurgeSpent(ctx, s.clock.Now())
		return err
	})
	return n, err
}
