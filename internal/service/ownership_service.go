package service

import (
	"context"
	"errors"

	"mastersrl/carnivalhub/internal/event"
	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/policy"
	"mastersrl/carnivalhub/internal/repository"
)

// OwnershipService runs the carnival-ownership and proxy-club-claim state machines.
type OwnershipService struct {
	runtime
}

func NewOwnershipService(d Deps) *OwnershipService {
	return &OwnershipService{runtime: newRuntime(d, "ownership")}
}

// ClaimCarnival moves an imported carnival from ownerless to owned by the actor.
// Claiming a carnival the actor already owns is a no-op.
func (s *OwnershipService) ClaimCarnival(ctx context.Context, actorID, carnivalID uint) (*model.Carnival, error) {
	var claimed *model.Carnival
	err := s.execute(ctx, "carnival.claim", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		c, err := activeCarnival(ctx, tx, carnivalID, true)
		if err != nil {
			return err
		}
		if c.OwnedBy(actor.ID) {
			claimed = c
			return nil
		}
		if !c.Ownerless() {
			return ErrCarnivalOwned
		}
		if actor.ClubID == nil {
			return ErrClubRequired
		}
		if _, err := activeClub(ctx, tx, *actor.ClubID, false); errors.Is(err, ErrClubNotFound) {
			return ErrClubRequired
		} else if err != nil {
			return err
		}
		if !policy.CanClaimCarnival(actor, c) {
			return ErrNotPermitted
		}

		if err := tx.Carnivals().AssignOwner(ctx, c.ID, actor.ID); err != nil {
			if errors.Is(err, repository.ErrStale) {
				return ErrCarnivalOwned
			}
			return err
		}
		c.CreatedByUserID = &actor.ID
		claimed = c
		emit(event.New(event.CarnivalClaimed, s.clock.Now()).ForCarnival(c).By(actor).WithUser(actor))
		return nil
	})
	return claimed, err
}

// ArchiveCarnival soft-deletes a carnival: owner or admin when owned, admin only when ownerless.
func (s *OwnershipService) ArchiveCarnival(ctx context.Context, actorID, carnivalID uint) error {
	return s.execute(ctx, "carnival.archive", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		c, err := activeCarnival(ctx, tx, carnivalID, true)
		if err != nil {
			return err
		}
		if !policy.CanArchiveCarnival(actor, c) {
			return ErrNotPermitted
		}

		c.IsActive = false
		if err := tx.Carnivals().Update(ctx, c); err != nil {
			return err
		}
		emit(event.New(event.CarnivalArchived, s.clock.Now()).ForCarnival(c).By(actor))
		return nil
	})
}

// ClaimProxyClub makes the invited actor the primary delegate of a proxy-created club.
// The token is consumed in the same transaction; any failed guard leaves it usable.
func (s *OwnershipService) ClaimProxyClub(ctx context.Context, actorID, clubID uint, tokenValue string) (*model.Club, error) {
	var claimed *model.Club
	err := s.execute(ctx, "club.claim_proxy", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		now := s.clock.Now()
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		token, err := usableToken(ctx, tx.Tokens(), tokenValue, model.TokenSubjectProxyClub, now)
		if err != nil {
			return err
		}
		if token.SubjectID != clubID {
			return ErrTokenMismatch
		}
		if !policy.EmailMatches(token.InviteEmail, actor.Email) {
			return ErrEmailMismatch
		}
		if actor.ClubID != nil {
			return ErrAlreadyInClub
		}

		club, err := activeClub(ctx, tx, clubID, true)
		if err != nil {
			return err
		}
		if !club.CreatedByProxy {
			return ErrClubClaimed
		}
		delegates, err := tx.Users().ListByClub(ctx, club.ID)
		if err != nil {
			return err
		}
		for _, d := range delegates {
			if d.IsPrimaryDelegate {
				return ErrClubClaimed
			}
		}
		if !policy.CanClaimProxyClub(actor, club, token, now) {
			return ErrNotPermitted
		}

		if err := consume(ctx, tx.Tokens(), token.Value, now); err != nil {
			return err
		}
		actor.ClubID = &club.ID
		actor.IsPrimaryDelegate = true
		actor.JoinedClubAt = &now
		if err := tx.Users().Update(ctx, actor); err != nil {
			return err
		}
		club.MarkClaimed()
		if err := tx.Clubs().Update(ctx, club); err != nil {
			return err
		}
		claimed = club
		emit(event.New(event.ProxyClubClaimed, now).ForClub(club).By(actor).WithUser(actor))
		return nil
	})
	return claimed, err
}
