package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/policy"
	"mastersrl/carnivalhub/internal/repository"
)

type CarnivalQuery struct {
	State        *model.State
	Upcoming     bool
	ExternalOnly bool
	Text         string
}

type ClubQuery struct {
	State *model.State
	Text  string
}

// AttendanceEntry is one row of a carnival's public attendance list.
type AttendanceEntry struct {
	Registration model.CarnivalClub `json:"registration"`
	ClubName     string             `json:"club_name"`
	ClubState    model.State        `json:"club_state"`
}

// PublicDelegate is the part of a delegate's account shown on a club profile.
type PublicDelegate struct {
	ID                uint   `json:"id"`
	DisplayName       string `json:"display_name"`
	IsPrimaryDelegate bool   `json:"is_primary_delegate"`
}

type ClubProfile struct {
	Club           model.Club                `json:"club"`
	Delegates      []PublicDelegate          `json:"delegates"`
	AlternateNames []model.ClubAlternateName `json:"alternate_names"`
	Carnivals      []model.Carnival          `json:"carnivals"`
}

// DirectoryService answers the public read queries.
type DirectoryService struct {
	runtime
}

func NewDirectoryService(d Deps) *DirectoryService {
	return &DirectoryService{runtime: newRuntime(d, "directory")}
}

func (s *DirectoryService) ListCarnivals(ctx context.Context, q CarnivalQuery) ([]model.Carnival, error) {
	filter := repository.CarnivalFilter{
		State:        q.State,
		ExternalOnly: q.ExternalOnly,
		Text:         strings.TrimSpace(q.Text),
	}
	if q.Upcoming {
		now := s.clock.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		filter.UpcomingFrom = &today
	}

	var out []model.Carnival
	err := s.view(ctx, "directory.list_carnivals", func(ctx context.Context, v repository.Repositories) error {
		var err error
		out, err = v.Carnivals().List(ctx, filter)
		return err
	})
	return out, err
}

func (s *DirectoryService) GetCarnival(ctx context.Context, id uint) (*model.Carnival, error) {
	var out *model.Carnival
	err := s.view(ctx, "directory.get_carnival", func(ctx context.Context, v repository.Repositories) error {
		var err error
		out, err = activeCarnival(ctx, v, id, false)
		return err
	})
	return out, err
}

// ListAttendances returns active registrations of active clubs, ordered by
// display order then registration date.
func (s *DirectoryService) ListAttendances(ctx context.Context, carnivalID uint) ([]AttendanceEntry, error) {
	var out []AttendanceEntry
	err := s.view(ctx, "directory.list_attendances", func(ctx context.Context, v repository.Repositories) error {
		if _, err := activeCarnival(ctx, v, carnivalID, false); err != nil {
			return err
		}
		regs, err := v.Attendances().ListActiveByCarnival(ctx, carnivalID)
		if err != nil {
			return err
		}
		out = make([]AttendanceEntry, 0, len(regs))
		for _, r := range regs {
			club, err := activeClub(ctx, v, r.ClubID, false)
			if errors.Is(err, ErrClubNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, AttendanceEntry{Registration: r, ClubName: club.ClubName, ClubState: club.State})
		}
		return nil
	})
	return out, err
}

func (s *DirectoryService) ListClubs(ctx context.Context, q ClubQuery) ([]model.Club, error) {
	var out []model.Club
	err := s.view(ctx, "directory.list_clubs", func(ctx context.Context, v repository.Repositories) error {
		var err error
		out, err = v.Clubs().List(ctx, repository.ClubFilter{State: q.State, Text: strings.TrimSpace(q.Text)})
		return err
	})
	return out, err
}

// GetClubProfile resolves an active club with its delegates, aliases and the
// active carnivals it is registered for. Unlisted clubs, such as proxy clubs
// awaiting a claim, are only visible to whoever may manage them; actorID is 0
// for anonymous callers.
func (s *DirectoryService) GetClubProfile(ctx context.Context, actorID, clubID uint) (*ClubProfile, error) {
	var out *ClubProfile
	err := s.view(ctx, "directory.get_club", func(ctx context.Context, v repository.Repositories) error {
		club, err := activeClub(ctx, v, clubID, false)
		if err != nil {
			return err
		}
		if !club.IsPubliclyListed {
			var actor *model.User
			if actorID != 0 {
				if actor, err = v.Users().GetByID(ctx, actorID); err != nil && !errors.Is(err, repository.ErrNotFound) {
					return err
				}
			}
			if !policy.CanManageClub(actor, club) {
				return ErrClubNotFound
			}
		}
		users, err := v.Users().ListByClub(ctx, club.ID)
		if err != nil {
			return err
		}
		delegates := make([]PublicDelegate, 0, len(users))
		for _, u := range users {
			delegates = append(delegates, PublicDelegate{ID: u.ID, DisplayName: u.DisplayName, IsPrimaryDelegate: u.IsPrimaryDelegate})
		}
		names, err := v.AlternateNames().ListByClub(ctx, club.ID)
		if err != nil {
			return err
		}
		regs, err := v.Attendances().ListActiveByClub(ctx, club.ID)
		if err != nil {
			return err
		}
		carnivals := make([]model.Carnival, 0, len(regs))
		for _, r := range regs {
			c, err := activeCarnival(ctx, v, r.CarnivalID, false)
			if errors.Is(err, ErrCarnivalNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			carnivals = append(carnivals, *c)
		}
		out = &ClubProfile{Club: *club, Delegates: delegates, AlternateNames: names, Carnivals: carnivals}
		return nil
	})
	return out, err
}

func (s *DirectoryService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var out *model.User
	err := s.view(ctx, "directory.get_user", func(ctx context.Context, v repository.Repositories) error {
		u, err := v.Users().GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		out = u
		return err
	})
	return out, err
}
