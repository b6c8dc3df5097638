package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"mastersrl/carnivalhub/internal/event"
	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/policy"
	"mastersrl/carnivalhub/internal/repository"
)

// CarnivalInput is the editable surface of a manually entered carnival.
type CarnivalInput struct {
	Title                 string            `json:"title" validate:"required,min=3,max=200"`
	Date                  time.Time         `json:"date" validate:"required"`
	State                 model.State       `json:"state" validate:"required,state"`
	LocationAddress       string            `json:"location_address" validate:"required,max=500"`
	OrganiserContactName  string            `json:"organiser_contact_name" validate:"max=100"`
	OrganiserContactEmail string            `json:"organiser_contact_email" validate:"omitempty,email,max=320"`
	OrganiserContactPhone string            `json:"organiser_contact_phone" validate:"max=20"`
	ScheduleDetails       string            `json:"schedule_details" validate:"max=5000"`
	RegistrationLink      *string           `json:"registration_link" validate:"omitempty,url,max=500"`
	FeesDescription       *string           `json:"fees_description" validate:"omitempty,max=2000"`
	Social                model.SocialLinks `json:"social"`
	LogoPath              *string           `json:"logo_path" validate:"omitempty,max=500"`
	PromotionalImages     []string          `json:"promotional_images" validate:"max=20,dive,max=500"`
	DrawFiles             []model.DrawFile  `json:"draw_files" validate:"max=20"`
}

func (in *CarnivalInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.LocationAddress = strings.TrimSpace(in.LocationAddress)
	in.OrganiserContactName = strings.TrimSpace(in.OrganiserContactName)
	in.OrganiserContactEmail = normalizeEmail(in.OrganiserContactEmail)
	in.OrganiserContactPhone = strings.TrimSpace(in.OrganiserContactPhone)
	in.ScheduleDetails = strings.TrimSpace(in.ScheduleDetails)
	in.RegistrationLink = nonEmpty(trimPtr(in.RegistrationLink))
	in.FeesDescription = nonEmpty(trimPtr(in.FeesDescription))
	in.LogoPath = nonEmpty(trimPtr(in.LogoPath))
}

func (in *CarnivalInput) applyTo(c *model.Carnival) {
	c.Title = in.Title
	c.Date = in.Date
	c.State = in.State
	c.LocationAddress = in.LocationAddress
	c.OrganiserContactName = in.OrganiserContactName
	c.OrganiserContactEmail = in.OrganiserContactEmail
	c.OrganiserContactPhone = in.OrganiserContactPhone
	c.ScheduleDetails = in.ScheduleDetails
	c.RegistrationLink = in.RegistrationLink
	c.FeesDescription = in.FeesDescription
	c.Social = in.Social
	c.LogoPath = in.LogoPath
	c.PromotionalImages = model.StringSlice(slices.Clone(in.PromotionalImages))
	c.DrawFiles = model.DrawFiles(slices.Clone(in.DrawFiles))
}

type CarnivalService struct {
	runtime
}

func NewCarnivalService(d Deps) *CarnivalService {
	return &CarnivalService{runtime: newRuntime(d, "carnival")}
}

// Create records a manually entered carnival owned by the actor.
func (s *CarnivalService) Create(ctx context.Context, actorID uint, in CarnivalInput) (*model.Carnival, error) {
	in.normalize()
	if err := check(&in); err != nil {
		return nil, err
	}

	var created *model.Carnival
	err := s.execute(ctx, "carnival.create", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if !policy.CanCreateCarnival(actor) {
			return ErrClubRequired
		}

		c := &model.Carnival{
			CreatedByUserID:   &actor.ID,
			IsManuallyEntered: true,
			IsActive:          true,
		}
		in.applyTo(c)
		if err := tx.Carnivals().Create(ctx, c); err != nil {
			return err
		}
		created = c
		emit(event.New(event.CarnivalCreated, s.clock.Now()).ForCarnival(c).By(actor))
		return nil
	})
	return created, err
}

// Update replaces the editable fields. Imported carnivals keep their external id.
func (s *CarnivalService) Update(ctx context.Context, actorID, carnivalID uint, in CarnivalInput) (*model.Carnival, error) {
	in.normalize()
	if err := check(&in); err != nil {
		return nil, err
	}

	var updated *model.Carnival
	err := s.execute(ctx, "carnival.update", actorID, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		c, err := activeCarnival(ctx, tx, carnivalID, true)
		if err != nil {
			return err
		}
		if !policy.CanUpdateCarnival(actor, c) {
			return ErrNotPermitted
		}

		in.applyTo(c)
		if err := tx.Carnivals().Update(ctx, c); err != nil {
			return err
		}
		updated = c
		emit(event.New(event.CarnivalUpdated, s.clock.Now()).ForCarnival(c).By(actor))
		return nil
	})
	return updated, err
}
