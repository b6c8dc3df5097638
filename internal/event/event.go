// Package event defines the domain events services emit after commit and the
// bus that carries them to the notification dispatcher.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mastersrl/carnivalhub/internal/model"
)

type Kind string

const (
	CarnivalCreated  Kind = "carnival.created"
	CarnivalUpdated  Kind = "carnival.updated"
	CarnivalImported Kind = "carnival.imported"
	CarnivalArchived Kind = "carnival.archived"
	CarnivalClaimed  Kind = "carnival.claimed"

	AttendanceAdded   Kind = "attendance.added"
	AttendanceUpdated Kind = "attendance.updated"
	AttendanceRemoved Kind = "attendance.removed"
	AttendanceReorder Kind = "attendance.reordered"

	ClubCreated              Kind = "club.created"
	ClubUpdated              Kind = "club.updated"
	ClubDeactivated          Kind = "club.deactivated"
	ProxyInvitationIssued    Kind = "club.proxy_invitation_issued"
	ProxyClubClaimed         Kind = "club.proxy_claimed"
	DelegateInvitationIssued Kind = "delegate.invitation_issued"
	DelegateJoined           Kind = "delegate.joined"
	DelegateLeft             Kind = "delegate.left"
	PrimaryDelegateChanged   Kind = "delegate.primary_changed"
)

// Event is a flat envelope; only the fields relevant to Kind are set.
type Event struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    *uint     `json:"actor_id,omitempty"`

	CarnivalID     uint        `json:"carnival_id,omitempty"`
	CarnivalTitle  string      `json:"carnival_title,omitempty"`
	CarnivalDate   *time.Time  `json:"carnival_date,omitempty"`
	State          model.State `json:"state,omitempty"`
	ClubID         uint        `json:"club_id,omitempty"`
	ClubName       string      `json:"club_name,omitempty"`
	RegistrationID uint        `json:"registration_id,omitempty"`
	UserID         uint        `json:"user_id,omitempty"`
	UserEmail      string      `json:"user_email,omitempty"`
	InviteEmail    string      `json:"invite_email,omitempty"`
	InviterName    string      `json:"inviter_name,omitempty"`
	Token          string      `json:"token,omitempty"`
	TokenExpiresAt *time.Time  `json:"token_expires_at,omitempty"`
	CustomMessage  string      `json:"custom_message,omitempty"`
}

// New stamps an id and time onto an event of the given kind.
func New(kind Kind, at time.Time) Event {
	return Event{ID: uuid.NewString(), Kind: kind, OccurredAt: at}
}

// ForCarnival fills the carnival fields subscribers filter on.
func (e Event) ForCarnival(c *model.Carnival) Event {
	e.CarnivalID = c.ID
	e.CarnivalTitle = c.Title
	d := c.Date
	e.CarnivalDate = &d
	e.State = c.State
	return e
}

func (e Event) ForClub(c *model.Club) Event {
	e.ClubID = c.ID
	e.ClubName = c.ClubName
	if e.State == "" {
		e.State = c.State
	}
	return e
}

// WithUser names the user the event is about, e.g. the new owner or delegate.
func (e Event) WithUser(u *model.User) Event {
	e.UserID = u.ID
	e.UserEmail = u.Email
	return e
}

func (e Event) By(actor *model.User) Event {
	if actor != nil {
		id := actor.ID
		e.ActorID = &id
	}
	return e
}

// Publisher hands committed events to the bus.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Handler consumes one event. Errors are logged by the consumer loop.
type Handler func(ctx context.Context, e Event) error
