package repository

import (
	"context"
	"time"

	"mastersrl/carnivalhub/internal/model"
)

// Store is the transactional entry point to every repository.
type Store interface {
	// Transaction runs fn inside one transaction. It commits when fn returns nil and
	// rolls back on error, panic or a cancelled context.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
	// View runs fn against a read view. fn must not write.
	View(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
}

// Repositories groups the per-entity repositories bound to one transaction or view.
type Repositories interface {
	Users() UserRepository
	Clubs() ClubRepository
	AlternateNames() AlternateNameRepository
	Carnivals() CarnivalRepository
	Attendances() AttendanceRepository
	Subscriptions() SubscriptionRepository
	Tokens() InvitationTokenRepository
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	// ListByClub returns active users attached to clubID, earliest joined first.
	ListByClub(ctx context.Context, clubID uint) ([]model.User, error)
}

type ClubFilter struct {
	State           *model.State
	Text            string
	IncludeUnlisted bool
}

type ClubRepository interface {
	Create(ctx context.Context, club *model.Club) error
	GetByID(ctx context.Context, id uint) (*model.Club, error)
	// GetForUpdate locks the club row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uint) (*model.Club, error)
	GetActiveByName(ctx context.Context, name string) (*model.Club, error)
	Update(ctx context.Context, club *model.Club) error
	List(ctx context.Context, filter ClubFilter) ([]model.Club, error)
}

type AlternateNameRepository interface {
	Create(ctx context.Context, name *model.ClubAlternateName) error
	GetByID(ctx context.Context, id uint) (*model.ClubAlternateName, error)
	ListByClub(ctx context.Context, clubID uint) ([]model.ClubAlternateName, error)
	Update(ctx context.Context, name *model.ClubAlternateName) error
}

type CarnivalFilter struct {
	State        *model.State
	UpcomingFrom *time.Time
	ExternalOnly bool
	Text         string
}

type CarnivalRepository interface {
	Create(ctx context.Context, carnival *model.Carnival) error
	GetByID(ctx context.Context, id uint) (*model.Carnival, error)
	// GetForUpdate locks the carnival row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uint) (*model.Carnival, error)
	GetActiveByExternalID(ctx context.Context, externalID string) (*model.Carnival, error)
	Update(ctx context.Context, carnival *model.Carnival) error
	// AssignOwner sets the owner of an active ownerless carnival, or returns ErrStale.
	AssignOwner(ctx context.Context, id, userID uint) error
	List(ctx context.Context, filter CarnivalFilter) ([]model.Carnival, error)
}

type AttendanceRepository interface {
	Create(ctx context.Context, reg *model.CarnivalClub) error
	GetByID(ctx context.Context, id uint) (*model.CarnivalClub, error)
	GetActive(ctx context.Context, carnivalID, clubID uint) (*model.CarnivalClub, error)
	// ListActiveByCarnival orders by (display_order, registration_date, id).
	ListActiveByCarnival(ctx context.Context, carnivalID uint) ([]model.CarnivalClub, error)
	ListActiveByClub(ctx context.Context, clubID uint) ([]model.CarnivalClub, error)
	MaxDisplayOrder(ctx context.Context, carnivalID uint) (int, error)
	Update(ctx context.Context, reg *model.CarnivalClub) error
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.EmailSubscription) error
	GetByEmail(ctx context.Context, email string) (*model.EmailSubscription, error)
	GetByUnsubscribeToken(ctx context.Context, token string) (*model.EmailSubscription, error)
	Update(ctx context.Context, sub *model.EmailSubscription) error
	ListActiveFor(ctx context.Context, state model.State, kind model.NotificationType) ([]model.EmailSubscription, error)
}

type InvitationTokenRepository interface {
	Create(ctx context.Context, token *model.InvitationToken) error
	GetByValue(ctx context.Context, value string) (*model.InvitationToken, error)
	// Consume marks a usable token consumed at now, or returns ErrStale.
	Consume(ctx context.Context, value string, now time.Time) error
	// PurgeSpent hard-deletes consumed and expired tokens.
	PurgeSpent(ctx context.Context, now time.Time) (int64, error)
}
