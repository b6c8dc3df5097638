package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

type pgStore struct {
	db *gorm.DB
}

func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, newPGRepositories(tx))
	})
}

func (s *pgStore) View(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return fn(ctx, newPGRepositories(s.db))
}

type pgRepositories struct {
	db *gorm.DB
}

func newPGRepositories(db *gorm.DB) Repositories {
	return &pgRepositories{db: db}
}

func (r *pgRepositories) Users() UserRepository { return &pgUserRepository{db: r.db} }
func (r *pgRepositories) Clubs() ClubRepository { return &pgClubRepository{db: r.db} }
func (r *pgRepositories) AlternateNames() AlternateNameRepository { return &pgAlternateNameRepository{db: r.db} }
func (r *pgRepositories) Carnivals() CarnivalRepository { return &pgCarnivalRepository{db: r.db} }
func (r *pgRepositories) Attendances() AttendanceRepository { return &pgAttendanceRepository{db: r.db} }
func (r *pgRepositories) Subscriptions() SubscriptionRepository { return &pgSubscriptionRepository{db: r.db} }
func (r *pgRepositories) Tokens() InvitationTokenRepository { return &pgInvitationTokenRepository{db: r.db} }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching text anywhere.
func containsPattern(text string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(text)) + "%"
}
