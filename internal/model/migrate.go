package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models and creates custom indexes.
// Uniqueness only applies to active rows so soft-deleted rows never report conflicts.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Club{},
		&ClubAlternateName{},
		&Carnival{},
		&CarnivalClub{},
		&EmailSubscription{},
		&InvitationToken{},
	); err != nil {
		return err
	}

	for _, stmt := range indexStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

var indexStatements = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower " +
		"ON users ((lower(email)))",
	// At most one primary delegate per club.
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_primary_delegate " +
		"ON users (club_id) WHERE is_primary_delegate AND is_active",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_clubs_name_lower_active " +
		"ON clubs ((lower(club_name))) WHERE is_active",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_club_alt_names_active " +
		"ON club_alternate_names (club_id, (lower(alternate_name))) WHERE is_active",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_carnivals_external_event_active " +
		"ON carnivals (external_event_id) WHERE is_active AND external_event_id IS NOT NULL",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_carnival_clubs_pair_active " +
		"ON carnival_clubs (carnival_id, club_id) WHERE is_active",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_email_subscriptions_email_lower " +
		"ON email_subscriptions ((lower(email)))",
	"ALTER TABLE carnivals DROP CONSTRAINT IF EXISTS chk_carnivals_manual_entry",
	"ALTER TABLE carnivals ADD CONSTRAINT chk_carnivals_manual_entry " +
		"CHECK (is_manually_entered = (external_event_id IS NULL))",
	"ALTER TABLE carnival_clubs DROP CONSTRAINT IF EXISTS chk_carnival_clubs_payment",
	"ALTER TABLE carnival_clubs ADD CONSTRAINT chk_carnival_clubs_payment " +
		"CHECK (is_paid = (payment_date IS NOT NULL))",
}
