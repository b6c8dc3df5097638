package model

import "time"

type TokenSubject string

const (
	TokenSubjectDelegate  TokenSubject = "delegate"
	TokenSubjectProxyClub TokenSubject = "proxy-club-claim"
)

// InvitationToken is a single-use claim capability. SubjectID is a club id for both kinds.
type InvitationToken struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	Value           string       `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`
	SubjectKind     TokenSubject `gorm:"type:varchar(32);not null" json:"subject_kind"`
	SubjectID       uint         `gorm:"not null;index" json:"subject_id"`
	InviteEmail     string       `gorm:"type:varchar(320);not null" json:"invite_email"`
	InvitedByUserID uint         `gorm:"not null" json:"invited_by_user_id"`
	ExpiresAt       time.Time    `gorm:"not null;index" json:"expires_at"`
	ConsumedAt      *time.Time   `json:"consumed_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

func (InvitationToken) TableName() string { return "invitation_tokens" }

// Usable applies the expiry at whole-second resolution: at the ExpiresAt second the
// token is already spent.
func (t *InvitationToken) Usable(now time.Time) bool {
	return t.ConsumedAt == nil && now.Truncate(time.Second).Before(t.ExpiresAt)
}
