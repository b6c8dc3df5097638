package model

import (
	"time"
)

type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Email             string     `gorm:"type:varchar(320);not null" json:"email"`
	DisplayName       string     `gorm:"type:varchar(100);not null" json:"display_name"`
	Phone             *string    `gorm:"type:varchar(20)" json:"phone,omitempty"`
	ClubID            *uint      `gorm:"index" json:"club_id,omitempty"`
	IsPrimaryDelegate bool       `gorm:"not null" json:"is_primary_delegate"`
	IsAdmin           bool       `gorm:"not null" json:"is_admin"`
	IsActive          bool       `gorm:"not null;index" json:"is_active"`
	PasswordHash      string     `gorm:"type:varchar(255)" json:"-"`
	JoinedClubAt      *time.Time `json:"joined_club_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// InClub reports whether u is currently attached to clubID.
func (u *User) InClub(clubID uint) bool {
	return u.ClubID != nil && *u.ClubID == clubID
}

// Detach clears club membership and the primary flag together.
func (u *User) Detach() {
	u.ClubID = nil
	u.IsPrimaryDelegate = false
	u.JoinedClubAt = nil
}
