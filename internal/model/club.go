package model

import "time"

type Club struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	ClubName         string      `gorm:"type:varchar(100);not null" json:"club_name"`
	State            State       `gorm:"type:varchar(3);not null;index" json:"state"`
	Location         string      `gorm:"type:varchar(200)" json:"location"`
	ContactEmail     *string     `gorm:"type:varchar(320)" json:"contact_email,omitempty"`
	ContactPhone     *string     `gorm:"type:varchar(20)" json:"contact_phone,omitempty"`
	ContactPerson    *string     `gorm:"type:varchar(100)" json:"contact_person,omitempty"`
	Description      *string     `gorm:"type:text" json:"description,omitempty"`
	LogoPath         *string     `gorm:"type:varchar(500)" json:"logo_path,omitempty"`
	Social           SocialLinks `gorm:"embedded;embeddedPrefix:social_" json:"social"`
	IsActive         bool        `gorm:"not null;index" json:"is_active"`
	IsPubliclyListed bool        `gorm:"not null" json:"is_publicly_listed"`
	CreatedByUserID  *uint       `json:"created_by_user_id,omitempty"`
	CreatedByProxy   bool        `gorm:"not null" json:"created_by_proxy"`
	InviteEmail      *string     `gorm:"type:varchar(320)" json:"invite_email,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (Club) TableName() string { return "clubs" }

// MarkClaimed ends the proxy-pending state and publishes the club.
func (c *Club) MarkClaimed() {
	c.CreatedByProxy = false
	c.InviteEmail = nil
	c.IsPubliclyListed = true
}

type ClubAlternateName struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ClubID        uint      `gorm:"not null;index" json:"club_id"`
	AlternateName string    `gorm:"type:varchar(100);not null" json:"alternate_name"`
	IsActive      bool      `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ClubAlternateName) TableName() string { return "club_alternate_names" }
