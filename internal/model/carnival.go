package model

import "time"

type Carnival struct {
	ID                    uint        `gorm:"primaryKey" json:"id"`
	Title                 string      `gorm:"type:varchar(200);not null" json:"title"`
	Date                  time.Time   `gorm:"not null;index" json:"date"`
	State                 State       `gorm:"type:varchar(3);not null;index" json:"state"`
	LocationAddress       string      `gorm:"type:varchar(500)" json:"location_address"`
	OrganiserContactName  string      `gorm:"type:varchar(100)" json:"organiser_contact_name"`
	OrganiserContactEmail string      `gorm:"type:varchar(320)" json:"organiser_contact_email"`
	OrganiserContactPhone string      `gorm:"type:varchar(20)" json:"organiser_contact_phone"`
	ScheduleDetails       string      `gorm:"type:text" json:"schedule_details"`
	RegistrationLink      *string     `gorm:"type:varchar(500)" json:"registration_link,omitempty"`
	FeesDescription       *string     `gorm:"type:text" json:"fees_description,omitempty"`
	Social                SocialLinks `gorm:"embedded;embeddedPrefix:social_" json:"social"`
	LogoPath              *string     `gorm:"type:varchar(500)" json:"logo_path,omitempty"`
	PromotionalImages     StringSlice `gorm:"type:jsonb" json:"promotional_images,omitempty"`
	DrawFiles             DrawFiles   `gorm:"type:jsonb" json:"draw_files,omitempty"`
	CreatedByUserID       *uint       `gorm:"index" json:"created_by_user_id,omitempty"`
	ExternalEventID       *string     `gorm:"type:varchar(100)" json:"external_event_id,omitempty"`
	IsManuallyEntered     bool        `gorm:"not null" json:"is_manually_entered"`
	IsActive              bool        `gorm:"not null;index" json:"is_active"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

func (Carnival) TableName() string { return "carnivals" }

// Ownerless carnivals are imported and not yet claimed.
func (c *Carnival) Ownerless() bool { return c.CreatedByUserID == nil }

func (c *Carnival) OwnedBy(userID uint) bool {
	return c.CreatedByUserID != nil && *c.CreatedByUserID == userID
}

// ExternalEvent is a provider-neutral event record consumed by the carnival ingest.
type ExternalEvent struct {
	ExternalID            string    `yaml:"external_id" json:"external_id"`
	Title                 string    `yaml:"title" json:"title"`
	Date                  time.Time `yaml:"date" json:"date"`
	State                 State     `yaml:"state" json:"state"`
	LocationAddress       string    `yaml:"location" json:"location"`
	ScheduleDetails       string    `yaml:"schedule" json:"schedule"`
	OrganiserContactName  string    `yaml:"organiser_name" json:"organiser_name"`
	OrganiserContactEmail string    `yaml:"organiser_email" json:"organiser_email"`
	OrganiserContactPhone string    `yaml:"organiser_phone" json:"organiser_phone"`
	RegistrationLink      string    `yaml:"registration_link" json:"registration_link"`
}
