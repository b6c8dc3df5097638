package model

import "time"

// CarnivalClub records that a club intends to attend a carnival.
type CarnivalClub struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	CarnivalID          uint       `gorm:"not null;index" json:"carnival_id"`
	ClubID              uint       `gorm:"not null;index" json:"club_id"`
	PlayerCount         *int       `json:"player_count,omitempty"`
	TeamName            *string    `gorm:"type:varchar(100)" json:"team_name,omitempty"`
	ContactPerson       *string    `gorm:"type:varchar(100)" json:"contact_person,omitempty"`
	ContactEmail        *string    `gorm:"type:varchar(320)" json:"contact_email,omitempty"`
	ContactPhone        *string    `gorm:"type:varchar(20)" json:"contact_phone,omitempty"`
	SpecialRequirements *string    `gorm:"type:varchar(500)" json:"special_requirements,omitempty"`
	RegistrationNotes   *string    `gorm:"type:varchar(1000)" json:"registration_notes,omitempty"`
	PaymentAmount       *float64   `gorm:"type:numeric(10,2)" json:"payment_amount,omitempty"`
	IsPaid              bool       `gorm:"not null" json:"is_paid"`
	PaymentDate         *time.Time `json:"payment_date,omitempty"`
	DisplayOrder        int        `gorm:"not null" json:"display_order"`
	RegistrationDate    time.Time  `gorm:"not null" json:"registration_date"`
	IsActive            bool       `gorm:"not null;index" json:"is_active"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (CarnivalClub) TableName() string { return "carnival_clubs" }

// SetPaid keeps IsPaid and PaymentDate in step.
func (r *CarnivalClub) SetPaid(paid bool, now time.Time) {
	if paid && r.IsPaid && r.PaymentDate != nil {
		return
	}
	r.IsPaid = paid
	if paid {
		r.PaymentDate = &now
	} else {
		r.PaymentDate = nil
	}
}
