package model

import "time"

type EmailSubscription struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	Email             string      `gorm:"type:varchar(320);not null" json:"email"`
	States            StringSlice `gorm:"type:jsonb;not null" json:"states"`
	NotificationTypes StringSlice `gorm:"type:jsonb;not null" json:"notification_types"`
	UnsubscribeToken  string      `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	IsActive          bool        `gorm:"not null;index" json:"is_active"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

func (EmailSubscription) TableName() string { return "email_subscriptions" }

// Wants reports whether the subscription covers a notification for state.
func (s *EmailSubscription) Wants(state State, kind NotificationType) bool {
	return s.IsActive && s.States.Contains(string(state)) && s.NotificationTypes.Contains(string(kind))
}
