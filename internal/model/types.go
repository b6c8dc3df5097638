package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"
)

// StringSlice is a helper type for storing []string as JSONB in PostgreSQL.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("StringSlice.Scan: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, s)
}

func (s StringSlice) Contains(v string) bool {
	return slices.Contains(s, v)
}

// State is one of the eight Australian jurisdictions.
type State string

const (
	StateNSW State = "NSW"
	StateQLD State = "QLD"
	StateVIC State = "VIC"
	StateWA  State = "WA"
	StateSA  State = "SA"
	StateTAS State = "TAS"
	StateNT  State = "NT"
	StateACT State = "ACT"
)

var States = []State{StateNSW, StateQLD, StateVIC, StateWA, StateSA, StateTAS, StateNT, StateACT}

func (s State) Valid() bool {
	return slices.Contains(States, s)
}

// ParseState accepts a code ("qld") or a full jurisdiction name ("Queensland").
func ParseState(raw string) (State, bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if s := State(key); s.Valid() {
		return s, true
	}
	s, ok := stateNames[key]
	return s, ok
}

var stateNames = map[string]State{
	"NEW SOUTH WALES":              StateNSW,
	"QUEENSLAND":                   StateQLD,
	"VICTORIA":                     StateVIC,
	"WESTERN AUSTRALIA":            StateWA,
	"SOUTH AUSTRALIA":              StateSA,
	"TASMANIA":                     StateTAS,
	"NORTHERN TERRITORY":           StateNT,
	"AUSTRALIAN CAPITAL TERRITORY": StateACT,
}

// NotificationType names a category an EmailSubscription can opt into.
type NotificationType string

const (
	NotifyCarnivals      NotificationType = "Carnival_Notifications"
	NotifyDelegateAlerts NotificationType = "Delegate_Alerts"
	NotifyWebsiteUpdates NotificationType = "Website_Updates"
	NotifyProgramChanges NotificationType = "Program_Changes"
	NotifySpecialOffers  NotificationType = "Special_Offers"
	NotifyCommunityNews  NotificationType = "Community_News"
)

var NotificationTypes = []NotificationType{
	NotifyCarnivals,
	NotifyDelegateAlerts,
	NotifyWebsiteUpdates,
	NotifyProgramChanges,
	NotifySpecialOffers,
	NotifyCommunityNews,
}

func (t NotificationType) Valid() bool {
	return slices.Contains(NotificationTypes, t)
}

// SocialLinks is embedded into clubs and carnivals with a "social_" column prefix.
type SocialLinks struct {
	Facebook  *string `gorm:"type:varchar(255)" json:"facebook,omitempty"`
	Instagram *string `gorm:"type:varchar(255)" json:"instagram,omitempty"`
	Twitter   *string `gorm:"type:varchar(255)" json:"twitter,omitempty"`
	Website   *string `gorm:"type:varchar(255)" json:"website,omitempty"`
}

// DrawFile is a relative path recorded by the upload collaborator.
type DrawFile struct {
	Path         string    `json:"path"`
	OriginalName string    `json:"original_name"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type DrawFiles []DrawFile

func (d DrawFiles) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *DrawFiles) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("DrawFiles.Scan: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, d)
}
