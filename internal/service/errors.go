package service

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure for callers; the HTTP layer maps it to a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalid
	KindGone
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	case KindGone:
		return "gone"
	default:
		return "internal"
	}
}

// FieldError names one input field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for i, f := range e.Fields {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(f.Field + " " + f.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// MessageOf returns the advisory text for err, hiding internal details.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Kind != KindInternal {
		return se.Message
	}
	return "internal error"
}

// FieldsOf returns validation details, if any.
func FieldsOf(err error) []FieldError {
	var se *Error
	if errors.As(err, &se) {
		return se.Fields
	}
	return nil
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func internalError(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

var (
	ErrNotAuthenticated     = newError(KindForbidden, "sign in required")
	ErrActorInactive        = newError(KindForbidden, "account is not active")
	ErrNotPermitted         = newError(KindForbidden, "not permitted")
	ErrInvalidCredentials   = newError(KindForbidden, "invalid email or password")
	ErrEmailTaken           = newError(KindConflict, "email already registered")
	ErrUserNotFound         = newError(KindNotFound, "user not found")
	ErrCarnivalNotFound     = newError(KindNotFound, "carnival not found")
	ErrClubNotFound         = newError(KindNotFound, "club not found")
	ErrRegistrationNotFound = newError(KindNotFound, "registration not found")
	ErrAltNameNotFound      = newError(KindNotFound, "alternate name not found")
	ErrSubscriptionNotFound = newError(KindNotFound, "subscription not found")
	ErrTokenNotFound        = newError(KindNotFound, "invitation not found")

	ErrCarnivalOwned     = newError(KindForbidden, "carnival already has an owner")
	ErrClubRequired      = newError(KindForbidden, "you must belong to an active club")
	ErrAlreadyInClub     = newError(KindForbidden, "you already belong to a club")
	ErrClubHasPrimary    = newError(KindForbidden, "club already has a primary delegate; ask them for an invitation")
	ErrClubProxyPending  = newError(KindForbidden, "club is awaiting its invited delegate")
	ErrRegistrationPaid  = newError(KindForbidden, "registration is marked paid; contact the carnival organiser to withdraw")
	ErrEmailMismatch     = newError(KindForbidden, "invitation was issued to a different email address")
	ErrTokenMismatch     = newError(KindForbidden, "invitation does not apply to this club")
	ErrAlreadyRegistered = newError(KindConflict, "already registered")
	ErrClubNameTaken     = newError(KindConflict, "club name already in use")
	ErrAltNameTaken      = newError(KindConflict, "alternate name already exists for this club")
	ErrAlreadyDelegate   = newError(KindConflict, "user is already a delegate of this club")
	ErrClubClaimed       = newError(KindConflict, "club has already been claimed")
	ErrIngestRunning     = newError(KindConflict, "carnival ingest is already running")
	ErrTokenGone         = newError(KindGone, "invitation has expired or was already used")
	ErrNotPermutation    = newError(KindInvalid, "order must list every active registration exactly once")
	ErrLeaveNotConfirmed = newError(KindInvalid, "leaving a club must be confirmed")
	ErrInvalidTransfer   = newError(KindInvalid, "transfer target must be another active delegate of your club")
	ErrUnknownLeave      = newError(KindInvalid, "leave action must be transfer, deactivate or available")
)
