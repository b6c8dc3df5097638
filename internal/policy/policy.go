// Package policy holds the authorisation predicates every service consults
// before mutating state. Predicates do no I/O and accept nil actors.
package policy

import (
	"strings"
	"time"

	"mastersrl/carnivalhub/internal/model"
)

func isAdmin(u *model.User) bool {
	return u != nil && u.IsActive && u.IsAdmin
}

// CanEditCarnival: the owner or an admin.
func CanEditCarnival(u *model.User, c *model.Carnival) bool {
	if u == nil || c == nil || !u.IsActive {
		return false
	}
	return c.OwnedBy(u.ID) || isAdmin(u)
}

// CanUpdateCarnival adds the ownerless rule: until claimed, only admins edit imported carnivals.
func CanUpdateCarnival(u *model.User, c *model.Carnival) bool {
	if c != nil && c.Ownerless() {
		return isAdmin(u)
	}
	return CanEditCarnival(u, c)
}

// CanArchiveCarnival: owner or admin on owned carnivals, admin only on ownerless ones.
func CanArchiveCarnival(u *model.User, c *model.Carnival) bool {
	return CanUpdateCarnival(u, c)
}

// CanClaimCarnival: any active user with a club may claim an ownerless carnival.
func CanClaimCarnival(u *model.User, c *model.Carnival) bool {
	if u == nil || c == nil || !u.IsActive || !c.IsActive {
		return false
	}
	return u.ClubID != nil && c.Ownerless()
}

// CanManageClub: the club's primary delegate or an admin.
func CanManageClub(u *model.User, c *model.Club) bool {
	if u == nil || c == nil || !u.IsActive {
		return false
	}
	return (u.InClub(c.ID) && u.IsPrimaryDelegate) || isAdmin(u)
}

// CanRegisterClub: any delegate of the club.
func CanRegisterClub(u *model.User, clubID uint) bool {
	return u != nil && u.IsActive && u.InClub(clubID)
}

// CanCreateOnBehalf: any delegate or an admin.
func CanCreateOnBehalf(u *model.User) bool {
	return u != nil && u.IsActive && (u.ClubID != nil || u.IsAdmin)
}

// CanInviteDelegate: the primary delegate of a club.
func CanInviteDelegate(u *model.User) bool {
	return u != nil && u.IsActive && u.ClubID != nil && u.IsPrimaryDelegate
}

// TokenUsable applies the whole-second expiry.
func TokenUsable(t *model.InvitationToken, now time.Time) bool {
	return t != nil && t.Usable(now)
}

// EmailMatches compares addresses case-insensitively, ignoring surrounding space.
func EmailMatches(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// CanClaimProxyClub is the full proxy-claim guard.
func CanClaimProxyClub(u *model.User, c *model.Club, t *model.InvitationToken, now time.Time) bool {
	if u == nil || c == nil || t == nil || !u.IsActive || !c.IsActive {
		return false
	}
	return c.CreatedByProxy &&
		u.ClubID == nil &&
		TokenUsable(t, now) &&
		t.SubjectKind == model.TokenSubjectProxyClub &&
		t.SubjectID == c.ID &&
		EmailMatches(t.InviteEmail, u.Email)
}

// CanCreateCarnival: any delegate or an admin.
func CanCreateCarnival(u *model.User) bool {
	return CanCreateOnBehalf(u)
}
