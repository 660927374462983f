package service

import "github.com/crewsight/crewsight/internal/domain"

// Scope is the capability view of an identity. Call sites ask for the
// capability they need instead of comparing role strings ad hoc.
type Scope struct {
	identity Identity
}

func NewScope(identity Identity) Scope { return Scope{identity: identity} }

// CanSeeAllTeamData reports whether the caller may read team-wide data.
// Listings that only narrow visibility use this and query a smaller scope.
func (s Scope) CanSeeAllTeamData() bool {
	return s.identity.User != nil && s.identity.User.IsAdmin()
}

// RequireAdmin is the hard gate for admin-only operations. It returns
// domain.ErrForbidden rather than a bare bool so callers cannot forget to
// deny.
func (s Scope) RequireAdmin() error {
	if !s.CanSeeAllTeamData() {
		return domain.ErrForbidden
	}
	return nil
}
