package service

import (
	"time"

	"reqdesk/internal/model"
)

// EligibilityGate decides whether a user may currently author or own a request.
// "Today" is the calendar day in the configured location.
type EligibilityGate struct {
	loc *time.Location
	now func() time.Time
}

// NewEligibilityGate builds a gate. A nil now defaults to time.Now and a nil loc to UTC.
func NewEligibilityGate(loc *time.Location, now func() time.Time) *EligibilityGate {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &EligibilityGate{loc: loc, now: now}
}

func (g *EligibilityGate) Today() model.Date {
	return model.DateOf(g.now().In(g.loc))
}

// Check fails with ReasonCivilIDExpired when the user is retired or the civil id expired before today.
// A user whose civil id expires today is still eligible.
func (g *EligibilityGate) Check(u *model.User) error {
	details := map[string]any{"userId": u.ID}
	if !u.Active() {
		return invalid(ReasonCivilIDExpired, details, "User %d is no longer active", u.ID)
	}
	today := g.Today()
	if u.CivilIDExpired(today) {
		details["expiryDate"] = u.ExpiryDate.String()
		details["today"] = today.String()
		return invalid(ReasonCivilIDExpired, details, "Civil ID is expired")
	}
	return nil
}
