package model

// UserState tags whether a User row is live or soft deleted.
// A retired user keeps its id and civil id so it can be reactivated later.
type UserState string

const (
	UserActive  UserState = "active"
	UserRetired UserState = "retired"
)

// User is a person who can own requests. Users are never hard deleted.
type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	CivilID    string    `json:"civilId"`
	ExpiryDate Date      `json:"expiryDate"`
	State      UserState `json:"state"`
}

// Active reports whether the user has not been soft deleted.
func (u *User) Active() bool { return u.State != UserRetired }

// CivilIDExpired is true when today is strictly after the expiry date.
// A civil id is still valid on its expiry day.
func (u *User) CivilIDExpired(today Date) bool {
	return today.After(u.ExpiryDate)
}

// Retire soft deletes the user.
func (u *User) Retire() { u.State = UserRetired }

// Reactivate brings a retired user back with fresh attributes, keeping id and civil id.
func (u *User) Reactivate(name string, expiry Date) {
	u.Name = name
	u.ExpiryDate = expiry
	u.State = UserActive
}
