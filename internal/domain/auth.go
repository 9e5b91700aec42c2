package domain

import "errors"

// ErrRoleNotHeld is returned when a session asks for a role the user lacks.
var ErrRoleNotHeld = errors.New("role not held by user")

// Actor is the authenticated principal for one request. Roles is the user's
// persistent role set; ActiveRole is the role selected for this session.
type Actor struct {
	ID         string
	Name       string
	Email      string
	Roles      []Role
	ActiveRole Role
}

// NewActor builds the request actor for user acting as active.
func NewActor(user *User, active Role) (*Actor, error) {
	if user == nil || !user.HasRole(active) {
		return nil, ErrRoleNotHeld
	}
	roles := make([]Role, len(user.Roles))
	copy(roles, user.Roles)
	return &Actor{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Roles:      roles,
		ActiveRole: active,
	}, nil
}

// Is reports whether the actor's session role is role.
func (a *Actor) Is(role Role) bool {
	return a != nil && a.ActiveRole == role
}
