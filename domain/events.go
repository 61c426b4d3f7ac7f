package domain

// RoleChangeEvent describes a membership role transition delivered by the
// directory's event feed. AddedRoles and RemovedRoles carry the delta;
// CurrentRoles carries the member's full role set after the change, which
// revocation decisions need when a server defines several trigger roles.
//
// Delivery is at-least-once and unordered, so consumers must be idempotent.
type RoleChangeEvent struct {
	ServerID     string   `json:"server_id"`
	UserID       string   `json:"user_id"`
	AddedRoles   []string `json:"added_roles"`
	RemovedRoles []string `json:"removed_roles"`
	CurrentRoles []string `json:"current_roles"`
}

// HasCurrentRole reports whether the member still holds roleID after the
// change described by the event.
func (e *RoleChangeEvent) HasCurrentRole(roleID string) bool {
	for _, r := range e.CurrentRoles {
		if r == roleID {
			return true
		}
	}
	return false
}
