package session

// ParseRole validates a role string against the closed role set.
func ParseRole(role string) (UserRole, bool) {
	switch UserRole(role) {
	case RoleViewer, RoleAgent, RoleManager, RoleAdmin:
		return UserRole(role), true
	default:
		return "", false
	}
}

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	_, ok := ParseRole(string(r))
	return ok
}

var roleHierarchy = map[UserRole]int{
	RoleViewer:  0,
	RoleAgent:   1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// RoleIsAtLeast checks if a role meets the minimum required level
func RoleIsAtLeast(r, minRole UserRole) bool {
	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}
	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}
	return currentLevel >= minLevel
}

// IsAtLeast checks if the user's role is at least the minimum required role.
// A nil user never qualifies.
func (u *User) IsAtLeast(minRole UserRole) bool {
	if u == nil {
		return false
	}
	return RoleIsAtLeast(u.Role, minRole)
}
