package model

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID   int64
	Role Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
