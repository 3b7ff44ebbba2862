package model

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserUpdate lists every field an admin may change on a user record.
type UserUpdate struct {
	Username Optional[string] `json:"username"`
	Email    Optional[string] `json:"email"`
	Role     Optional[Role]   `json:"role"`
}

func (u UserUpdate) Empty() bool {
	return !u.Username.Set && !u.Email.Set && !u.Role.Set
}

// ProfileUpdate is the self-service subset of UserUpdate. It has no role field.
type ProfileUpdate struct {
	Username Optional[string] `json:"username"`
	Email    Optional[string] `json:"email"`
}

func (p ProfileUpdate) UserUpdate() UserUpdate {
	return UserUpdate{Username: p.Username, Email: p.Email}
}

type UserFilter struct {
	Role   Role
	Search string
	Limit  int
	Offset int
}
