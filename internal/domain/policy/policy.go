// Package policy holds the authorization decisions for tasks and user records.
// Every function is pure: it looks only at the principal and the target.
package policy

import (
	"taskhub/internal/domain/model"
)

type Operation string

const (
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Decision is the outcome of a policy check. Denials keep their reason so it
// can be logged, even though callers report every denial as "not found".
type Decision int

const (
	Allow Decision = iota
	DenyNotOwner
	DenyNotAdmin
	DenySelfDelete
)

func (d Decision) Allowed() bool {
	return d == Allow
}

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyNotOwner:
		return "not_owner"
	case DenyNotAdmin:
		return "not_admin"
	case DenySelfDelete:
		return "self_delete"
	default:
		return "unknown"
	}
}

// CanAccessTask applies the same rule to every operation: admins or the owner.
func CanAccessTask(p model.Principal, task *model.Task, _ Operation) Decision {
	if p.IsAdmin() {
		return Allow
	}
	if task != nil && task.OwnerID == p.ID {
		return Allow
	}
	return DenyNotOwner
}

// CanAccessUser lets admins act on any record. Everyone else may only read or
// update their own record, and never delete it.
func CanAccessUser(p model.Principal, targetUserID int64, op Operation) Decision {
	if p.IsAdmin() {
		return Allow
	}
	if targetUserID == p.ID && (op == OpRead || op == OpUpdate) {
		return Allow
	}
	return DenyNotAdmin
}

func CanSelfDelete(p model.Principal, targetUserID int64) Decision {
	if targetUserID == p.ID {
		return DenySelfDelete
	}
	return Allow
}

func CanAssignRole(p model.Principal) Decision {
	if p.IsAdmin() {
		return Allow
	}
	return DenyNotAdmin
}

// TaskListScope returns the owner filter for task listings: nil for admins,
// the principal's own id for everyone else.
func TaskListScope(p model.Principal) *int64 {
	if p.IsAdmin() {
		return nil
	}
	id := p.ID
	return &id
}
