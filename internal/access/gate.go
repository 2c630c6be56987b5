// Package access holds the permission gate shared by every handler and by
// the filter and view packages.
package access

import "slices"

// Principal is the authenticated caller as seen by authorization checks.
type Principal struct {
	UserID   uint
	Username string
	Role     string
	Permisos []string
	Projects []uint
}

// HasPermission reports whether p carries permission. It fails closed: a nil
// principal or a nil permission list never grants anything.
func HasPermission(p *Principal, permission string) bool {
	if p == nil || p.Permisos == nil {
		return false
	}
	return slices.Contains(p.Permisos, permission)
}

// HasAny is HasPermission over several alternatives.
func HasAny(p *Principal, permissions ...string) bool {
	for _, perm := range permissions {
		if HasPermission(p, perm) {
			return true
		}
	}
	return false
}

// AssignedTo reports whether projectID is in the caller's assigned-project list.
func (p *Principal) AssignedTo(projectID uint) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Projects, projectID)
}

// CanSeeProject combines the "view all" permission with the assignment list.
func CanSeeProject(p *Principal, viewAll string, projectID uint) bool {
	return HasPermission(p, viewAll) || p.AssignedTo(projectID)
}
