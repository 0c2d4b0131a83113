package auth

import "sort"

// UserRole is the user's role
type UserRole = string

const (
	// RoleGuest can only view shared resources
	RoleGuest UserRole = "guest"
	// RoleMember is a regular portal user (view, edit own material)
	RoleMember UserRole = "member"
	// RoleCoord coordinates a section (view, edit, create)
	RoleCoord UserRole = "coord"
	// RoleAdmin administers the portal (view, edit, create, delete, manage users)
	RoleAdmin UserRole = "admin"
)

// Capability is a named permission a role may or may not grant, scoped to a
// portal resource, e.g. "library:edit".
type Capability = string

// Capability verbs shared by every portal resource.
const (
	CapRead   = "read"
	CapEdit   = "edit"
	CapCreate = "create"
	CapDelete = "delete"
)

// PermissionSet is the effective capability set derived from a role. It is
// computed from static configuration, never stored.
type PermissionSet map[Capability]struct{}

// Has reports whether the set grants the capability. Unknown capabilities
// are denied.
func (p PermissionSet) Has(capability Capability) bool {
	_, ok := p[capability]
	return ok
}

// List returns the granted capabilities in stable order.
func (p PermissionSet) List() []Capability {
	out := make([]Capability, 0, len(p))
	for c := range p {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// rolePermissions is the static role to capability mapping. It is built once
// at package init and treated as immutable; authorization never performs I/O.
var rolePermissions map[UserRole]PermissionSet

func init() {
	rolePermissions = map[UserRole]PermissionSet{
		RoleGuest:  permissionSet(CapRead),
		RoleMember: permissionSet(CapRead, CapEdit),
		RoleCoord:  permissionSet(CapRead, CapEdit, CapCreate),
		RoleAdmin:  permissionSet(CapRead, CapEdit, CapCreate, CapDelete),
	}
}

func permissionSet(caps ...Capability) PermissionSet {
	set := make(PermissionSet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// EffectivePermissions returns a copy of the capability set the role grants.
// Unknown roles get an empty set.
func EffectivePermissions(role UserRole) PermissionSet {
	src, ok := rolePermissions[role]
	if !ok {
		return PermissionSet{}
	}

	out := make(PermissionSet, len(src))
	for c := range src {
		out[c] = struct{}{}
	}
	return out
}

// Authorize answers "may this role perform this capability". It denies by
// default: unknown roles and unknown capabilities return false, never error.
func Authorize(role UserRole, capability Capability) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return set.Has(capability)
}

// RoleValidator defines the interface for role-based access control validation
type RoleValidator interface {
	CanRead(resource string) bool
	CanEdit(resource string) bool
	CanCreate(resource string) bool
	CanDelete(resource string) bool
	HasRole(role string) bool
	IsAtLeast(minRole UserRole) bool
}

// IsValid checks if the role is one of the predefined valid roles
func roleIsValid(r UserRole) bool {
	_, ok := rolePermissions[r]
	return ok
}

// CanRead checks if this role can read resources
func roleCanRead(r UserRole) bool { return Authorize(r, CapRead) }

// CanEdit checks if this role can edit resources
func roleCanEdit(r UserRole) bool { return Authorize(r, CapEdit) }

// CanCreate checks if this role can create resources
func roleCanCreate(r UserRole) bool { return Authorize(r, CapCreate) }

// CanDelete checks if this role can delete resources
func roleCanDelete(r UserRole) bool { return Authorize(r, CapDelete) }

var roleHierarchy = map[UserRole]int{
	RoleGuest:  0,
	RoleMember: 1,
	RoleCoord:  2,
	RoleAdmin:  3,
}

// RoleIsAtLeast checks if the role meets the minimum required level. Roles
// outside the hierarchy never satisfy any minimum.
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

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleGuest,
		RoleMember,
		RoleCoord,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, roleIsValid(role)
}
