package model

import "fmt"

type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleRootAdmin Role = "rootadmin"
)

type Permission string

const (
	PermModerateForum   Permission = "forum:moderate"
	PermManageListings  Permission = "listings:manage"
	PermManageAgents    Permission = "agents:manage"
	PermModerateReviews Permission = "reviews:moderate"
	PermViewSessions    Permission = "sessions:view"
	PermForceLogout     Permission = "sessions:force_logout"
	PermManageAdmins    Permission = "admins:manage"
	PermViewAudit       Permission = "audit:view"
	PermPublishUpdates  Permission = "updates:publish"
	PermManageHelp      Permission = "help:manage"
	PermViewAnalytics   Permission = "analytics:view"
	PermManageReports   Permission = "reports:manage"
)

var adminPermissions = []Permission{
	PermModerateForum,
	PermManageListings,
	PermManageAgents,
	PermModerateReviews,
	PermViewSessions,
	PermForceLogout,
	PermViewAudit,
	PermPublishUpdates,
	PermManageHelp,
	PermViewAnalytics,
	PermManageReports,
}

var rolePermissions = map[Role]map[Permission]bool{
	RoleUser:      {},
	RoleAdmin:     permissionSet(adminPermissions...),
	RoleRootAdmin: permissionSet(append(adminPermissions, PermManageAdmins)...),
}

var roleRank = map[Role]int{
	RoleUser:      1,
	RoleAdmin:     2,
	RoleRootAdmin: 3,
}

func permissionSet(perms ...Permission) map[Permission]bool {
	set := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	return set
}

// ParseRole rejects anything outside the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleRank[r]; !ok {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

func (r Role) Can(p Permission) bool {
	return rolePermissions[r][p]
}

// IsStaff is true for admin and rootadmin.
func (r Role) IsStaff() bool {
	return roleRank[r] >= roleRank[RoleAdmin]
}

// Outranks reports whether r is strictly above other.
func (r Role) Outranks(other Role) bool {
	return roleRank[r] > roleRank[other]
}
