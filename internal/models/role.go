package models

import "strings"

const (
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
	RoleEmployee   = "employee"

	// roleLegacyPortalUser is what early signups were stored with.
	roleLegacyPortalUser = "portal_user"
)

// NormalizeRole maps stored or claimed role strings onto the current role set.
// Unknown values come back lowercased and trimmed so allow-lists reject them.
func NormalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == roleLegacyPortalUser {
		return RoleEmployee
	}
	return r
}

// IsValidRole reports whether role is one an admin may assign.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTechnician, RoleEmployee:
		return true
	}
	return false
}

// RoleAliases lists every stored value that normalizes to role, for filtering queries.
func RoleAliases(role string) []string {
	role = NormalizeRole(role)
	if role == RoleEmployee {
		return []string{RoleEmployee, roleLegacyPortalUser}
	}
	return []string{role}
}
