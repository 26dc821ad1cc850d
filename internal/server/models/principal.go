package models

import "slices"

// Principal is the authenticated caller of a registry operation.
type Principal struct {
	UserID string
	// Site is the caller's home site code; records created by the caller
	// inherit it as their site ownership code.
	Site  string
	Roles []string
}

func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}
