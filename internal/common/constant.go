// Package common contains shared constants and sentinel errors used across
// registry components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// Role codes understood by the authorization layer.
const (
	// RoleAdmin grants every workflow and tombstone operation on any record.
	RoleAdmin = "RecordAdmin"
	// SiteRolePrefix is prepended to a site code to build the role that
	// grants access to every record owned by that site.
	SiteRolePrefix = "site:"
)
