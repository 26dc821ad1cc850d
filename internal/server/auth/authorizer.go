package auth

import (
	"github.com/dmitrijs2005/codereg/internal/common"
	"github.com/dmitrijs2005/codereg/internal/server/models"
)

// RoleAuthorizer decides ownership from the record's owner and site code and
// roles from the principal's token claims.
type RoleAuthorizer struct{}

func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{}
}

// IsOwner reports whether p created r or holds the role of r's site.
func (a *RoleAuthorizer) IsOwner(p models.Principal, r *models.Record) bool {
	if p.UserID != "" && p.UserID == r.Owner {
		return true
	}
	return r.SiteOwnershipCode != "" && p.HasRole(common.SiteRolePrefix+r.SiteOwnershipCode)
}

func (a *RoleAuthorizer) HasRole(p models.Principal, role string) bool {
	return p.HasRole(role)
}
