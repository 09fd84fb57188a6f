// Package gate décide, pour un rôle et une capacité donnés, si l'accès est
// accordé. C'est une fonction pure sur deux énumérations fermées : aucune
// comparaison de chaîne de rôle ne doit exister ailleurs dans l'application.
package gate

import (
	"errors"

	"github.com/FlexiFlizz/sonphonor/internal/models"
)

// Capability describes what a route requires, independent of any role.
type Capability string

const (
	// CapCatalogRead covers every read-only endpoint: catalog, quotes,
	// events, flight cases. Any authenticated role has it.
	CapCatalogRead Capability = "catalog:read"
	// CapCatalogWrite covers create/update/delete on catalog, quotes,
	// events and flight cases. Members and admins.
	CapCatalogWrite Capability = "catalog:write"
	// CapManageUsers covers the admin-only user administration surface.
	CapManageUsers Capability = "users:manage"
)

var Capabilities = []Capability{CapCatalogRead, CapCatalogWrite, CapManageUsers}

var ErrForbidden = errors.New("forbidden")

// Can returns whether role grants capability. Unknown roles and unknown
// capabilities always deny.
func Can(role models.Role, capability Capability) bool {
	switch capability {
	case CapCatalogRead:
		return role.Valid()
	case CapCatalogWrite:
		return role == models.RoleAdmin || role == models.RoleMember
	case CapManageUsers:
		return role == models.RoleAdmin
	}
	return false
}

// Authorize is the error-returning form used by HTTP middleware.
func Authorize(role models.Role, capability Capability) error {
	if !Can(role, capability) {
		return ErrForbidden
	}
	return nil
}
