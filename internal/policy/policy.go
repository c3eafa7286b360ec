package policy

import (
	"github.com/google/uuid"

	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
)

// Action names an operation gated by role checks.
type Action string

const (
	ActionCatalogRead    Action = "catalog.read"
	ActionCatalogWrite   Action = "catalog.write"
	ActionProductCreate  Action = "product.create"
	ActionProductDelete  Action = "product.delete"
	ActionUserList       Action = "user.list"
	ActionUserManage     Action = "user.manage"
	ActionOrderListAll   Action = "order.list_all"
	ActionOrderSetStatus Action = "order.set_status"
)

// actionRoles maps each gated action to the roles allowed to perform it.
// Actions absent from the map are open to any authenticated principal.
var actionRoles = map[Action][]enums.UserRole{
	ActionCatalogWrite:   {enums.UserRoleAdmin},
	ActionProductCreate:  {enums.UserRoleAdmin},
	ActionProductDelete:  {enums.UserRoleAdmin},
	ActionUserList:       {enums.UserRoleAdmin},
	ActionUserManage:     {enums.UserRoleAdmin},
	ActionOrderListAll:   {enums.UserRoleManager, enums.UserRoleAdmin},
	ActionOrderSetStatus: {enums.UserRoleManager, enums.UserRoleAdmin},
}

// Allow reports whether the role may perform the action.
func Allow(role enums.UserRole, action Action) bool {
	allowed, gated := actionRoles[action]
	if !gated {
		return role.IsValid()
	}
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}

// CanAccessOrder reports whether the principal may read the given order.
// Owners always can; managers and admins can read any order.
func CanAccessOrder(role enums.UserRole, principalID uuid.UUID, ownerID *uuid.UUID) bool {
	if role.IsStaff() {
		return true
	}
	return ownerID != nil && *ownerID == principalID
}

// RolesFor returns the roles allowed to perform a gated action. Used by
// route construction; ungated actions return nil.
func RolesFor(action Action) []enums.UserRole {
	return actionRoles[action]
}
