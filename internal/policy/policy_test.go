package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
)

func TestAllow(t *testing.T) {
	t.Parallel()

	cases := []struct {
		role    enums.UserRole
		action  Action
		allowed bool
	}{
		{enums.UserRoleUser, ActionCatalogRead, true},
		{enums.UserRoleUser, ActionCatalogWrite, false},
		{enums.UserRoleUser, ActionOrderListAll, false},
		{enums.UserRoleUser, ActionUserManage, false},
		{enums.UserRoleManager, ActionCatalogWrite, false},
		{enums.UserRoleManager, ActionOrderListAll, true},
		{enums.UserRoleManager, ActionOrderSetStatus, true},
		{enums.UserRoleManager, ActionProductCreate, false},
		{enums.UserRoleManager, ActionProductDelete, false},
		{enums.UserRoleManager, ActionUserList, false},
		{enums.UserRoleAdmin, ActionProductCreate, true},
		{enums.UserRoleAdmin, ActionProductDelete, true},
		{enums.UserRoleAdmin, ActionUserList, true},
		{enums.UserRoleAdmin, ActionUserManage, true},
		{enums.UserRoleAdmin, ActionCatalogWrite, true},
		{enums.UserRole("ghost"), ActionCatalogRead, false},
		{enums.UserRole("ghost"), ActionCatalogWrite, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, Allow(tc.role, tc.action),
			"role=%s action=%s", tc.role, tc.action)
	}
}

func TestCanAccessOrder(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	other := uuid.New()

	assert.True(t, CanAccessOrder(enums.UserRoleUser, owner, &owner))
	assert.False(t, CanAccessOrder(enums.UserRoleUser, other, &owner))
	assert.False(t, CanAccessOrder(enums.UserRoleUser, owner, nil))

	// Staff read any order, including ones whose user was deleted.
	assert.True(t, CanAccessOrder(enums.UserRoleManager, other, &owner))
	assert.True(t, CanAccessOrder(enums.UserRoleAdmin, other, nil))
}

func TestRolesFor(t *testing.T) {
	t.Parallel()

	assert.ElementsMatch(t,
		[]enums.UserRole{enums.UserRoleAdmin},
		RolesFor(ActionCatalogWrite))
	assert.Nil(t, RolesFor(ActionCatalogRead))
}
