package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dkotlyarov/shoplite-backend/pkg/db/models"
	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
	pkgerrors "github.com/dkotlyarov/shoplite-backend/pkg/errors"
	"github.com/dkotlyarov/shoplite-backend/pkg/pagination"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:users_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		Surname:      "Petrov",
		Name:         "Petr",
		Role:         enums.UserRoleUser,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestGetUser(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	user := seedUser(t, db, "petr@example.com")

	dto, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "petr@example.com", dto.Email)

	_, err = svc.Get(ctx, uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListUsers(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedUser(t, db, fmt.Sprintf("user%d@example.com", i))
	}

	list, err := svc.List(ctx, pagination.Params{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, list.Users, 2)
	assert.Equal(t, int64(3), list.Meta.TotalObjects)
	assert.Equal(t, 2, list.Meta.TotalPages)
}

func TestSetRole(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	user := seedUser(t, db, "promote@example.com")

	dto, err := svc.SetRole(ctx, user.ID, enums.UserRoleManager)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleManager, dto.Role)

	_, err = svc.SetRole(ctx, user.ID, enums.UserRole("root"))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestSetActive(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	user := seedUser(t, db, "freeze@example.com")

	dto, err := svc.SetActive(ctx, user.ID, false)
	require.NoError(t, err)
	assert.False(t, dto.IsActive)

	dto, err = svc.SetActive(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, dto.IsActive)
}
