package users

import (
	"context"
	"io"
	"testing"

	"github.com/angelmondragon/rvstore-backend/pkg/config"
	"github.com/angelmondragon/rvstore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"github.com/angelmondragon/rvstore-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repo:           NewRepository(client.DB()),
		DB:             client,
		PasswordConfig: testPasswordConfig,
		Logger:         logger.New(logger.Options{ServiceName: "users-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, client.DB()
}

func TestGetAndList(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	bob := dbtest.CreateUser(t, conn, "bob", -250, enums.UserRoleUser1)
	dbtest.CreateUser(t, conn, "alice", 0, enums.UserRoleAdmin)

	got, err := svc.Get(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
	assert.EqualValues(t, -250, got.MoneyBalance)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].Username)

	_, err = svc.Get(ctx, 999)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	bob := dbtest.CreateUser(t, conn, "bob", 0, enums.UserRoleUser1)
	dbtest.CreateUser(t, conn, "carol", 0, enums.UserRoleUser1)

	name := "Bob Builder"
	email := "  Bob@Example.org "
	got, err := svc.UpdateProfile(ctx, bob.ID, UpdateProfileInput{FullName: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Bob Builder", got.FullName)
	assert.Equal(t, "bob@example.org", got.Email)
	assert.Equal(t, "bob", got.Username)

	taken := "carol"
	_, err = svc.UpdateProfile(ctx, bob.ID, UpdateProfileInput{Username: &taken})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	takenEmail := "carol@example.com"
	_, err = svc.UpdateProfile(ctx, bob.ID, UpdateProfileInput{Email: &takenEmail})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	same := "bob"
	_, err = svc.UpdateProfile(ctx, bob.ID, UpdateProfileInput{Username: &same})
	require.NoError(t, err, "keeping your own username is not a conflict")
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	bob := dbtest.CreateUser(t, conn, "bob", 0, enums.UserRoleUser1)

	require.NoError(t, svc.ChangePassword(ctx, bob.ID, "hunter22"))

	stored, err := NewRepository(conn).FindByID(ctx, bob.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword("hunter22", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	err = svc.ChangePassword(ctx, bob.ID, " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestChangeRole(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	bob := dbtest.CreateUser(t, conn, "bob", 0, enums.UserRoleUser1)

	got, err := svc.ChangeRole(ctx, bob.ID, enums.UserRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, got.Role)

	_, err = svc.ChangeRole(ctx, bob.ID, enums.UserRole("ROOT"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.ChangeRole(ctx, 12345, enums.UserRoleUser2)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
