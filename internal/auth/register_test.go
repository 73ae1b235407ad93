package auth

import (
	"context"
	"testing"

	"github.com/freshcart/grocery-backend/internal/users"
	"github.com/freshcart/grocery-backend/pkg/config"
	"github.com/freshcart/grocery-backend/pkg/db/dbtest"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/freshcart/grocery-backend/pkg/security"
	"github.com/stretchr/testify/require"
)

func newRegisterFixture(t *testing.T) (RegisterService, *users.Repository) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner:       client,
		PasswordConfig: config.PasswordConfig{},
	})
	require.NoError(t, err)
	return svc, users.NewRepository(client.DB())
}

func TestRegisterCreatesSelfServiceRoles(t *testing.T) {
	svc, repo := newRegisterFixture(t)
	ctx := context.Background()

	for _, role := range []enums.UserRole{enums.UserRoleCustomer, enums.UserRoleDeliveryPartner} {
		email := role.String() + "@Example.com"
		dto, err := svc.Register(ctx, RegisterRequest{Email: email, Password: "password123", Role: role})
		require.NoError(t, err)
		require.Equal(t, role, dto.Role)
		require.Equal(t, role.String()+"@example.com", dto.Email)

		stored, err := repo.FindByEmail(ctx, dto.Email)
		require.NoError(t, err)
		ok, err := security.VerifyPassword("password123", stored.PasswordHash)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestRegisterRejectsOwnerRole(t *testing.T) {
	svc, repo := newRegisterFixture(t)
	_, err := svc.Register(context.Background(), RegisterRequest{Email: "boss@example.com", Password: "password123", Role: enums.UserRoleOwner})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	count, err := repo.CountByRole(context.Background(), enums.UserRoleOwner)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newRegisterFixture(t)
	req := RegisterRequest{Email: "dup@example.com", Password: "password123", Role: enums.UserRoleCustomer}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}
