package service

import (
	"context"
	"testing"
	"time"

	"shopmaster/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	user := &model.User{ID: uuid.New(), Name: "Rahim", Role: model.RoleOwner}

	token, err := issuer.Issue(user)
	require.NoError(t, err)

	actor, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.ID)
	assert.Equal(t, "Rahim", actor.Name)
	assert.True(t, actor.IsOwner())
	assert.NoError(t, issuer.Verify(token))

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer([]byte("other"), time.Hour)
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { issuer.now = time.Now }()
		assert.ErrorIs(t, issuer.Verify(token), ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": user.ID.String(), "role": "OWNER", "exp": time.Now().Add(time.Hour).Unix()}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Parse(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		forged, err := NewTokenIssuer([]byte("test-secret"), time.Hour).Issue(&model.User{ID: uuid.New(), Name: "x", Role: "ADMIN"})
		require.NoError(t, err)
		_, err = issuer.Parse(forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestUserService(t *testing.T) {
	store := newMemStore()
	issuer := NewTokenIssuer([]byte("secret"), time.Hour)
	svc := NewUserService(memUsers{s: store}, issuer)
	ctx := context.Background()

	require.NoError(t, svc.EnsureOwner(ctx, "Rahim", "Owner@Shop.test", "hunter22"))
	require.NoError(t, svc.EnsureOwner(ctx, "Other", "other@shop.test", "hunter22"), "no-op once users exist")
	_, total, err := svc.ListUsers(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	login, err := svc.Login(ctx, LoginRequest{Email: "owner@shop.test", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, login.User.Role)
	actor, err := issuer.Parse(login.Token)
	require.NoError(t, err)
	assert.Equal(t, "Rahim", actor.Name)

	_, err = svc.Login(ctx, LoginRequest{Email: "owner@shop.test", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@shop.test", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	req := CreateUserRequest{Name: "Karim", Email: "karim@shop.test", Password: "secret1", Role: model.RoleManager, ShopID: "2"}
	_, err = svc.CreateUser(ctx, manager, req)
	assert.ErrorIs(t, err, ErrPermission)

	created, err := svc.CreateUser(ctx, actor, req)
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, created.Role)

	_, err = svc.CreateUser(ctx, actor, req)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "karim@shop.test", got.Email)
	assert.NotContains(t, store.users[created.ID].Password, "secret1")

	_, err = svc.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
