package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlchat-go/internal/model"
	"sqlchat-go/pkg/token"
)

func newUserService(t *testing.T) (UserService, *fakeUserRepo, *token.JWTManager) {
	t.Helper()
	repo := &fakeUserRepo{}
	jwt := token.NewJWTManager("test-secret", time.Hour)
	return NewUserService(repo, jwt), repo, jwt
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	svc, _, jwt := newUserService(t)
	ctx := context.Background()

	created, err := svc.Provision(ctx, "Teacher One", "teacher@example.com", "s3cret", "")
	require.NoError(t, err)
	assert.Equal(t, model.RoleTeacher, created.Role)
	assert.NotEqual(t, "s3cret", created.Password)

	tok, user, err := svc.Login(ctx, "teacher@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	claims, err := jwt.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Equal(t, "teacher@example.com", claims.Email)
	assert.Equal(t, model.RoleTeacher, claims.Role)
}

func TestLogin_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	_, err := svc.Provision(ctx, "T", "teacher@example.com", "s3cret", model.RoleTeacher)
	require.NoError(t, err)

	_, _, errWrongPassword := svc.Login(ctx, "teacher@example.com", "wrong")
	_, _, errUnknownEmail := svc.Login(ctx, "nobody@example.com", "s3cret")

	assert.ErrorIs(t, errWrongPassword, model.ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknownEmail, model.ErrInvalidCredentials)
	assert.Equal(t, errWrongPassword.Error(), errUnknownEmail.Error())
}

func TestLogin_StoreFailure(t *testing.T) {
	svc, repo, _ := newUserService(t)
	repo.err = errors.New("connection refused")

	_, _, err := svc.Login(context.Background(), "teacher@example.com", "s3cret")
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestProvision(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	admin, err := svc.Provision(ctx, "Admin", "admin@example.com", "pw", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	_, err = svc.Provision(ctx, "Again", "admin@example.com", "pw", "")
	assert.ErrorIs(t, err, model.ErrUserExists)

	_, err = svc.Provision(ctx, "X", "x@example.com", "pw", "principal")
	assert.ErrorIs(t, err, model.ErrInvalidAccount)

	_, err = svc.Provision(ctx, "X", "", "pw", "")
	assert.ErrorIs(t, err, model.ErrInvalidAccount)
}
