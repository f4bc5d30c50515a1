package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcore/clinic-api/internal/model"
	"github.com/medcore/clinic-api/internal/repository"
	"github.com/medcore/clinic-api/pkg/auth"
	"github.com/medcore/clinic-api/pkg/security"
)

type fakeUserRepo struct {
	users map[string]*model.User
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := r.users[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetDoctor(_ context.Context, id uuid.UUID) (*model.User, error) {
	return r.Get(context.Background(), id)
}

func (r *fakeUserRepo) ListDoctors(_ context.Context, _ string, _, _ int) ([]*model.User, int, error) {
	return nil, 0, nil
}

func newTestService(t *testing.T, active bool) (*Service, *model.User) {
	t.Helper()

	hasher := security.NewBcryptHasher(4)
	hash, err := hasher.Hash("open-sesame")
	require.NoError(t, err)

	user := &model.User{
		ID:           uuid.New(),
		Email:        "doc@clinic.test",
		PasswordHash: hash,
		Role:         model.UserRoleDoctor,
		FirstName:    "Greta",
		LastName:     "Hale",
		IsActive:     active,
	}

	repo := &fakeUserRepo{users: map[string]*model.User{user.Email: user}}
	jwtSvc := auth.NewJWTService("test-secret", time.Hour)
	return NewService(repo, jwtSvc, hasher, time.Hour), user
}

func TestLogin(t *testing.T) {
	svc, user := newTestService(t, true)

	resp, err := svc.Login(context.Background(), "doc@clinic.test", "open-sesame")

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "doctor", claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t, true)

	_, err := svc.Login(context.Background(), "doc@clinic.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t, true)

	_, err := svc.Login(context.Background(), "nobody@clinic.test", "open-sesame")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	svc, _ := newTestService(t, false)

	_, err := svc.Login(context.Background(), "doc@clinic.test", "open-sesame")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
