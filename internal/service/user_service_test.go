package service

import (
	"context"
	"testing"

	"materialflow/internal/apperrors"
	"materialflow/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	res := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		res = append(res, *u)
	}
	return res, int64(len(res)), nil
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	user, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Name:     "Dana Kim",
		Email:    "dana@example.com",
		Password: "hunter22",
		Role:     model.RoleEmployee,
	})
	require.NoError(t, err)
	assert.True(t, user.IsActive)

	stored, err := repo.FindByEmail(context.Background(), "dana@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("hunter22")))
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())

	_, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "hunter22",
		Role:     "superuser",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())

	req := CreateUserRequest{Name: "Dana", Email: "dana@example.com", Password: "hunter22", Role: model.RoleAdmin}
	_, err := svc.CreateUser(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.CreateUser(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	_, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "hunter22",
		Role:     model.RoleManager,
	})
	require.NoError(t, err)

	token, err := svc.Login(context.Background(), LoginUserRequest{Email: "dana@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)

	_, err = svc.Login(context.Background(), LoginUserRequest{Email: "dana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Login(context.Background(), LoginUserRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLoginRejectsDeactivatedUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	created, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Name:     "Dana",
		Email:    "dana@example.com",
		Password: "hunter22",
		Role:     model.RoleEmployee,
	})
	require.NoError(t, err)

	inactive := false
	_, err = svc.UpdateUser(context.Background(), created.ID, UpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginUserRequest{Email: "dana@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpdateUserPartial(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	created, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Name:       "Dana",
		Email:      "dana@example.com",
		Password:   "hunter22",
		Role:       model.RoleEmployee,
		Department: "Facilities",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateUser(context.Background(), created.ID, UpdateUserRequest{Role: model.RoleManager})
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, updated.Role)
	assert.Equal(t, "Dana", updated.Name)
	assert.Equal(t, "Facilities", updated.Department)
}
