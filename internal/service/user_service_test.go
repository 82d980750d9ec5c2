package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
	"letterdesk/internal/policy"
)

func TestUserService_CreateUser(t *testing.T) {
	tests := []struct {
		name      string
		actor     policy.Actor
		input     CreateUserInput
		setupMock func(*MockUserRepository)
		wantErr   error
	}{
		{
			name:  "admin creates user with default role",
			actor: admin,
			input: CreateUserInput{Username: " jdoe ", FullName: "J Doe", Email: "j@doe.test", Password: "pw"},
			setupMock: func(repo *MockUserRepository) {
				repo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.Username == "jdoe" && u.Role == model.RoleUser &&
						bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw")) == nil
				})).Return(nil)
			},
		},
		{
			name:    "reviewer forbidden",
			actor:   ceo,
			input:   CreateUserInput{Username: "x", Password: "pw"},
			wantErr: apperrors.ErrForbidden,
		},
		{
			name:    "unknown role",
			actor:   admin,
			input:   CreateUserInput{Username: "x", Password: "pw", Role: "Owner"},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "missing password",
			actor:   admin,
			input:   CreateUserInput{Username: "x"},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:  "duplicate username",
			actor: admin,
			input: CreateUserInput{Username: "jdoe", Password: "pw", Role: model.RoleCEO},
			setupMock: func(repo *MockUserRepository) {
				repo.On("Create", mock.Anything, mock.Anything).Return(apperrors.ErrConflict)
			},
			wantErr: apperrors.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}
			svc := NewUserService(repo, nil)

			user, err := svc.CreateUser(context.Background(), tt.actor, tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "jdoe", user.Username)
			repo.AssertExpectations(t)
		})
	}
}

func TestUserService_UpdateUser(t *testing.T) {
	repo := new(MockUserRepository)
	existing := &model.User{ID: 4, Username: "jdoe", FullName: "J Doe", Role: model.RoleUser, PasswordHash: "old"}
	repo.On("FindByID", mock.Anything, uint(4)).Return(existing, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Role == model.RoleCEO && u.FullName == "J Doe" && u.PasswordHash != "old"
	})).Return(nil)
	svc := NewUserService(repo, nil)

	got, err := svc.UpdateUser(context.Background(), admin, 4, UpdateUserInput{Role: model.RoleCEO, Password: "new"})

	require.NoError(t, err)
	assert.Equal(t, model.RoleCEO, got.Role)
	repo.AssertExpectations(t)
}

func TestUserService_AdminCannotDemoteOrDeleteSelf(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewUserService(repo, nil)
	ctx := context.Background()

	_, err := svc.UpdateUser(ctx, admin, admin.ID, UpdateUserInput{Role: model.RoleUser})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.ErrorIs(t, svc.DeleteUser(ctx, admin, admin.ID), apperrors.ErrValidation)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUserService_DeleteAndList(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("Delete", mock.Anything, uint(4)).Return(nil)
	repo.On("Delete", mock.Anything, uint(5)).Return(apperrors.ErrNotFound)
	repo.On("List", mock.Anything).Return([]model.User{{ID: 1}, {ID: 9}}, nil)
	svc := NewUserService(repo, nil)
	ctx := context.Background()

	require.NoError(t, svc.DeleteUser(ctx, admin, 4))
	assert.ErrorIs(t, svc.DeleteUser(ctx, admin, 5), apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteUser(ctx, uploader, 4), apperrors.ErrForbidden)

	users, err := svc.ListUsers(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = svc.ListUsers(ctx, ceo)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestUserService_GetUserWithoutCache(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1, Username: "uma"}, nil).Twice()
	svc := NewUserService(repo, nil)

	for i := 0; i < 2; i++ {
		u, err := svc.GetUser(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "uma", u.Username)
	}
	repo.AssertExpectations(t)
}
