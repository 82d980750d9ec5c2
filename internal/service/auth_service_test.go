package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"letterdesk/internal/auth"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
)

func userWithPassword(t *testing.T, password string) *model.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &model.User{ID: 3, Username: "jdoe", FullName: "J Doe", PasswordHash: string(hashed), Role: model.RoleCEO}
}

func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		password  string
		setupMock func(*MockUserRepository, *MockTokenStore, *model.User)
		wantErr   error
	}{
		{
			name:     "successful login",
			username: "jdoe",
			password: "password123",
			setupMock: func(repo *MockUserRepository, store *MockTokenStore, user *model.User) {
				repo.On("FindByUsername", mock.Anything, "jdoe").Return(user, nil)
				store.On("StoreRefreshToken", mock.Anything, mock.AnythingOfType("string"), user.ID, auth.RefreshTokenExpiry).Return(nil)
			},
		},
		{
			name:     "unknown user",
			username: "ghost",
			password: "password123",
			setupMock: func(repo *MockUserRepository, _ *MockTokenStore, _ *model.User) {
				repo.On("FindByUsername", mock.Anything, "ghost").Return(nil, apperrors.ErrNotFound)
			},
			wantErr: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			username: "jdoe",
			password: "wrong",
			setupMock: func(repo *MockUserRepository, _ *MockTokenStore, user *model.User) {
				repo.On("FindByUsername", mock.Anything, "jdoe").Return(user, nil)
			},
			wantErr: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			store := new(MockTokenStore)
			jwtService := auth.NewJWTService("test-secret")
			user := userWithPassword(t, "password123")
			tt.setupMock(repo, store, user)
			svc := NewAuthService(repo, jwtService, store)

			access, refresh, got, err := svc.Login(context.Background(), tt.username, tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, access)
				assert.Empty(t, refresh)
				store.AssertNotCalled(t, "StoreRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, got.ID)

			claims, err := jwtService.ValidateToken(access)
			require.NoError(t, err)
			assert.Equal(t, model.RoleCEO, claims.Role)
			assert.Equal(t, "jdoe", claims.Username)
			assert.NotEmpty(t, refresh)
			repo.AssertExpectations(t)
			store.AssertExpectations(t)
		})
	}
}

func TestAuthService_LoginTokenStoreFailure(t *testing.T) {
	repo := new(MockUserRepository)
	store := new(MockTokenStore)
	user := userWithPassword(t, "pw")
	repo.On("FindByUsername", mock.Anything, "jdoe").Return(user, nil)
	store.On("StoreRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))
	svc := NewAuthService(repo, auth.NewJWTService("test-secret"), store)

	_, _, _, err := svc.Login(context.Background(), "jdoe", "pw")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthService_RefreshToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	user := &model.User{ID: 3, Username: "jdoe", Role: model.RoleUser}
	tokenID, refresh, err := jwtService.GenerateRefreshToken(user)
	require.NoError(t, err)

	t.Run("issues token with current role", func(t *testing.T) {
		repo := new(MockUserRepository)
		store := new(MockTokenStore)
		store.On("GetRefreshToken", mock.Anything, tokenID).Return(uint(3), nil)
		promoted := *user
		promoted.Role = model.RoleAdmin
		repo.On("FindByID", mock.Anything, uint(3)).Return(&promoted, nil)
		svc := NewAuthService(repo, jwtService, store)

		access, err := svc.RefreshToken(context.Background(), refresh)

		require.NoError(t, err)
		claims, err := jwtService.ValidateToken(access)
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, claims.Role)
	})

	t.Run("revoked token", func(t *testing.T) {
		store := new(MockTokenStore)
		store.On("GetRefreshToken", mock.Anything, tokenID).Return(uint(0), errors.New("refresh token not found"))
		svc := NewAuthService(new(MockUserRepository), jwtService, store)

		_, err := svc.RefreshToken(context.Background(), refresh)

		assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})

	t.Run("deleted user", func(t *testing.T) {
		repo := new(MockUserRepository)
		store := new(MockTokenStore)
		store.On("GetRefreshToken", mock.Anything, tokenID).Return(uint(3), nil)
		repo.On("FindByID", mock.Anything, uint(3)).Return(nil, apperrors.ErrNotFound)
		svc := NewAuthService(repo, jwtService, store)

		_, err := svc.RefreshToken(context.Background(), refresh)

		assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})

	t.Run("garbage", func(t *testing.T) {
		svc := NewAuthService(new(MockUserRepository), jwtService, new(MockTokenStore))

		_, err := svc.RefreshToken(context.Background(), "not-a-jwt")

		assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})
}

func TestAuthService_Logout(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	user := &model.User{ID: 3, Username: "jdoe", Role: model.RoleUser}
	tokenID, refresh, err := jwtService.GenerateRefreshToken(user)
	require.NoError(t, err)
	now := time.Now()
	access := &auth.Claims{
		UserID: 3,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "access-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
	}

	store := new(MockTokenStore)
	store.On("DeleteRefreshToken", mock.Anything, tokenID).Return(nil)
	store.On("BlacklistAccessToken", mock.Anything, "access-1", mock.MatchedBy(func(ttl time.Duration) bool {
		return ttl > 9*time.Minute && ttl <= 10*time.Minute
	})).Return(nil)
	svc := NewAuthService(new(MockUserRepository), jwtService, store, WithClock(func() time.Time { return now }))

	require.NoError(t, svc.Logout(context.Background(), refresh, access))
	store.AssertExpectations(t)

	assert.ErrorIs(t, svc.Logout(context.Background(), "junk", nil), apperrors.ErrInvalidRefreshToken)
}
