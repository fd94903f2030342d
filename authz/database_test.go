package authz

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/websecurity/models"
	"github.com/upb/websecurity/repositories"
	"github.com/upb/websecurity/security"
	"go.uber.org/zap"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetActiveByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Permissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserRepository) AddPermission(ctx context.Context, userID uuid.UUID, permission string) error {
	return m.Called(ctx, userID, permission).Error(0)
}

func (m *MockUserRepository) RemovePermission(ctx context.Context, userID uuid.UUID, permission string) error {
	return m.Called(ctx, userID, permission).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func notFound(name string) error {
	return fmt.Errorf("user %s: %w", name, repositories.ErrNotFound)
}

func TestDatabasePolicy_AuthorizedUserID(t *testing.T) {
	ctx := context.Background()

	t.Run("enabled user resolves to its uuid", func(t *testing.T) {
		repo := new(MockUserRepository)
		user := models.NewUser("moderator", "hash")
		repo.On("GetActiveByUsername", ctx, "moderator").Return(user, nil)

		id, ok, err := NewDatabasePolicy(repo, zap.NewNop()).AuthorizedUserID(ctx, mustIdentity(t, "moderator"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, security.UserID(user.ID.String()), id)
		repo.AssertExpectations(t)
	})

	t.Run("unknown or disabled user", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("GetActiveByUsername", ctx, "ghost").Return(nil, notFound("ghost"))

		id, ok, err := NewDatabasePolicy(repo, zap.NewNop()).AuthorizedUserID(ctx, mustIdentity(t, "ghost"))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, id)
	})

	t.Run("database failure propagates", func(t *testing.T) {
		repo := new(MockUserRepository)
		dbErr := errors.New("connection refused")
		repo.On("GetActiveByUsername", ctx, "user").Return(nil, dbErr)

		_, ok, err := NewDatabasePolicy(repo, zap.NewNop()).AuthorizedUserID(ctx, mustIdentity(t, "user"))
		assert.False(t, ok)
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("anonymous never reaches the database", func(t *testing.T) {
		repo := new(MockUserRepository)
		_, ok, err := NewDatabasePolicy(repo, zap.NewNop()).AuthorizedUserID(ctx, security.Anonymous)
		require.NoError(t, err)
		assert.False(t, ok)
		repo.AssertNotCalled(t, "GetActiveByUsername", mock.Anything, mock.Anything)
	})
}

func TestDatabasePolicy_Permits(t *testing.T) {
	ctx := context.Background()

	admin := models.NewUser("admin", "hash")
	admin.IsSuperuser = true
	moderator := models.NewUser("moderator", "hash")
	user := models.NewUser("user", "hash")

	newRepo := func() *MockUserRepository {
		repo := new(MockUserRepository)
		repo.On("GetActiveByUsername", ctx, "admin").Return(admin, nil)
		repo.On("GetActiveByUsername", ctx, "moderator").Return(moderator, nil)
		repo.On("GetActiveByUsername", ctx, "user").Return(user, nil)
		repo.On("GetActiveByUsername", ctx, "ghost").Return(nil, notFound("ghost"))
		repo.On("Permissions", ctx, moderator.ID).Return([]string{"protected", "public"}, nil)
		repo.On("Permissions", ctx, user.ID).Return([]string{"public"}, nil)
		return repo
	}

	tests := []struct {
		identity   string
		permission security.Permission
		want       bool
	}{
		{"admin", "public", true},
		{"admin", "protected", true},
		{"admin", "anything.at.all", true},
		{"moderator", "public", true},
		{"moderator", "protected", true},
		{"moderator", "admin", false},
		{"user", "public", true},
		{"user", "protected", false},
		{"ghost", "public", false},
	}

	for _, tt := range tests {
		t.Run(tt.identity+"/"+string(tt.permission), func(t *testing.T) {
			policy := NewDatabasePolicy(newRepo(), zap.NewNop())
			assert.Equal(t, tt.want, policy.Permits(ctx, mustIdentity(t, tt.identity), tt.permission, nil))
		})
	}

	t.Run("superuser skips permission rows", func(t *testing.T) {
		repo := newRepo()
		NewDatabasePolicy(repo, zap.NewNop()).Permits(ctx, mustIdentity(t, "admin"), "public", nil)
		repo.AssertNotCalled(t, "Permissions", mock.Anything, admin.ID)
	})

	t.Run("lookup failure denies", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("GetActiveByUsername", ctx, "user").Return(user, nil)
		repo.On("Permissions", ctx, user.ID).Return(nil, errors.New("timeout"))

		assert.False(t, NewDatabasePolicy(repo, zap.NewNop()).Permits(ctx, mustIdentity(t, "user"), "public", nil))
	})

	t.Run("anonymous", func(t *testing.T) {
		assert.False(t, NewDatabasePolicy(newRepo(), zap.NewNop()).Permits(ctx, security.Anonymous, "public", nil))
	})
}
