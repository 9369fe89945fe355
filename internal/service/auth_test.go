package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kitapce/lending-service/internal/errs"
	"github.com/kitapce/lending-service/internal/model"
	"github.com/kitapce/lending-service/internal/service"
	repo_mocks "github.com/kitapce/lending-service/internal/repository/mocks"
)

const testJWTKey = "test-jwt-key"

func newAuth(t *testing.T) (*service.AuthService, *repo_mocks.MockUserRepository) {
	t.Helper()
	c := gomock.NewController(t)
	repo := repo_mocks.NewMockUserRepository(c)
	log := zap.NewExample().Named("test")
	users := service.NewUserService(repo, log)
	return service.NewAuthService(users, testJWTKey, time.Hour, log), repo
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	user := model.User{ID: 1, Email: "alice@example.com", Password: string(hash)}

	t.Run("ok and token parses back", func(t *testing.T) {
		t.Parallel()
		svc, repo := newAuth(t)
		repo.EXPECT().GetUserByEmail(ctx, user.Email).Return(user, nil)

		token, err := svc.Login(ctx, model.AuthRequest{Email: user.Email, Password: "password123"})
		require.NoError(t, err)

		claims, err := svc.ParseToken(token)
		require.NoError(t, err)
		require.Equal(t, user.ID, claims.UserID)
		require.Equal(t, user.Email, claims.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		svc, repo := newAuth(t)
		repo.EXPECT().GetUserByEmail(ctx, user.Email).Return(user, nil)

		_, err := svc.Login(ctx, model.AuthRequest{Email: user.Email, Password: "nope"})
		require.ErrorIs(t, err, errs.ErrInvalidCred)
	})

	t.Run("unknown email looks like wrong password", func(t *testing.T) {
		t.Parallel()
		svc, repo := newAuth(t)
		repo.EXPECT().GetUserByEmail(ctx, "who@example.com").Return(model.User{}, errs.ErrUserNotFound)

		_, err := svc.Login(ctx, model.AuthRequest{Email: "who@example.com", Password: "password123"})
		require.ErrorIs(t, err, errs.ErrInvalidCred)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAuth(t)
		_, err := svc.ParseToken("not-a-token")
		require.ErrorIs(t, err, errs.ErrInvalidCred)
	})
}

func TestUserService_CreateUser_HashesPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := gomock.NewController(t)
	repo := repo_mocks.NewMockUserRepository(c)
	users := service.NewUserService(repo, zap.NewExample().Named("test"))

	repo.EXPECT().CreateUser(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, u model.User) (model.User, error) {
			require.NotEqual(t, "password123", u.Password)
			require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("password123")))
			u.ID = 1
			return u, nil
		})

	user, err := users.CreateUser(ctx, model.CreateUserRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)
}
