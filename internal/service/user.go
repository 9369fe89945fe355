package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kitapce/lending-service/internal/model"
	"github.com/kitapce/lending-service/internal/repository"
)

type UserService struct {
	log  *zap.Logger
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository, log *zap.Logger) *UserService {
	return &UserService{
		log:  log,
		repo: repo,
	}
}

// CreateUser stores a new account with a bcrypt password hash. A taken
// email surfaces as errs.ErrEmailTaken from the store.
func (s *UserService) CreateUser(ctx context.Context, req model.CreateUserRequest) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, err
	}
	return s.repo.CreateUser(ctx, model.User{
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hash),
	})
}

func (s *UserService) GetUser(ctx context.Context, id int64) (model.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.repo.GetUserByEmail(ctx, email)
}

func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *UserService) UpdateUser(ctx context.Context, id int64, req model.UpdateUserRequest) (model.User, error) {
	patch := model.UserPatch{
		Email: req.Email,
		Name:  req.Name,
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return model.User{}, err
		}
		hashed := string(hash)
		patch.PasswordHash = &hashed
	}
	return s.repo.UpdateUser(ctx, id, patch)
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.DeleteUser(ctx, id)
}
