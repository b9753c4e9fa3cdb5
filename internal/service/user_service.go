package service

import (
	"context"
	"errors"

	"plansly/backend/internal/apperrors"
	"plansly/backend/internal/domain"
	"plansly/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserService covers profile reads and preference updates. Membership
// counters and mutuals move through the repository's atomic operations
// from within plan-scoped flows, never here.
type UserService interface {
	GetUser(ctx context.Context, userID primitive.ObjectID) (*domain.User, error)
	UpdateUser(ctx context.Context, userID primitive.ObjectID, fields map[string]interface{}) (*domain.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new instance of userService.
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// GetUser fetches a user profile by id.
func (s *userService) GetUser(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.UserNotFound(userID.Hex())
		}
		return nil, apperrors.Database(err)
	}
	return user, nil
}

// UpdateUser applies an allow-listed preference merge to the caller's
// own profile.
func (s *userService) UpdateUser(ctx context.Context, userID primitive.ObjectID, fields map[string]interface{}) (*domain.User, error) {
	normalized, err := domain.UserFields.Normalize(fields)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.UserNotFound(userID.Hex())
		}
		return nil, apperrors.Database(err)
	}

	if err := user.ApplyFields(normalized); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, apperrors.Database(err)
	}
	return user, nil
}
