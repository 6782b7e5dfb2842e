package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"user-service/internal/domain"
	"user-service/internal/repository"
)

// UserInput carries the caller-settable fields of a user. Structural
// validation (non-blank fields, email shape) happens at the HTTP layer and is
// not repeated here.
type UserInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// UserService holds the business rules for the user resource: uniqueness of
// username and email, existence checks before mutation, and transactional
// boundaries around every mutating operation.
type UserService interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, input UserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, input UserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type userService struct {
	users  repository.UserRepository
	logger logrus.FieldLogger
}

func NewUserService(users repository.UserRepository, logger logrus.FieldLogger) UserService {
	return &userService{users: users, logger: logger}
}

func (s *userService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.FindAll(ctx)
}

func (s *userService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.FindByUsername(ctx, username)
}

func (s *userService) CreateUser(ctx context.Context, input UserInput) (*domain.User, error) {
	user := &domain.User{
		Username:  input.Username,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}

	// The pre-checks and the insert are not atomic across concurrent
	// requests; the store's unique index is the backstop and Save reports
	// a violation as the same duplicate sentinel.
	err := s.users.InTx(ctx, func(r repository.UserRepository) error {
		taken, err := r.ExistsByUsername(ctx, input.Username)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrDuplicateUsername
		}

		taken, err = r.ExistsByEmail(ctx, input.Email)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrDuplicateEmail
		}

		return r.Save(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("id", user.ID).Info("user created")
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, id int64, input UserInput) (*domain.User, error) {
	var user *domain.User

	err := s.users.InTx(ctx, func(r repository.UserRepository) error {
		existing, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}

		// re-check uniqueness only when the value actually changes,
		// so an unchanged field never conflicts with its own record
		if input.Username != existing.Username {
			taken, err := r.ExistsByUsername(ctx, input.Username)
			if err != nil {
				return err
			}
			if taken {
				return domain.ErrDuplicateUsername
			}
		}
		if input.Email != existing.Email {
			taken, err := r.ExistsByEmail(ctx, input.Email)
			if err != nil {
				return err
			}
			if taken {
				return domain.ErrDuplicateEmail
			}
		}

		existing.Username = input.Username
		existing.Email = input.Email
		existing.FirstName = input.FirstName
		existing.LastName = input.LastName

		if err := r.Save(ctx, existing); err != nil {
			return err
		}
		user = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("id", user.ID).Info("user updated")
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, id int64) error {
	err := s.users.InTx(ctx, func(r repository.UserRepository) error {
		exists, err := r.ExistsByID(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return r.DeleteByID(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.WithField("id", id).Info("user deleted")
	return nil
}
