package repository

import (
	"context"

	"user-service/internal/domain"
)

// UserRepository defines persistence operations for User entities. Save
// inserts when the entity has no ID yet and otherwise performs a
// version-checked update, returning domain.ErrVersionConflict on a stale
// write. Implementations map unique-index violations to
// domain.ErrDuplicateUsername / domain.ErrDuplicateEmail and missing rows to
// domain.ErrNotFound.
type UserRepository interface {
	Init(ctx context.Context) error
	FindAll(ctx context.Context) ([]domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, user *domain.User) error
	DeleteByID(ctx context.Context, id int64) error

	// InTx runs fn against a repository bound to a single transaction.
	// An error from fn rolls the transaction back.
	InTx(ctx context.Context, fn func(UserRepository) error) error

	// Ping reports whether the underlying store is reachable.
	Ping(ctx context.Context) error
}
