package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"user-service/internal/domain"
	"user-service/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	version INTEGER NOT NULL DEFAULT 0
);
`

// querier is satisfied by both *sql.DB and *sql.Tx so the same repository
// code serves plain and transactional calls.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type UserRepository struct {
	db *sql.DB // nil when bound to a transaction
	q  querier
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db, q: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.q.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT id, username, email, first_name, last_name, created_at, updated_at, version
FROM users
ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.FirstName,
			&user.LastName,
			&user.CreatedAt,
			&user.UpdatedAt,
			&user.Version,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
SELECT id, username, email, first_name, last_name, created_at, updated_at, version
FROM users
WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
SELECT id, username, email, first_name, last_name, created_at, updated_at, version
FROM users
WHERE username = ?`,
		username,
	)
	return scanUser(row)
}

func (r *UserRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id)
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email)
}

func (r *UserRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var found bool
	if err := r.q.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("exists query: %w", err)
	}
	return found, nil
}

func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	if user.ID == 0 {
		return r.insert(ctx, user)
	}
	return r.update(ctx, user)
}

func (r *UserRepository) insert(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()

	res, err := r.q.ExecContext(ctx, `
INSERT INTO users (username, email, first_name, last_name, created_at, updated_at, version)
VALUES (?, ?, ?, ?, ?, ?, 0)`,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		now,
		now,
	)
	if err != nil {
		if dup := classifyUnique(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Version = 0
	return nil
}

func (r *UserRepository) update(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()

	res, err := r.q.ExecContext(ctx, `
UPDATE users
SET username = ?, email = ?, first_name = ?, last_name = ?, updated_at = ?, version = version + 1
WHERE id = ? AND version = ?`,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		now,
		user.ID,
		user.Version,
	)
	if err != nil {
		if dup := classifyUnique(err); dup != nil {
			return dup
		}
		return fmt.Errorf("update user: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rows affected: %w", err)
	}
	if rows == 0 {
		exists, err := r.ExistsByID(ctx, user.ID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrVersionConflict
		}
		return domain.ErrNotFound
	}

	user.UpdatedAt = now
	user.Version++
	return nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) InTx(ctx context.Context, fn func(repository.UserRepository) error) error {
	if r.db == nil {
		// already inside a transaction
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&UserRepository{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}

// classifyUnique maps a sqlite unique-index violation to the matching
// duplicate sentinel. The driver reports "UNIQUE constraint failed:
// users.<column>".
func classifyUnique(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique constraint") {
		return nil
	}
	if strings.Contains(msg, "users.email") {
		return domain.ErrDuplicateEmail
	}
	return domain.ErrDuplicateUsername
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
