package repositories

import (
	"context"
	"database/sql"
	"errors"

	"bakery_backend/internal/models"
)

// AuthRepository defines the interface for authentication-related database operations.
type AuthRepository interface {
	CreateUser(ctx context.Context, executor SQLExecutor, user *models.User, hashedPassword string) error
	FindUserByUsername(ctx context.Context, executor SQLExecutor, username string) (*models.User, string, error) // Returns User, HashedPassword, Error
	FindUserByID(ctx context.Context, executor SQLExecutor, userID string) (*models.User, error)
	CountUsers(ctx context.Context, executor SQLExecutor) (int, error)
}

// authRepository implements the AuthRepository interface.
type authRepository struct{}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository() AuthRepository {
	return &authRepository{}
}

// CreateUser inserts a new user. The caller assigns ID, role and timestamps.
func (r *authRepository) CreateUser(ctx context.Context, executor SQLExecutor, user *models.User, hashedPassword string) error {
	query := `INSERT INTO users (id, username, password_hash, full_name, role, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := executor.ExecContext(ctx, query,
		user.ID,
		user.Username,
		hashedPassword,
		user.FullName, // Can be nil
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return wrapDBError(err, "creating user %s", user.Username)
	}
	return nil
}

// FindUserByUsername retrieves a user and their password hash.
func (r *authRepository) FindUserByUsername(ctx context.Context, executor SQLExecutor, username string) (*models.User, string, error) {
	query := `SELECT id, username, password_hash, full_name, role, is_active, created_at, updated_at
	          FROM users WHERE username = $1`
	user, hashedPassword, err := scanUser(executor.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", wrapDBError(err, "finding user by username %s", username)
	}
	return user, hashedPassword, nil
}

// FindUserByID retrieves a user profile. The password hash is not returned.
func (r *authRepository) FindUserByID(ctx context.Context, executor SQLExecutor, userID string) (*models.User, error) {
	query := `SELECT id, username, password_hash, full_name, role, is_active, created_at, updated_at
	          FROM users WHERE id = $1`
	user, _, err := scanUser(executor.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapDBError(err, "finding user by ID %s", userID)
	}
	return user, nil
}

func (r *authRepository) CountUsers(ctx context.Context, executor SQLExecutor) (int, error) {
	var count int
	if err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, wrapDBError(err, "counting users")
	}
	return count, nil
}

func scanUser(row scanner) (*models.User, string, error) {
	user := &models.User{}
	var hashedPassword string
	err := row.Scan(&user.ID, &user.Username, &hashedPassword, &user.FullName, &user.Role,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, "", err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, hashedPassword, nil
}
