package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"prospector/internal/models"
)

// UserRepository is the data access layer for users
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.CreatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, name, provider_credential, created_at)
		VALUES (?, ?, ?, ?)`,
		user.Email, user.Name, user.ProviderCredential, user.CreatedAt)
	if err != nil {
		return err
	}
	user.ID, err = res.LastInsertId()
	return err
}

// GetByID returns a user by id, or nil if it does not exist
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns a user by email, or nil if it does not exist
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
