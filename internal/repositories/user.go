package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ymgch/anisync/internal/models"
	"github.com/ymgch/anisync/internal/shared"
)

// UserRepository persists [models.User] rows keyed on the Annict account ID.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Ensure upserts the user and returns the internal row ID.
//
// The first import of an Annict account generates a fresh UUID; subsequent
// imports refresh the mutable profile fields and keep the ID stable.
func (r *UserRepository) Ensure(user *models.User) (string, error) {
	if err := user.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO users (id, annict_id, username, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (annict_id) DO UPDATE SET
			username = excluded.username,
			name = excluded.name,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, shared.GenerateID(), user.ID, user.Username, user.Name, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to upsert user: %w", err)
	}

	var id string
	err = r.db.QueryRow("SELECT id FROM users WHERE annict_id = ?", user.ID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to read back user: %w", err)
	}

	return id, nil
}

// First returns the most recently updated user's internal ID.
//
// The importer is effectively single-user; this resolves the default user
// for API requests that do not name one.
func (r *UserRepository) First() (string, error) {
	var id string
	err := r.db.QueryRow("SELECT id FROM users ORDER BY updated_at DESC LIMIT 1").Scan(&id)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: no users imported yet", shared.ErrUserNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query default user: %w", err)
	}
	return id, nil
}

// Get retrieves a user by internal ID.
func (r *UserRepository) Get(id string) (*models.User, error) {
	query := `SELECT annict_id, username, name FROM users WHERE id = ?`

	var user models.User
	err := r.db.QueryRow(query, id).Scan(&user.ID, &user.Username, &user.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}
