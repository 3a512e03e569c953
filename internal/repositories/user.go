package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/shared"
)

// userSearchLimit caps username search results.
const userSearchLimit = 20

var userColumns = []string{"id", "sequence", "external_id", "username", "email", "avatar_url", "created_at", "updated_at", "deleted_at"}

// UserRepository implements [models.Repository] for [models.PersistedUser] persistence.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(user *models.PersistedUser) error {
	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	user.SetID(shared.GenerateID())
	user.SetSequence(sequence)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO users (id, sequence, external_id, username, email, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	u := user.User
	_, err = r.db.Exec(query, u.ID, sequence, nullString(u.ExternalID), u.Username, u.Email, u.AvatarURL, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: user with email %s", shared.ErrAlreadyExists, u.Email)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.PersistedUser, error) {
	return r.getBy("id", id)
}

// GetByExternalID retrieves a user by their identity provider subject.
func (r *UserRepository) GetByExternalID(externalID string) (*models.PersistedUser, error) {
	return r.getBy("external_id", externalID)
}

// GetByUsername retrieves the first user with the exact username.
func (r *UserRepository) GetByUsername(username string) (*models.PersistedUser, error) {
	return r.getBy("username", username)
}

func (r *UserRepository) getBy(column, value string) (*models.PersistedUser, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE %s = ? AND deleted_at IS NULL
		ORDER BY sequence ASC
		LIMIT 1
	`, columns("", userColumns...), column)

	user, err := scanUser(r.db.QueryRow(query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// Update modifies an existing user's profile fields.
func (r *UserRepository) Update(user *models.PersistedUser) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	user.SetUpdatedAt(now)

	query := `
		UPDATE users
		SET username = ?, email = ?, avatar_url = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	u := user.User
	result, err := r.db.Exec(query, u.Username, u.Email, u.AvatarURL, now, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return expectAffected(result, fmt.Errorf("%w: not found or already deleted: %s", shared.ErrUserNotFound, u.ID))
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(id string) error {
	query := `UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return expectAffected(result, fmt.Errorf("%w: not found or already deleted: %s", shared.ErrUserNotFound, id))
}

// List retrieves all users matching the given criteria ("email", "username"), excluding soft-deleted users
func (r *UserRepository) List(criteria map[string]any) ([]*models.PersistedUser, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE deleted_at IS NULL", columns("", userColumns...))
	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, email)
	}
	if username, ok := criteria["username"].(string); ok && username != "" {
		query += " AND username = ?"
		args = append(args, username)
	}

	query += " ORDER BY sequence ASC"

	return r.query(context.Background(), query, args...)
}

// SearchUsers returns up to 20 users whose username contains q, ordered by username.
func (r *UserRepository) SearchUsers(ctx context.Context, q string) ([]*models.PersistedUser, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE deleted_at IS NULL AND LOWER(username) LIKE ? ESCAPE '\'
		ORDER BY username ASC
		LIMIT ?
	`, columns("", userColumns...))

	return r.query(ctx, query, likePattern(q), userSearchLimit)
}

// Random returns a random live user, used to attribute seeded tracks.
func (r *UserRepository) Random(ctx context.Context) (*models.PersistedUser, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE deleted_at IS NULL ORDER BY RANDOM() LIMIT 1", columns("", userColumns...))

	user, err := scanUser(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no users available", shared.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query random user: %w", err)
	}
	return user, nil
}

// UpsertExternal creates the user for an identity provider subject unless one exists.
//
// The returned bool reports whether a row was created. An empty username falls back to the email prefix.
func (r *UserRepository) UpsertExternal(externalID, username, email, avatarURL string) (*models.PersistedUser, bool, error) {
	if externalID == "" {
		return nil, false, fmt.Errorf("%w: external id is required", shared.ErrInvalidInput)
	}

	existing, err := r.GetByExternalID(externalID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	user := models.NewUser(0, externalID, username, email)
	user.User.AvatarURL = avatarURL
	if err := r.Create(user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (r *UserRepository) query(ctx context.Context, query string, args ...any) ([]*models.PersistedUser, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.PersistedUser
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// scanUser reads the columns listed in userColumns.
func scanUser(s scanner) (*models.PersistedUser, error) {
	var (
		u          models.User
		sequence   int
		externalID sql.NullString
		deletedAt  sql.NullTime
	)

	err := s.Scan(&u.ID, &sequence, &externalID, &u.Username, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	u.ExternalID = externalID.String

	user := &models.PersistedUser{User: u}
	user.SetSequence(sequence)
	if deletedAt.Valid {
		user.SetDeletedAt(&deletedAt.Time)
	}
	return user, nil
}
