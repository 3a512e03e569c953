package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/yagnikpt/tunebox/internal/shared"
)

// User is an account federated from the identity provider.
type User struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"-"`
	Username   string    `json:"username"`
	Email      string    `json:"email,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Public returns a copy without contact details, for rendering to other users.
func (u User) Public() User {
	u.Email = ""
	return u
}

// PersistedUser implements [Model] for [User] rows.
type PersistedUser struct {
	lifecycle
	User User
}

// NewUser creates a [PersistedUser] with timestamps set to now.
//
// An empty username falls back to the local part of the email.
func NewUser(sequence int, externalID, username, email string) *PersistedUser {
	now := time.Now()
	if strings.TrimSpace(username) == "" {
		username = shared.UsernameFromEmail(email)
	}
	return &PersistedUser{
		lifecycle: lifecycle{sequence: sequence},
		User: User{
			ExternalID: externalID,
			Username:   username,
			Email:      email,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
}

func (u *PersistedUser) ID() string               { return u.User.ID }
func (u *PersistedUser) CreatedAt() time.Time     { return u.User.CreatedAt }
func (u *PersistedUser) UpdatedAt() time.Time     { return u.User.UpdatedAt }
func (u *PersistedUser) SetID(id string)          { u.User.ID = id }
func (u *PersistedUser) SetUpdatedAt(t time.Time) { u.User.UpdatedAt = t }

// Validate requires an id, a username and a well-formed email.
func (u *PersistedUser) Validate() error {
	if u.User.ID == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(u.User.Username) == "" {
		return fmt.Errorf("%w: username is required", shared.ErrInvalidInput)
	}
	if u.User.Email == "" {
		return fmt.Errorf("%w: email is required", shared.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(u.User.Email); err != nil {
		return fmt.Errorf("%w: invalid email %q", shared.ErrInvalidInput, u.User.Email)
	}
	return nil
}
