package services

import (
	"context"

	"golang.org/x/oauth2"
)

// Identity defines the interface for an OAuth2 identity provider that signs tunebox users in.
type Identity interface {
	// AuthURL returns the provider consent page URL carrying state.
	AuthURL(state string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Profile fetches the signed-in user's profile with token.
	Profile(ctx context.Context, token *oauth2.Token) (*Profile, error)

	// Name returns the provider name shown to users.
	Name() string
}

// Profile is the provider's view of a user.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}
