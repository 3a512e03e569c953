// OAuth2 identity provider implementation of [Identity]
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/yagnikpt/tunebox/internal/shared"
	"golang.org/x/oauth2"
)

var defaultScopes = []string{"openid", "profile", "email"}

// userInfo accepts both the plain and the OpenID Connect field names.
type userInfo struct {
	ID                string `json:"id"`
	Sub               string `json:"sub"`
	Username          string `json:"username"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	AvatarURL         string `json:"avatar_url"`
	Picture           string `json:"picture"`
}

func (u userInfo) profile() *Profile {
	p := &Profile{ID: u.ID, Username: u.Username, Email: u.Email, AvatarURL: u.AvatarURL}
	if p.ID == "" {
		p.ID = u.Sub
	}
	if p.Username == "" {
		p.Username = u.PreferredUsername
	}
	if p.AvatarURL == "" {
		p.AvatarURL = u.Picture
	}
	return p
}

// IdentityService implements [Identity] with [oauth2] against configurable endpoints.
type IdentityService struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewIdentityService creates an identity service from the auth config.
//
// client is used for token exchange and profile requests; nil means [http.DefaultClient].
func NewIdentityService(cfg shared.AuthConfig, client *http.Client) (*IdentityService, error) {
	switch {
	case cfg.ClientID == "":
		return nil, fmt.Errorf("%w: auth.client_id", shared.ErrMissingConfig)
	case cfg.ClientSecret == "":
		return nil, fmt.Errorf("%w: auth.client_secret", shared.ErrMissingConfig)
	case cfg.AuthURL == "" || cfg.TokenURL == "":
		return nil, fmt.Errorf("%w: auth.auth_url and auth.token_url", shared.ErrMissingConfig)
	case cfg.UserInfoURL == "":
		return nil, fmt.Errorf("%w: auth.userinfo_url", shared.ErrMissingConfig)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &IdentityService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  client,
	}, nil
}

func (s *IdentityService) Name() string {
	return "identity"
}

// RedirectURL returns the callback URL registered with the provider.
func (s *IdentityService) RedirectURL() string {
	return s.config.RedirectURL
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *IdentityService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

func (s *IdentityService) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// Exchange trades an authorization code for a token.
func (s *IdentityService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	token, err := s.config.Exchange(s.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Profile retrieves the authenticated user's profile from the userinfo endpoint.
func (s *IdentityService) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	if token == nil || token.AccessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.config.Client(s.clientContext(ctx), token)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, shared.ErrTokenExpired
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: userinfo status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	profile := info.profile()
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: userinfo has no subject", shared.ErrAuthFailed)
	}
	return profile, nil
}

// Login exchanges code and fetches the resulting user's profile.
func (s *IdentityService) Login(ctx context.Context, code string) (*Profile, error) {
	token, err := s.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.Profile(ctx, token)
}
