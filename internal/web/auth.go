package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/shared"
)

const (
	tokenIssuer     = "tunebox"
	stateCookieName = "tunebox_oauth_state"
)

// Claims are the API token claims.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 API tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. An empty secret is a configuration error.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: auth.jwt_secret", shared.ErrMissingConfig)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for user.
func (t *TokenIssuer) Issue(user models.User) (string, error) {
	now := t.now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns its claims.
func (t *TokenIssuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, shared.ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	case claims.UserID == "":
		return nil, fmt.Errorf("%w: token has no user", shared.ErrNotAuthenticated)
	}
	return claims, nil
}

type ctxClaimsKey struct{}

// ClaimsFrom returns the authenticated caller's claims, if any.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ctxClaimsKey{}).(*Claims)
	return claims, ok && claims != nil
}

func viewerID(r *http.Request) string {
	if claims, ok := ClaimsFrom(r.Context()); ok {
		return claims.UserID
	}
	return ""
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func (s *Server) authenticate(r *http.Request) (*Claims, error) {
	if s.tokens == nil {
		return nil, fmt.Errorf("%w: token issuer not configured", shared.ErrServiceUnavailable)
	}
	raw, ok := bearerToken(r)
	if !ok {
		return nil, fmt.Errorf("%w: missing bearer token", shared.ErrNotAuthenticated)
	}
	return s.tokens.Parse(raw)
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.authenticate(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxClaimsKey{}, claims)))
	})
}

// optionalAuth attaches claims when a valid bearer token is present and otherwise serves the request anonymously.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := bearerToken(r); ok {
			if claims, err := s.authenticate(r); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxClaimsKey{}, claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// handleLogin redirects to the identity provider, remembering state in a cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.identity == nil || s.tokens == nil {
		s.fail(w, r, fmt.Errorf("%w: identity provider not configured", shared.ErrServiceUnavailable))
		return
	}

	state, err := randomState()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	http.Redirect(w, r, s.identity.AuthURL(state), http.StatusFound)
}

// handleCallback completes the provider login and returns an API token.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.identity == nil || s.tokens == nil {
		s.fail(w, r, fmt.Errorf("%w: identity provider not configured", shared.ErrServiceUnavailable))
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	query := r.URL.Query()
	if err != nil || cookie.Value == "" || cookie.Value != query.Get("state") {
		s.fail(w, r, fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/auth", MaxAge: -1})

	token, err := s.identity.Exchange(r.Context(), query.Get("code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	profile, err := s.identity.Profile(r.Context(), token)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	user, created, err := s.catalog.Users.UpsertExternal(profile.ID, profile.Username, profile.Email, profile.AvatarURL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if created {
		s.catalogChanged(r.Context())
	}

	apiToken, err := s.tokens.Issue(user.User)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": apiToken,
		"user":  user.User.Public(),
	})
}
