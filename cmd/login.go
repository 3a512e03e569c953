package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/yagnikpt/tunebox/internal/server"
	"github.com/yagnikpt/tunebox/internal/services"
	"github.com/yagnikpt/tunebox/internal/shared"
	"github.com/yagnikpt/tunebox/internal/web"
)

const loginTimeout = 2 * time.Minute

// Login signs in through the identity provider, creates the local user on first sign-in and
// prints an API token.
//
// Starts a local HTTP server on the redirect URI, opens the browser for consent and waits for the callback.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	identity, err := services.NewIdentityService(r.config.Auth, r.httpClient)
	if err != nil {
		return err
	}
	tokens, err := web.NewTokenIssuer(r.config.Auth.JWTSecret, r.config.Auth.TokenTTL())
	if err != nil {
		return err
	}
	catalog, err := r.openCatalog()
	if err != nil {
		return err
	}

	profile, err := r.doOAuth(ctx, identity, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	user, created, err := catalog.Users.UpsertExternal(profile.ID, profile.Username, profile.Email, profile.AvatarURL)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	if created {
		r.logger.Info("user created", "user", user.ID(), "username", user.User.Username)
		if err := r.catalogChanged(ctx); err != nil {
			r.logger.Warn("failed to invalidate search cache", "error", err)
		}
	}

	token, err := tokens.Issue(user.User)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Signed in as %s (%s)", user.User.Username, user.ID())
	r.writePlain("API token (valid for %s):\n%s\n", r.config.Auth.TokenTTL(), token)
	return nil
}

// doOAuth runs the authorization code flow against identity and returns the signed-in profile.
func (r *Runner) doOAuth(ctx context.Context, identity *services.IdentityService, timeout time.Duration) (*services.Profile, error) {
	state, err := newState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	redirect, err := url.Parse(identity.RedirectURL())
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: auth.redirect_uri %q", shared.ErrInvalidConfig, identity.RedirectURL())
	}

	authURL := identity.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(identity, state, redirect.Path)
	router := server.NewBasicRouter()
	router.Use(server.RecoverMiddleware(r.logger))
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:              redirect.Host,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", redirect.Host)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	r.writePlain("→ Opening browser for %s sign-in...\n", identity.Name())
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	if timeout <= 0 {
		timeout = loginTimeout
	}
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		httpServer.Close()
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		httpServer.Close()
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Profile == nil {
		return nil, fmt.Errorf("%w: no profile received", shared.ErrAuthFailed)
	}
	return result.Profile, nil
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
