package server

import (
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/yagnikpt/tunebox/internal/services"
	"github.com/yagnikpt/tunebox/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultCallbackPath is used when the redirect URL has no path.
const DefaultCallbackPath = "/callback"

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Signed in to tunebox</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #121212; color: #eee; }
        .container { text-align: center; padding: 2rem; }
        h1 { color: #7c5cff; margin: 0 0 1rem 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Signed in as {{.Username}}</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`))

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token   *oauth2.Token
	Profile *services.Profile
	err     error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles the authorization code callback of an [services.Identity] provider.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	identity    services.Identity
	state       string
	path        string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a new OAuth handler serving path, validating state on the callback.
// The state token should be cryptographically random.
func NewOAuthHandler(identity services.Identity, state, path string) *OAuthHandler {
	if path == "" {
		path = DefaultCallbackPath
	}
	return &OAuthHandler{
		identity:   identity,
		state:      state,
		path:       path,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the OAuth callback request.
//
// Validates state, exchanges the code, fetches the profile and sends the outcome through the
// result channel. Only the first callback is processed.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, query.Get("error"), query.Get("error_description"))
		h.Send(OAuthResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.identity.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusBadGateway)
		return
	}

	profile, err := h.identity.Profile(r.Context(), token)
	if err != nil {
		h.Send(OAuthResult{Token: token, err: fmt.Errorf("failed to fetch profile: %w", err)})
		http.Error(w, "Failed to fetch profile", http.StatusBadGateway)
		return
	}

	h.Send(OAuthResult{Token: token, Profile: profile})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	successPage.Execute(w, profile)
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
