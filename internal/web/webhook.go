package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/yagnikpt/tunebox/internal/shared"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Signature"

const maxWebhookBytes = 1 << 20

type emailAddress struct {
	EmailAddress string `json:"email_address"`
}

// identityEvent is the provider's webhook envelope.
type identityEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string         `json:"id"`
		Username       string         `json:"username"`
		EmailAddresses []emailAddress `json:"email_addresses"`
		ImageURL       string         `json:"image_url"`
	} `json:"data"`
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(secret string, body []byte, signature string) error {
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) == 0 {
		return shared.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return shared.ErrInvalidSignature
	}
	return nil
}

// handleIdentityWebhook creates users announced by the identity provider.
//
// user.created answers 201 for a new user and 200 when the user already exists. Other event
// types are acknowledged and ignored.
func (s *Server) handleIdentityWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhookSecret == "" {
		s.fail(w, r, fmt.Errorf("%w: auth.webhook_secret", shared.ErrMissingConfig))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if err := verifySignature(s.webhookSecret, body, r.Header.Get(SignatureHeader)); err != nil {
		s.logger.Warn("rejected webhook", "error", err)
		s.fail(w, r, err)
		return
	}

	var evt identityEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	if evt.Type != "user.created" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var email string
	if len(evt.Data.EmailAddresses) > 0 {
		email = evt.Data.EmailAddresses[0].EmailAddress
	}
	if email == "" {
		s.logger.Warn("webhook user has no email", "external_id", evt.Data.ID)
		writeError(w, http.StatusBadRequest, "no email found")
		return
	}

	user, created, err := s.catalog.Users.UpsertExternal(evt.Data.ID, evt.Data.Username, email, evt.Data.ImageURL)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if !created {
		writeJSON(w, http.StatusOK, map[string]any{"status": "exists", "user": user.User.Public()})
		return
	}

	s.logger.Info("user created from webhook", "user", user.ID(), "username", user.User.Username)
	s.catalogChanged(r.Context())
	writeJSON(w, http.StatusCreated, map[string]any{"status": "created", "user": user.User.Public()})
}
