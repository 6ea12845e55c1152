package api

import (
	"encoding/json"
	"net/http"
	"strings"

	gcontext "github.com/studymall/studymall/context"
	"github.com/studymall/studymall/models"
)

type verificationRequest struct {
	Email string `json:"email"`
}

// VerificationCreate issues a signup code and mails it. Requesting a
// new code invalidates any outstanding one for the same address.
func (a *API) VerificationCreate(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	config := gcontext.GetConfig(ctx)
	log := getLogEntry(r)

	params := &verificationRequest{}
	if err := json.NewDecoder(r.Body).Decode(params); err != nil {
		return badRequestError("Could not read verification parameters: %v", err)
	}

	params.Email = strings.TrimSpace(strings.ToLower(params.Email))
	if params.Email == "" || !strings.Contains(params.Email, "@") {
		return badRequestError("A valid email is required")
	}

	existing, err := models.GetUserByEmail(a.db, params.Email)
	if err != nil {
		return internalServerError("Error during database query").WithInternalError(err)
	}
	if existing != nil {
		return conflictError("An account with this email already exists")
	}

	code, err := models.CreateVerificationCode(a.db, params.Email, config.Verification.CodeTTL)
	if err != nil {
		return internalServerError("Error creating verification code").WithInternalError(err)
	}

	if mailer := gcontext.GetMailer(ctx); mailer != nil {
		if err := mailer.VerificationMail(params.Email, code.Code); err != nil {
			log.WithError(err).Error("failed to send verification mail")
			return internalServerError("Error sending verification mail")
		}
	}

	log.WithField("email", params.Email).Info("verification code issued")
	return sendJSON(w, http.StatusCreated, map[string]interface{}{
		"email":      code.Email,
		"expires_at": code.ExpiresAt,
	})
}
