package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/go-chi/chi"

	"github.com/studymall/studymall/claims"
	gcontext "github.com/studymall/studymall/context"
	"github.com/studymall/studymall/models"
)

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

const minPasswordLength = 8

// Signup creates an account. The email must have been verified with a
// code issued through the verifications endpoint; the code is consumed
// here.
func (a *API) Signup(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	config := gcontext.GetConfig(ctx)
	log := getLogEntry(r)

	params := &signupRequest{}
	if err := json.NewDecoder(r.Body).Decode(params); err != nil {
		return badRequestError("Could not read signup parameters: %v", err)
	}

	params.Email = strings.TrimSpace(strings.ToLower(params.Email))
	if params.Email == "" || !strings.Contains(params.Email, "@") {
		return badRequestError("A valid email is required")
	}
	if len(params.Password) < minPasswordLength {
		return badRequestError("Password must be at least %d characters", minPasswordLength)
	}
	if params.Code == "" {
		return badRequestError("Verification code is required")
	}

	if err := models.VerifyEmailCode(a.db, params.Email, params.Code, config.Verification.MaxAttempts); err != nil {
		switch err {
		case models.ErrCodeInvalid:
			return badRequestError("Verification code does not match")
		case models.ErrCodeExpired:
			return badRequestError("Verification code has expired, request a new one")
		case models.ErrTooManyAttempts:
			return badRequestError("Too many failed attempts, request a new code")
		}
		return internalServerError("Error verifying code").WithInternalError(err)
	}

	existing, err := models.GetUserByEmail(a.db, params.Email)
	if err != nil {
		return internalServerError("Error during database query").WithInternalError(err)
	}
	if existing != nil {
		return conflictError("An account with this email already exists")
	}

	user, err := models.NewUser(params.Email, params.Name, params.Password)
	if err != nil {
		return internalServerError("Error creating account").WithInternalError(err)
	}
	if rsp := a.db.Create(user); rsp.Error != nil {
		return internalServerError("Error creating account").WithInternalError(rsp.Error)
	}

	log.WithField("user_id", user.ID).Info("account created")
	return sendJSON(w, http.StatusCreated, user)
}

// Login checks the credentials and hands out both a JWT and a server
// session cookie.
func (a *API) Login(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	config := gcontext.GetConfig(ctx)
	log := getLogEntry(r)

	params := &loginRequest{}
	if err := json.NewDecoder(r.Body).Decode(params); err != nil {
		return badRequestError("Could not read login parameters: %v", err)
	}

	user, err := models.GetUserByEmail(a.db, strings.TrimSpace(strings.ToLower(params.Email)))
	if err != nil {
		return internalServerError("Error during database query").WithInternalError(err)
	}
	if user == nil || !user.Authenticate(params.Password) {
		return unauthorizedError("Invalid email or password")
	}
	if !user.Active {
		return unauthorizedError("This account has been disabled")
	}

	session := models.NewSession(user.ID, config.Session.TTL)
	if rsp := a.db.Create(session); rsp.Error != nil {
		return internalServerError("Error creating session").WithInternalError(rsp.Error)
	}

	expiresAt := time.Now().Add(config.JWT.Expiry)
	token, err := issueToken(config.JWT.Secret, config.JWT.AdminGroupName, user, expiresAt)
	if err != nil {
		return internalServerError("Error issuing token").WithInternalError(err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.Session.CookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
	})

	log.WithField("user_id", user.ID).Info("user logged in")
	return sendJSON(w, http.StatusOK, &tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

// Logout tears down the server session, if one resolved the identity.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	config := gcontext.GetConfig(ctx)

	if sessionID := gcontext.GetSessionID(ctx); sessionID != "" {
		if err := models.DeleteSession(a.db, sessionID); err != nil {
			return internalServerError("Error deleting session").WithInternalError(err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func issueToken(secret, adminGroup string, user *models.User, expiresAt time.Time) (string, error) {
	c := &claims.JWTClaims{
		Email: user.Email,
		Name:  user.Name,
	}
	c.Subject = user.ID
	c.ExpiresAt = expiresAt.Unix()
	if user.Admin {
		c.AppMetaData = map[string]interface{}{
			"roles": []interface{}{adminGroup},
		}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// UserList is the back-office account listing.
func (a *API) UserList(w http.ResponseWriter, r *http.Request) error {
	query, err := parseUserQueryParams(a.db.Model(&models.User{}), r.URL.Query())
	if err != nil {
		return badRequestError("Bad parameters in query: %v", err)
	}

	offset, limit, err := paginate(w, r, query)
	if err != nil {
		return badRequestError("Bad Pagination Parameters: %v", err)
	}

	var users []models.User
	if rsp := query.Offset(offset).Limit(limit).Order("created_at desc").Find(&users); rsp.Error != nil {
		return internalServerError("Error during database query").WithInternalError(rsp.Error)
	}

	for i := range users {
		rsp := a.db.Model(&models.Purchase{}).
			Where("user_id = ? AND payment_state = ?", users[i].ID, models.PaidState).
			Count(&users[i].PurchaseCount)
		if rsp.Error != nil {
			return internalServerError("Error during database query").WithInternalError(rsp.Error)
		}
	}

	return sendJSON(w, http.StatusOK, users)
}

// UserView returns a single account.
func (a *API) UserView(w http.ResponseWriter, r *http.Request) error {
	user, err := a.getUserByParam(r)
	if err != nil {
		return err
	}

	rsp := a.db.Model(&models.Purchase{}).
		Where("user_id = ? AND payment_state = ?", user.ID, models.PaidState).
		Count(&user.PurchaseCount)
	if rsp.Error != nil {
		return internalServerError("Error during database query").WithInternalError(rsp.Error)
	}

	return sendJSON(w, http.StatusOK, user)
}

// UserDelete disables an account and removes its sessions. Purchases
// are kept for bookkeeping.
func (a *API) UserDelete(w http.ResponseWriter, r *http.Request) error {
	user, err := a.getUserByParam(r)
	if err != nil {
		return err
	}

	tx := a.db.Begin()
	if rsp := tx.Delete(user); rsp.Error != nil {
		tx.Rollback()
		return internalServerError("Error deleting user").WithInternalError(rsp.Error)
	}
	if rsp := tx.Delete(&models.Session{}, "user_id = ?", user.ID); rsp.Error != nil {
		tx.Rollback()
		return internalServerError("Error deleting user").WithInternalError(rsp.Error)
	}
	if rsp := tx.Commit(); rsp.Error != nil {
		return internalServerError("Error deleting user").WithInternalError(rsp.Error)
	}

	getLogEntry(r).WithField("user_id", user.ID).Info("user deleted")
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *API) getUserByParam(r *http.Request) (*models.User, error) {
	userID := chi.URLParam(r, "user_id")
	logEntrySetField(r, "user_id", userID)

	user, err := models.GetUser(a.db, userID)
	if err != nil {
		return nil, internalServerError("Error during database query").WithInternalError(err)
	}
	if user == nil {
		return nil, notFoundError("User not found")
	}
	return user, nil
}
