package api

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/sirupsen/logrus"

	"github.com/studymall/studymall/claims"
	gcontext "github.com/studymall/studymall/context"
	"github.com/studymall/studymall/models"
)

var bearerRegexp = regexp.MustCompile(`^(?:B|b)earer (\S+$)`)

const accessTokenCookieName = "access_token"

// identityStrategy inspects a single credential source. A nil context
// with a nil error means the source carried no credential and the next
// strategy should run. Resolution stops at the first strategy that
// returns a context or an error.
type identityStrategy func(w http.ResponseWriter, r *http.Request) (context.Context, error)

func (a *API) identityStrategies() []identityStrategy {
	return []identityStrategy{
		a.sessionCookieIdentity,
		a.tokenCookieIdentity,
		a.bearerTokenIdentity,
	}
}

// withIdentity resolves the caller's identity from the first strategy
// that finds a credential. Requests without credentials proceed
// anonymously, endpoints that need identity enforce it themselves.
func (a *API) withIdentity(w http.ResponseWriter, r *http.Request) (context.Context, error) {
	for _, strategy := range a.strategies {
		ctx, err := strategy(w, r)
		if err != nil {
			return nil, err
		}
		if ctx != nil {
			return ctx, nil
		}
	}

	getLogEntry(r).Info("Making unauthenticated request")
	return r.Context(), nil
}

func (a *API) sessionCookieIdentity(w http.ResponseWriter, r *http.Request) (context.Context, error) {
	ctx := r.Context()
	config := gcontext.GetConfig(ctx)

	cookie, err := r.Cookie(config.Session.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	session, err := models.GetSession(a.db, cookie.Value)
	if err != nil {
		return nil, internalServerError("Error during database query").WithInternalError(err)
	}
	if session == nil {
		// stale cookie, let the token strategies have a go
		return nil, nil
	}

	user, err := models.GetUser(a.db, session.UserID)
	if err != nil {
		return nil, internalServerError("Error during database query").WithInternalError(err)
	}
	if user == nil || !user.Active {
		return nil, unauthorizedError("Session belongs to an inactive user")
	}

	logEntrySetFields(r, logrus.Fields{
		"user_id":    user.ID,
		"session_id": session.ID,
	})

	ctx = gcontext.WithSessionID(ctx, session.ID)
	ctx = gcontext.WithUser(ctx, user)
	ctx = gcontext.WithUserID(ctx, user.ID)
	ctx = gcontext.WithAdminFlag(ctx, user.Admin)
	return ctx, nil
}

func (a *API) tokenCookieIdentity(w http.ResponseWriter, r *http.Request) (context.Context, error) {
	cookie, err := r.Cookie(accessTokenCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	return a.tokenIdentity(r, cookie.Value)
}

func (a *API) bearerTokenIdentity(w http.ResponseWriter, r *http.Request) (context.Context, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, nil
	}

	matches := bearerRegexp.FindStringSubmatch(authHeader)
	if len(matches) != 2 {
		return nil, unauthorizedError("Bad authentication header").WithInternalMessage("Invalid auth header format: %s", authHeader)
	}

	return a.tokenIdentity(r, matches[1])
}

func (a *API) tokenIdentity(r *http.Request, raw string) (context.Context, error) {
	ctx := r.Context()
	config := gcontext.GetConfig(ctx)

	token, err := jwt.ParseWithClaims(raw, &claims.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Name {
			return nil, fmt.Errorf("Unexpected signing method: %v", token.Method.Alg())
		}
		return []byte(config.JWT.Secret), nil
	})
	if err != nil {
		return nil, unauthorizedError("Invalid token").WithInternalError(err)
	}

	tokenClaims := token.Claims.(*claims.JWTClaims)
	isAdmin := tokenClaims.HasRole(config.JWT.AdminGroupName)

	logEntrySetFields(r, logrus.Fields{
		"claims_subject": tokenClaims.Subject,
		"claims_email":   tokenClaims.Email,
		"is_admin":       isAdmin,
	})

	ctx = gcontext.WithToken(ctx, token)
	ctx = gcontext.WithUserID(ctx, tokenClaims.Subject)
	ctx = gcontext.WithAdminFlag(ctx, isAdmin)
	return ctx, nil
}

func authRequired(w http.ResponseWriter, r *http.Request) (context.Context, error) {
	ctx := r.Context()
	if gcontext.GetUserID(ctx) == "" {
		return nil, unauthorizedError("This endpoint requires authentication")
	}

	return ctx, nil
}

func adminRequired(w http.ResponseWriter, r *http.Request) (context.Context, error) {
	ctx := r.Context()
	if gcontext.GetUserID(ctx) == "" || !gcontext.IsAdmin(ctx) {
		return nil, unauthorizedError("Admin permissions required")
	}

	logEntrySetField(r, "admin_id", gcontext.GetUserID(ctx))
	return ctx, nil
}

func hasOrderAccess(ctx context.Context, order *models.Order) bool {
	if gcontext.IsAdmin(ctx) {
		return true
	}
	return order.UserID == gcontext.GetUserID(ctx)
}
