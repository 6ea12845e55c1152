package context

import (
	"context"

	jwt "github.com/dgrijalva/jwt-go"

	"github.com/studymall/studymall/assetstores"
	"github.com/studymall/studymall/claims"
	"github.com/studymall/studymall/conf"
	"github.com/studymall/studymall/mailer"
	"github.com/studymall/studymall/models"
	"github.com/studymall/studymall/payments"
)

type contextKey string

func (c contextKey) String() string {
	return "api context key " + string(c)
}

const (
	tokenKey           = contextKey("jwt")
	configKey          = contextKey("config")
	requestIDKey       = contextKey("request_id")
	adminFlagKey       = contextKey("is_admin")
	mailerKey          = contextKey("mailer")
	assetStoreKey      = contextKey("asset_store")
	paymentProviderKey = contextKey("payment-provider")
	sessionIDKey       = contextKey("session_id")
	userIDKey          = contextKey("user_id")
	userKey            = contextKey("user")
	orderIDKey         = contextKey("order_id")
	productIDKey       = contextKey("product_id")
)

// WithConfig adds the service configuration to the context.
func WithConfig(ctx context.Context, config *conf.Configuration) context.Context {
	return context.WithValue(ctx, configKey, config)
}

// GetConfig reads the service configuration from the context.
func GetConfig(ctx context.Context) *conf.Configuration {
	obj := ctx.Value(configKey)
	if obj == nil {
		return nil
	}
	return obj.(*conf.Configuration)
}

// WithToken adds the JWT token to the context.
func WithToken(ctx context.Context, token *jwt.Token) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// GetToken reads the JWT token from the context.
func GetToken(ctx context.Context) *jwt.Token {
	obj := ctx.Value(tokenKey)
	if obj == nil {
		return nil
	}
	return obj.(*jwt.Token)
}

// GetClaims reads the claims contained within the token in the context.
func GetClaims(ctx context.Context) *claims.JWTClaims {
	token := GetToken(ctx)
	if token == nil {
		return nil
	}
	return token.Claims.(*claims.JWTClaims)
}

// WithRequestID adds the provided request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID reads the request ID from the context.
func GetRequestID(ctx context.Context) string {
	obj := ctx.Value(requestIDKey)
	if obj == nil {
		return ""
	}
	return obj.(string)
}

// WithMailer adds the mailer to the context.
func WithMailer(ctx context.Context, m mailer.Mailer) context.Context {
	return context.WithValue(ctx, mailerKey, m)
}

// GetMailer reads the mailer from the context.
func GetMailer(ctx context.Context) mailer.Mailer {
	obj := ctx.Value(mailerKey)
	if obj == nil {
		return nil
	}
	return obj.(mailer.Mailer)
}

// WithAssetStore adds the asset store to the context.
func WithAssetStore(ctx context.Context, store assetstores.Store) context.Context {
	return context.WithValue(ctx, assetStoreKey, store)
}

// GetAssetStore reads the asset store from the context.
func GetAssetStore(ctx context.Context) assetstores.Store {
	obj := ctx.Value(assetStoreKey)
	if obj == nil {
		return nil
	}
	return obj.(assetstores.Store)
}

// WithPaymentProviders adds the payment providers to the context.
func WithPaymentProviders(ctx context.Context, provs map[string]payments.Provider) context.Context {
	return context.WithValue(ctx, paymentProviderKey, provs)
}

// GetPaymentProviders reads the payment providers from the context.
func GetPaymentProviders(ctx context.Context) map[string]payments.Provider {
	provs, _ := ctx.Value(paymentProviderKey).(map[string]payments.Provider)
	return provs
}

// WithAdminFlag adds a flag indicating admin status to the context.
func WithAdminFlag(ctx context.Context, isAdmin bool) context.Context {
	return context.WithValue(ctx, adminFlagKey, isAdmin)
}

// IsAdmin reads the admin flag from the context.
func IsAdmin(ctx context.Context) bool {
	obj := ctx.Value(adminFlagKey)
	if obj == nil {
		return false
	}
	return obj.(bool)
}

// WithSessionID records which server session resolved the identity.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// GetSessionID reads the resolved session id, if any.
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// GetUserID reads the user ID from the context.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithUserID adds the user ID to the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUser reads the user from the context.
func GetUser(ctx context.Context) *models.User {
	u := ctx.Value(userKey)
	if u == nil {
		return nil
	}
	return u.(*models.User)
}

// WithUser adds the user to the context.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetOrderID reads the order ID from the context.
func GetOrderID(ctx context.Context) string {
	id, _ := ctx.Value(orderIDKey).(string)
	return id
}

// WithOrderID adds the order ID to the context.
func WithOrderID(ctx context.Context, orderID string) context.Context {
	return context.WithValue(ctx, orderIDKey, orderID)
}

// GetProductID reads the product ID from the context.
func GetProductID(ctx context.Context) string {
	id, _ := ctx.Value(productIDKey).(string)
	return id
}

// WithProductID adds the product ID to the context.
func WithProductID(ctx context.Context, productID string) context.Context {
	return context.WithValue(ctx, productIDKey, productID)
}
