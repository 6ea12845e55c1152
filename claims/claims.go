package claims

import (
	jwt "github.com/dgrijalva/jwt-go"
)

// JWTClaims represents the token claims for an authenticated request.
// Subject carries the user id.
type JWTClaims struct {
	Email        string                 `json:"email"`
	Name         string                 `json:"name,omitempty"`
	AppMetaData  map[string]interface{} `json:"app_metadata"`
	UserMetaData map[string]interface{} `json:"user_metadata"`
	jwt.StandardClaims
}

// HasRole reports whether the app metadata lists the given role.
func (c *JWTClaims) HasRole(role string) bool {
	if c.AppMetaData == nil {
		return false
	}
	roles, ok := c.AppMetaData["roles"]
	if !ok {
		return false
	}
	roleStrings, _ := roles.([]interface{})
	for _, data := range roleStrings {
		if r, _ := data.(string); r == role {
			return true
		}
	}
	return false
}
