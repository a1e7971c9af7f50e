// Package auth reads caller identity from bearer tokens and asks the accounts
// service whether a token is still valid.
//
// DecodeIdentity never checks a signature and must not be used to decide
// whether a caller is trusted; Verifier.Verify is the only authority.
package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/cuongbtq/video-gateway/internal/api/domain"
)

const (
	// HeaderAuthorization carries the caller token
	HeaderAuthorization = "Authorization"

	contextKeyToken = "auth_token"
	bearerPrefix    = "Bearer "
)

// Identity is the caller as described by the token claims.
type Identity struct {
	// UserID is the raw user_id claim: a json.Number or a string
	UserID any
	Claims jwt.MapClaims
}

var parser = jwt.NewParser(jwt.WithJSONNumber())

// TokenFromHeader strips an optional "Bearer " prefix from an Authorization
// header value.
func TokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return header
}

// DecodeIdentity reads the claims section of token without verifying it.
func DecodeIdentity(token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(TokenFromHeader(token), claims); err != nil {
		return nil, &domain.TokenDecodeError{Err: err}
	}

	userID, ok := claims["user_id"]
	if !ok || userID == nil || userID == "" {
		return nil, &domain.TokenDecodeError{MissingUserID: true}
	}

	return &Identity{UserID: userID, Claims: claims}, nil
}

// SetToken stores the verified token on the request context.
func SetToken(c *gin.Context, token string) {
	c.Set(contextKeyToken, token)
}

// TokenFromContext returns the token stored by the auth middleware, falling
// back to the Authorization header.
func TokenFromContext(c *gin.Context) string {
	if v, ok := c.Get(contextKeyToken); ok {
		if token, ok := v.(string); ok {
			return token
		}
	}
	return TokenFromHeader(c.GetHeader(HeaderAuthorization))
}
