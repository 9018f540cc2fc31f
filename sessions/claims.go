package sessions

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/internal/utils"
)

// Claims is what the client can read from a JWT access token without the
// signing key. It is informational only; the backend remains the authority.
type Claims struct {
	Subject   string
	Issuer    string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero when the token carries no exp
}

// Expired reports whether the token's exp lies before now.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ParseClaims reads the claims of a JWT without verifying its signature.
// Opaque (non-JWT) tokens return ErrTokenMalformed.
func ParseClaims(rawToken string) (*Claims, error) {
	if strings.Count(rawToken, ".") != 2 {
		return nil, clienterrors.ErrTokenMalformed
	}
	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, clienterrors.Wrapf(clienterrors.ErrTokenMalformed, "[ParseClaims] %v", err)
	}
	mc, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, clienterrors.ErrTokenMalformed
	}

	claims := &Claims{}
	claims.Subject, _ = mc.GetSubject()
	claims.Issuer, _ = mc.GetIssuer()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}

	// Spring style "scope": "ROLE_A ROLE_B", or a plain "roles" array
	if scope, ok := mc["scope"].(string); ok {
		claims.Roles = strings.Fields(scope)
	} else if roles, ok := mc["roles"]; ok {
		claims.Roles = utils.ToStringSlice(roles)
	}
	return claims, nil
}
