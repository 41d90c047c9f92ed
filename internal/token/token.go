// Package token decodes JWT claims for display and routing decisions. The
// client never verifies signatures; the backend is the only party that can.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed reports a token that does not parse as a three-segment JWT.
var ErrMalformed = errors.New("malformed token")

// Claims is the decoded JWT payload.
type Claims map[string]any

var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode splits and base64url-decodes the payload segment of a compact JWT.
// Tokens with a segment count other than three, or with undecodable
// payloads, yield ErrMalformed.
func Decode(tok string) (Claims, error) {
	if tok == "" || len(strings.Split(tok, ".")) != 3 {
		return nil, ErrMalformed
	}
	mapClaims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tok, mapClaims); err != nil {
		return nil, ErrMalformed
	}
	return Claims(mapClaims), nil
}

// IsExpired reports whether the token is absent, undecodable, or carries an
// exp claim at or before now. A decodable token without exp is treated as
// expired as well; the platform always issues one.
func IsExpired(tok string, now time.Time) bool {
	claims, err := Decode(tok)
	if err != nil {
		return true
	}
	exp, err := jwt.MapClaims(claims).GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return !now.Before(exp.Time)
}

// Roles extracts the role list from claims, preferring "roles" and falling
// back to "authorities".
func (c Claims) Roles() []string {
	for _, key := range []string{"roles", "authorities"} {
		raw, ok := c[key]
		if !ok {
			continue
		}
		list, ok := raw.([]any)
		if !ok {
			continue
		}
		roles := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	}
	return nil
}

func (c Claims) str(key string) string {
	s, _ := c[key].(string)
	return s
}

// Identity is the display-oriented view of the authenticated user carried in
// the token payload.
type Identity struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Roles     []string
}

// FullName joins the name claims, falling back to the email when absent.
func (i Identity) FullName() string {
	if i.FirstName != "" && i.LastName != "" {
		return i.FirstName + " " + i.LastName
	}
	return i.Email
}

// IdentityFrom decodes the current user's identity out of a token.
func IdentityFrom(tok string) (Identity, bool) {
	claims, err := Decode(tok)
	if err != nil {
		return Identity{}, false
	}
	id := claims.str("sub")
	if id == "" {
		id = claims.str("userId")
	}
	return Identity{
		ID:        id,
		Email:     claims.str("email"),
		FirstName: claims.str("firstName"),
		LastName:  claims.str("lastName"),
		Roles:     claims.Roles(),
	}, true
}

// IsAdmin reports whether any role marks an administrator.
func IsAdmin(roles []string) bool {
	for _, role := range roles {
		switch role {
		case "ADMIN", "ROLE_ADMIN", "admin":
			return true
		}
	}
	return false
}
