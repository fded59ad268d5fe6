// Package identity verifies bearer tokens minted by the external
// identity provider. Tandem never issues these tokens itself; it only
// checks the signature and standard claims, then maps the subject to a
// local user by email.
package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid identity token")

// Claims are the provider claims Tandem cares about.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens against a shared secret configured with
// the identity provider.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewVerifier(secret, issuer, audience string) *Verifier {
	return &Verifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

// Configured returns true if a shared secret is set.
func (v *Verifier) Configured() bool {
	return len(v.secret) > 0
}

// Verify parses and validates a bearer token, returning its claims.
// Expired, mis-signed, or mis-addressed tokens return ErrInvalidToken.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if !v.Configured() {
		return nil, fmt.Errorf("identity verifier not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Email == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
