package utils

import (
	"crypto/rsa"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims are the session-token claims the identity provider issues.
// Subject is the provider-side user id; the profile claims feed /users/sync.
type IdentityClaims struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
	jwt.RegisteredClaims
}

// IdentityVerifier validates session tokens issued by the external identity
// provider. The service never issues tokens itself.
type IdentityVerifier struct {
	key *rsa.PublicKey
}

// NewIdentityVerifier parses the provider's PEM-encoded RSA public key.
func NewIdentityVerifier(pemKey string) (*IdentityVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemKey))
	if err != nil {
		return nil, err
	}
	return &IdentityVerifier{key: key}, nil
}

// Verify validates a token and returns its claims.
func (v *IdentityVerifier) Verify(tokenStr string) (*IdentityClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.key, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*IdentityClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}
	return claims, nil
}
