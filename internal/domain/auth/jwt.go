// Package auth turns bearer tokens into actors. Role resolution happens
// upstream (the identity provider signs the role into the token); this
// package only verifies the signature and shapes the claims.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mecanix/internal/core/reqctx"
)

// Claims is the JWT payload this service understands.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
}

// JWTValidator verifies HMAC-signed tokens.
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a validator for tokens signed with secret.
// issuer is optional; when set, tokens from other issuers are rejected.
func NewJWTValidator(secret string, issuer string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret), issuer: issuer}
}

// ValidateToken verifies the token and returns the actor it describes.
func (v *JWTValidator) ValidateToken(tokenString string) (*reqctx.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	role := reqctx.Role(claims.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return &reqctx.Actor{
		SubjectID: claims.Subject,
		Role:      role,
		Email:     claims.Email,
	}, nil
}

// IssueToken signs a token for the actor, used by tests and local
// tooling. Production tokens come from the identity provider.
func (v *JWTValidator) IssueToken(actor reqctx.Actor, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.SubjectID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:  string(actor.Role),
		Email: actor.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
