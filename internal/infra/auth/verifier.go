package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
}

// HMACVerifier validates HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(_ context.Context, raw string) (Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	return identityFrom(claims)
}

// JWKSVerifier validates session tokens from the hosted auth service
// against its published key set.
type JWKSVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewJWKSVerifier(ctx context.Context, issuer, jwksURL string) *JWKSVerifier {
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	return &JWKSVerifier{
		// Session tokens carry no fixed audience.
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{SkipClientIDCheck: true}),
	}
}

func (v *JWKSVerifier) Verify(ctx context.Context, raw string) (Identity, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	var claims map[string]interface{}
	if err := tok.Claims(&claims); err != nil {
		return Identity{}, ErrInvalidToken
	}
	return identityFrom(claims)
}

func identityFrom(claims map[string]interface{}) (Identity, error) {
	var id Identity
	if sub, ok := claims["sub"].(string); ok {
		id.UserID = sub
	}
	if id.UserID == "" {
		if uid, ok := claims["user_id"].(string); ok {
			id.UserID = uid
		}
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if id.UserID == "" {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}
