package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIdentity is the client side of a member session: the bearer token sent to
// the group store and the member id it names.
//
// The token is only decoded here, not verified; the server verifies it on every call.
type TokenIdentity struct {
	token    string
	memberID string
}

// NewTokenIdentity decodes the member id from token.
func NewTokenIdentity(token string) (*TokenIdentity, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.MemberID == "" {
		return nil, ErrInvalidToken
	}
	return &TokenIdentity{token: token, memberID: claims.MemberID}, nil
}

// CurrentMemberID returns the member the token was issued to.
func (t *TokenIdentity) CurrentMemberID() string {
	return t.memberID
}

// Token returns the raw bearer token.
func (t *TokenIdentity) Token() string {
	return t.token
}
