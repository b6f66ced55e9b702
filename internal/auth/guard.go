package auth

import (
	"errors"
	"strings"
)

var (
	// ErrUnauthenticated is returned when no credential was supplied.
	ErrUnauthenticated = errors.New("no credential supplied")
	// ErrForbidden is returned when a credential was supplied but is invalid or expired.
	ErrForbidden = errors.New("invalid or expired token")
)

// TokenVerifier verifies session tokens.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// Guard turns an Authorization header value into an authenticated identity.
type Guard struct {
	tokens TokenVerifier
}

func NewGuard(tokens TokenVerifier) *Guard {
	return &Guard{tokens: tokens}
}

// Authenticate expects "Bearer <token>". A missing header or token yields
// ErrUnauthenticated; any other scheme or a token that fails verification
// yields ErrForbidden, regardless of whether the signature or the expiry failed.
func (g *Guard) Authenticate(header string) (Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Identity{}, ErrUnauthenticated
	}

	scheme, token, _ := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !strings.EqualFold(scheme, "Bearer") {
		return Identity{}, ErrForbidden
	}
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	identity, err := g.tokens.Verify(token)
	if err != nil {
		return Identity{}, ErrForbidden
	}
	return identity, nil
}
