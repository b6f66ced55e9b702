package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenLifetime is the fixed validity window of a session token.
const TokenLifetime = time.Hour

var (
	// ErrInvalidToken is returned when a token is malformed or its signature does not verify.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token's expiry has passed.
	ErrExpiredToken = errors.New("token has expired")
)

// Identity is the authenticated caller carried by a session token.
type Identity struct {
	UserID   int64
	Username string
}

// Claims are the JWT claims of a session token. The subject holds the user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenService creates a TokenService signing with secret.
func NewTokenService(secret []byte, issuer string) *TokenService {
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenService{
		secret: key,
		issuer: issuer,
		now:    time.Now,
	}
}

// Issue signs a token for the user, valid for TokenLifetime.
func (s *TokenService) Issue(userID int64, username string) (string, time.Time, error) {
	// JWT numeric dates carry whole seconds only
	now := s.now().Truncate(time.Second)
	expiresAt := now.Add(TokenLifetime)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks the signature and expiry of token and returns its identity.
func (s *TokenService) Verify(token string) (Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID, Username: claims.Username}, nil
}
