package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(secret string, now time.Time) *TokenService {
	s := NewTokenService([]byte(secret), "tasktracker")
	s.now = func() time.Time { return now }
	return s
}

func TestTokenService(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService("test-secret", now)

	token, expiresAt, err := svc.Issue(42, "alice")
	require.NoError(t, err)
	assert.Equal(t, now.Add(TokenLifetime), expiresAt)

	tests := []struct {
		name    string
		verify  *TokenService
		token   string
		want    Identity
		wantErr error
	}{
		{
			name:   "valid",
			verify: svc,
			token:  token,
			want:   Identity{UserID: 42, Username: "alice"},
		},
		{
			name:   "just before expiry",
			verify: newTestTokenService("test-secret", now.Add(TokenLifetime-time.Second)),
			token:  token,
			want:   Identity{UserID: 42, Username: "alice"},
		},
		{
			name:    "expired",
			verify:  newTestTokenService("test-secret", now.Add(TokenLifetime+time.Second)),
			token:   token,
			wantErr: ErrExpiredToken,
		},
		{
			name:    "wrong secret",
			verify:  newTestTokenService("other-secret", now),
			token:   token,
			wantErr: ErrInvalidToken,
		},
		{
			name:    "tampered",
			verify:  svc,
			token:   token[:len(token)-2] + flip(token[len(token)-2:]),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "garbage",
			verify:  svc,
			token:   "abc.def.ghi",
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.verify.Verify(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenServiceRejectsForeignTokens(t *testing.T) {
	now := time.Now()
	svc := newTestTokenService("test-secret", now)

	sign := func(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}
	base := Claims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tasktracker",
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}

	t.Run("unsigned", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, base)
		_, err := svc.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		claims := base
		claims.Issuer = "someone-else"
		_, err := svc.Verify(sign(t, jwt.SigningMethodHS256, []byte("test-secret"), claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no expiry", func(t *testing.T) {
		claims := base
		claims.ExpiresAt = nil
		_, err := svc.Verify(sign(t, jwt.SigningMethodHS256, []byte("test-secret"), claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("non numeric subject", func(t *testing.T) {
		claims := base
		claims.Subject = "alice"
		_, err := svc.Verify(sign(t, jwt.SigningMethodHS256, []byte("test-secret"), claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

// flip changes the signature characters without leaving the base64url alphabet.
func flip(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == 'A' {
			b.WriteRune('B')
		} else {
			b.WriteRune('A')
		}
	}
	return b.String()
}
