package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("secret", time.Minute)

	tok, err := m.GenerateAccessToken(42, "a@b.io")
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(tok)
	require.NoError(t, err)
	require.Equal(t, "a@b.io", claims.Email)

	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.NotEmpty(t, claims.ID)
}

func TestManager_Expired(t *testing.T) {
	m := NewManager("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issued }

	tok, err := m.GenerateAccessToken(1, "a@b.io")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.VerifyAccessToken(tok)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestManager_WrongSecret(t *testing.T) {
	tok, err := NewManager("one", time.Minute).GenerateAccessToken(1, "a@b.io")
	require.NoError(t, err)

	_, err = NewManager("two", time.Minute).VerifyAccessToken(tok)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestManager_RejectsOtherTokenTypes(t *testing.T) {
	now := time.Now()
	claims := Claims{
		Email:     "a@b.io",
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewManager("secret", time.Minute).VerifyAccessToken(tok)
	require.ErrorIs(t, err, ErrTokenType)
}

func TestManager_RejectsNonNumericSubject(t *testing.T) {
	claims := Claims{
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "abc",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewManager("secret", time.Minute).VerifyAccessToken(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}
