package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	viper.Set("argon2.salt_length", 16)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 64*1024)
	viper.Set("argon2.threads", 4)
	viper.Set("argon2.key_length", 32)

	password := "testpassword"

	hashed, err := HashPassword(password)
	assert.NoError(t, err)
	assert.NotEmpty(t, hashed)

	assert.True(t, VerifyPassword(password, hashed))
	assert.False(t, VerifyPassword("wrongpassword", hashed))
	assert.False(t, VerifyPassword(password, "not-a-hash"))
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour, nil)

	t.Run("round trip", func(t *testing.T) {
		token, err := manager.Issue(42)
		require.NoError(t, err)

		claims, err := manager.Parse(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, "42", claims.Subject)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewTokenManager("other-secret", time.Hour, nil).Issue(42)
		require.NoError(t, err)

		_, err = manager.Parse(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewTokenManager("test-secret", time.Hour, nil)
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := expired.Issue(42)
		require.NoError(t, err)

		_, err = manager.Parse(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unexpected signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 42})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = manager.Parse(context.Background(), signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenManager_Revocation(t *testing.T) {
	client, mock := redismock.NewClientMock()
	now := time.Now().Truncate(time.Second)
	manager := NewTokenManager("test-secret", time.Hour, client)
	manager.now = func() time.Time { return now }

	token, err := manager.Issue(7)
	require.NoError(t, err)

	mock.ExpectExists("blacklist:" + mustClaims(t, manager, token).ID).SetVal(0)
	claims, err := manager.Parse(context.Background(), token)
	require.NoError(t, err)

	mock.ExpectSet("blacklist:"+claims.ID, "1", time.Hour).SetVal("OK")
	require.NoError(t, manager.Revoke(context.Background(), claims))

	mock.ExpectExists("blacklist:" + claims.ID).SetVal(1)
	_, err = manager.Parse(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	mock.ExpectExists("blacklist:" + claims.ID).SetErr(errors.New("connection reset"))
	_, err = manager.Parse(context.Background(), token)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenManager_RevokeWithoutRedis(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour, nil)
	token, err := manager.Issue(7)
	require.NoError(t, err)
	claims := mustClaims(t, manager, token)

	err = manager.Revoke(context.Background(), claims)
	assert.ErrorIs(t, err, ErrRevocationUnavailable)
}

// mustClaims decodes the token without touching Redis.
func mustClaims(t *testing.T, m *TokenManager, token string) *Claims {
	t.Helper()
	offline := NewTokenManager(string(m.secret), m.expiry, nil)
	offline.now = m.now
	claims, err := offline.Parse(context.Background(), token)
	require.NoError(t, err)
	return claims
}
