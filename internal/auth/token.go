package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

var (
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenRevoked          = errors.New("token has been revoked")
	// ErrRevocationUnavailable is returned by Revoke when no blacklist store is configured.
	ErrRevocationUnavailable = errors.New("token revocation unavailable")
)

const blacklistPrefix = "blacklist:"

// Claims carried by access tokens. Subject holds the user id.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 access tokens. Revoked token ids are
// kept in Redis until the token would have expired.
type TokenManager struct {
	secret []byte
	expiry time.Duration
	redis  *redis.Client
	now    func() time.Time
}

func NewTokenManager(secret string, expiry time.Duration, redisClient *redis.Client) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		expiry: expiry,
		redis:  redisClient,
		now:    time.Now,
	}
}

// NewTokenManagerFromConfig reads jwt.secret_key and jwt.expiry_hours.
func NewTokenManagerFromConfig(redisClient *redis.Client) *TokenManager {
	viper.SetDefault("jwt.expiry_hours", 24)
	expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
	return NewTokenManager(viper.GetString("jwt.secret_key"), expiry, redisClient)
}

func (m *TokenManager) Issue(userID int64) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *TokenManager) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	if m.redis != nil {
		revoked, err := m.redis.Exists(ctx, blacklistPrefix+claims.ID).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check token blacklist: %w", err)
		}
		if revoked > 0 {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// Revoke blacklists the token id for the rest of its lifetime.
func (m *TokenManager) Revoke(ctx context.Context, claims *Claims) error {
	if m.redis == nil {
		return ErrRevocationUnavailable
	}

	ttl := m.expiry
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(m.now())
	}
	if ttl <= 0 {
		return nil
	}

	return m.redis.Set(ctx, blacklistPrefix+claims.ID, "1", ttl).Err()
}
