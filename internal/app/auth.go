package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"
)

type Auth struct {
	enabled     bool
	redis       *redis.Client
	keyTemplate string
	tokenHeader string
}

func NewAuth(config *Config) (*Auth, error) {
	if !config.Auth.Enabled {
		return &Auth{enabled: false}, nil
	}

	opt, err := redis.ParseURL(config.Auth.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newAuth(client, config.Auth.TokenKeyTemplate, config.Auth.TokenHeader), nil
}

func newAuth(client *redis.Client, keyTemplate, tokenHeader string) *Auth {
	return &Auth{
		enabled:     true,
		redis:       client,
		keyTemplate: keyTemplate,
		tokenHeader: tokenHeader,
	}
}

func (a *Auth) Enabled() bool {
	return a.enabled
}

func (a *Auth) TokenHeader() string {
	return a.tokenHeader
}

// Tokens issues tokens into the same keys ValidateToken reads. It is nil when
// auth is disabled.
func (a *Auth) Tokens() *TokenManager {
	if !a.enabled {
		return nil
	}
	return NewTokenManager(a.redis, a.keyTemplate)
}

func (a *Auth) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

func tokenKey(keyTemplate, userID string) string {
	return strings.NewReplacer("{user}", userID).Replace(keyTemplate)
}

// ValidateToken checks token against the one issued to userID.
func (a *Auth) ValidateToken(ctx context.Context, userID, token string) error {
	if !a.enabled {
		return nil
	}
	if userID == "" || token == "" {
		return fmt.Errorf("missing credentials")
	}

	key := tokenKey(a.keyTemplate, userID)
	fields, err := a.redis.HGetAll(ctx, key).Result()
	if err != nil {
		logger.Debug.Printf("Redis error: %v", err)
		return fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		logger.Debug.Printf("Token not found for key: %s", key)
		return fmt.Errorf("token not found")
	}

	if fields["token"] != token {
		logger.Debug.Printf("Token mismatch for user %s and what's found in %s", userID, key)
		return fmt.Errorf("invalid token")
	}

	return nil
}
