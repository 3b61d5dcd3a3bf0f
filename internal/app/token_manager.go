package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

const (
	timeFormat  = "2006-01-02 15:04:05"
	tokenPrefix = "sk-grdbk-"
)

type TokenManager struct {
	redis       *redis.Client
	keyTemplate string
	now         func() time.Time
}

func NewTokenManager(redis *redis.Client, keyTemplate string) *TokenManager {
	return &TokenManager{redis: redis, keyTemplate: keyTemplate, now: time.Now}
}

func generateToken() (string, error) {
	randomBytes := make([]byte, 12)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return tokenPrefix + hex.EncodeToString(randomBytes), nil
}

// FetchOrCreateUserToken returns the API token of userID, issuing one on
// first use. The boolean reports whether the token was just created.
// Concurrent callers for the same user agree on a single token.
func (tm *TokenManager) FetchOrCreateUserToken(ctx context.Context, userID string) (*models.TokenInfo, bool, error) {
	key := tokenKey(tm.keyTemplate, userID)

	candidate, err := generateToken()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate token: %w", err)
	}

	stamp := tm.now().UTC().Format(timeFormat)
	var created *redis.BoolCmd
	var values *redis.MapStringStringCmd
	_, err = tm.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.HSetNX(ctx, key, "token", candidate)
		pipe.HSetNX(ctx, key, "created_dttm_utc", stamp)
		pipe.HIncrBy(ctx, key, "request_count", 1)
		pipe.HSet(ctx, key, "last_request_dttm_utc", stamp)
		values = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to issue token: %w", err)
	}

	info := tokenInfo(userID, values.Val())
	return info, created.Val(), nil
}

func tokenInfo(userID string, values map[string]string) *models.TokenInfo {
	lastReqTime, _ := time.Parse(timeFormat, values["last_request_dttm_utc"])
	createdTime, _ := time.Parse(timeFormat, values["created_dttm_utc"])
	reqCount, _ := strconv.Atoi(values["request_count"])

	return &models.TokenInfo{
		UserID:          userID,
		Token:           values["token"],
		RequestCount:    reqCount,
		LastRequestTime: lastReqTime,
		CreatedTime:     createdTime,
	}
}

// RevokeUserToken deletes the token of userID. It reports whether one existed.
func (tm *TokenManager) RevokeUserToken(ctx context.Context, userID string) (bool, error) {
	deleted, err := tm.redis.Del(ctx, tokenKey(tm.keyTemplate, userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to revoke token: %w", err)
	}
	return deleted > 0, nil
}
