package models

import (
	"time"
)

// TokenInfo is an API token issued to a gradebook user.
type TokenInfo struct {
	UserID          string    `json:"user_id"`
	Token           string    `json:"token"`
	RequestCount    int       `json:"request_count"`
	LastRequestTime time.Time `json:"last_request_dttm_utc"`
	CreatedTime     time.Time `json:"created_dttm_utc"`
}
