package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UnlockRequest presents the shared kiosk secret.
type UnlockRequest struct {
	Secret  string `json:"secret" validate:"required"`
	Station string `json:"station" validate:"omitempty,max=64"`
	IP      string `json:"-"`
}

// UnlockResponse returns the issued session token.
type UnlockResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	Station     string    `json:"station"`
}

// SessionClaims is the JWT payload of an unlocked kiosk session.
type SessionClaims struct {
	Station string `json:"station"`
	jwt.RegisteredClaims
}

// SessionInfo describes the current session in responses.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	Station   string    `json:"station"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
