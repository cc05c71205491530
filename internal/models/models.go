package models

import (
	"encoding/json"
	"time"
)

// ============================================
// Auth DTOs
// ============================================

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type SessionResponse struct {
	SessionID    string    `json:"sessionId"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type AuthResponse struct {
	User    UserResponse    `json:"user"`
	Session SessionResponse `json:"session"`
}

// ============================================
// User DTOs
// ============================================

type UserResponse struct {
	ID                    string    `json:"id"`
	Email                 string    `json:"email"`
	FirstName             string    `json:"firstName"`
	LastName              string    `json:"lastName"`
	Name                  string    `json:"name"`
	PasswordResetRequired bool      `json:"passwordResetRequired"`
	CreatedAt             time.Time `json:"createdAt"`
}

// ============================================
// Notification DTOs
// ============================================

type NotificationResponse struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	OrganizationID *string         `json:"organizationId,omitempty"`
	Type           string          `json:"type"`
	Read           bool            `json:"read"`
	Data           json.RawMessage `json:"data,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// ============================================
// Errors
// ============================================

type ErrorResponse struct {
	Error string `json:"error"`
}
