package models

import (
	"time"
)

// CreateInvitationRequest scopes an invitation to the organization in the
// path, optionally narrowed to a project or a board.
type CreateInvitationRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Role      string `json:"role" binding:"required"`
	ProjectID string `json:"projectId,omitempty"`
	BoardID   string `json:"boardId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// AcceptInvitationRequest is posted from the public onboarding page.
type AcceptInvitationRequest struct {
	Token             string `json:"token" binding:"required"`
	Email             string `json:"email" binding:"required,email"`
	TemporaryPassword string `json:"temporaryPassword" binding:"required"`
	NewPassword       string `json:"newPassword" binding:"required"`
	FirstName         string `json:"firstName,omitempty"`
	LastName          string `json:"lastName,omitempty"`
}

// InvitationResponse never carries the token or the temporary password.
type InvitationResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	OrganizationID string    `json:"organizationId"`
	ProjectID      *string   `json:"projectId,omitempty"`
	BoardID        *string   `json:"boardId,omitempty"`
	Role           string    `json:"role"`
	InvitedBy      string    `json:"invitedBy"`
	Message        *string   `json:"message,omitempty"`
	ExpiresAt      time.Time `json:"expiresAt"`
	IsUsed         bool      `json:"isUsed"`
	CreatedAt      time.Time `json:"createdAt"`
}

type AcceptInvitationResponse struct {
	UserID         string          `json:"userId"`
	OrganizationID string          `json:"organizationId"`
	Role           string          `json:"role"`
	RedirectURL    string          `json:"redirectUrl"`
	UserCreated    bool            `json:"userCreated"`
	Session        SessionResponse `json:"session"`
}

type CancelInvitationResponse struct {
	Cancelled bool `json:"cancelled"`
}
