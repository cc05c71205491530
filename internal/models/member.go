package models

import "time"

// ============================================
// Member Management Models
// ============================================

type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type MemberResponse struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	UserID         string    `json:"userId"`
	Email          string    `json:"email,omitempty"`
	FirstName      string    `json:"firstName,omitempty"`
	LastName       string    `json:"lastName,omitempty"`
	Role           string    `json:"role"`
	InvitedBy      *string   `json:"invitedBy,omitempty"`
	JoinedAt       time.Time `json:"joinedAt"`
}

// ============================================
// Organization context / permissions
// ============================================

type CurrentOrganizationResponse struct {
	OrganizationID *string `json:"organizationId"`
	Role           string  `json:"role,omitempty"`
}

type PermissionCheckResponse struct {
	OrganizationID string `json:"organizationId"`
	Permission     string `json:"permission"`
	ResourceID     string `json:"resourceId,omitempty"`
	Allowed        bool   `json:"allowed"`
}

type RolePermissionsResponse struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type AccessibleProjectsResponse struct {
	OrganizationID string   `json:"organizationId"`
	ProjectIDs     []string `json:"projectIds"`
}
