package types

import "strings"

// Role is an organization member role. Roles are totally ordered:
// viewer < member < admin < owner.
type Role string

// Organization Member Roles
const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// ValidRoles lists every role from lowest to highest.
var ValidRoles = []Role{RoleViewer, RoleMember, RoleAdmin, RoleOwner}

// Level returns the numeric rank of the role (higher = more privileges).
// Unknown roles rank 0.
func (r Role) Level() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleMember:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	return r.Level() > 0
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r.Level() >= min.Level()
}

func (r Role) String() string {
	return string(r)
}

// ParseRole normalizes case and whitespace ("ADMIN", " admin ") and
// reports whether the result is a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Permission is a named capability checked against a role's permission set.
type Permission string

// Organization permissions
const (
	PermViewOrganization   Permission = "VIEW_ORGANIZATION"
	PermUpdateOrganization Permission = "UPDATE_ORGANIZATION"
	PermDeleteOrganization Permission = "DELETE_ORGANIZATION"
	PermManageSettings     Permission = "MANAGE_SETTINGS"
)

// Membership permissions
const (
	PermViewMembers       Permission = "VIEW_MEMBERS"
	PermInviteMember      Permission = "INVITE_MEMBER"
	PermRemoveMember      Permission = "REMOVE_MEMBER"
	PermManageMemberRoles Permission = "MANAGE_MEMBER_ROLES"
)

// Project and board permissions
const (
	PermCreateProject Permission = "CREATE_PROJECT"
	PermViewProject   Permission = "VIEW_PROJECT"
	PermUpdateProject Permission = "UPDATE_PROJECT"
	PermDeleteProject Permission = "DELETE_PROJECT"

	PermCreateBoard Permission = "CREATE_BOARD"
	PermViewBoard   Permission = "VIEW_BOARD"
	PermUpdateBoard Permission = "UPDATE_BOARD"
	PermDeleteBoard Permission = "DELETE_BOARD"
)

// Card permissions
const (
	PermCreateCard    Permission = "CREATE_CARD"
	PermViewCard      Permission = "VIEW_CARD"
	PermUpdateCard    Permission = "UPDATE_CARD"
	PermDeleteCard    Permission = "DELETE_CARD"
	PermUpdateAnyCard Permission = "UPDATE_ANY_CARD"
	PermDeleteAnyCard Permission = "DELETE_ANY_CARD"
	PermAssignCard    Permission = "ASSIGN_CARD"
	PermCommentCard   Permission = "COMMENT_CARD"
	PermUploadFile    Permission = "UPLOAD_FILE"
)

// Meeting and billing permissions
const (
	PermScheduleMeeting     Permission = "SCHEDULE_MEETING"
	PermScheduleTeamMeeting Permission = "SCHEDULE_TEAM_MEETING"
	PermViewMeetings        Permission = "VIEW_MEETINGS"
	PermViewBilling         Permission = "VIEW_BILLING"
	PermManageBilling       Permission = "MANAGE_BILLING"
)

// AllPermissions lists every known permission.
var AllPermissions = []Permission{
	PermViewOrganization, PermUpdateOrganization, PermDeleteOrganization, PermManageSettings,
	PermViewMembers, PermInviteMember, PermRemoveMember, PermManageMemberRoles,
	PermCreateProject, PermViewProject, PermUpdateProject, PermDeleteProject,
	PermCreateBoard, PermViewBoard, PermUpdateBoard, PermDeleteBoard,
	PermCreateCard, PermViewCard, PermUpdateCard, PermDeleteCard,
	PermUpdateAnyCard, PermDeleteAnyCard, PermAssignCard, PermCommentCard, PermUploadFile,
	PermScheduleMeeting, PermScheduleTeamMeeting, PermViewMeetings,
	PermViewBilling, PermManageBilling,
}

// ParsePermission accepts any case ("update_card") and reports whether
// the permission is known.
func ParsePermission(s string) (Permission, bool) {
	p := Permission(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllPermissions {
		if known == p {
			return p, true
		}
	}
	return p, false
}

// ResourceKind identifies the table consulted for ownership checks.
type ResourceKind string

const (
	ResourceCard  ResourceKind = "card"
	ResourceBoard ResourceKind = "board"
)
