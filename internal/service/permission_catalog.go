package service

import "github.com/Marga-Ghale/ora-kanban-backend/internal/types"

type permissionSet map[types.Permission]struct{}

func newPermissionSet(perms ...types.Permission) permissionSet {
	set := make(permissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func allExcept(excluded ...types.Permission) permissionSet {
	set := newPermissionSet(types.AllPermissions...)
	for _, p := range excluded {
		delete(set, p)
	}
	return set
}

// rolePermissions is read-only after init.
var rolePermissions = map[types.Role]permissionSet{
	types.RoleOwner: newPermissionSet(types.AllPermissions...),
	types.RoleAdmin: allExcept(types.PermDeleteOrganization, types.PermManageBilling),
	types.RoleMember: newPermissionSet(
		types.PermViewOrganization,
		types.PermViewMembers,
		types.PermCreateProject,
		types.PermViewProject,
		types.PermCreateBoard,
		types.PermViewBoard,
		types.PermUpdateBoard,
		types.PermDeleteBoard,
		types.PermCreateCard,
		types.PermViewCard,
		types.PermUpdateCard,
		types.PermDeleteCard,
		types.PermAssignCard,
		types.PermCommentCard,
		types.PermUploadFile,
		types.PermScheduleMeeting,
		types.PermViewMeetings,
	),
	types.RoleViewer: newPermissionSet(
		types.PermViewOrganization,
		types.PermViewMembers,
		types.PermViewProject,
		types.PermViewBoard,
		types.PermViewCard,
		types.PermCommentCard,
		types.PermViewMeetings,
	),
}

// Permissions whose grant also depends on organization settings.
var conditionalPermissions = newPermissionSet(
	types.PermCreateProject,
	types.PermScheduleMeeting,
	types.PermScheduleTeamMeeting,
)

// Mutations that members may only perform on resources they created.
var resourcePermissions = map[types.Permission]types.ResourceKind{
	types.PermUpdateCard:  types.ResourceCard,
	types.PermDeleteCard:  types.ResourceCard,
	types.PermUpdateBoard: types.ResourceBoard,
	types.PermDeleteBoard: types.ResourceBoard,
}

// RoleHasPermission consults the static catalog only.
func RoleHasPermission(role types.Role, perm types.Permission) bool {
	_, ok := rolePermissions[role][perm]
	return ok
}

// PermissionsForRole lists the catalog entries for role in declaration order.
func PermissionsForRole(role types.Role) []types.Permission {
	perms := []types.Permission{}
	for _, p := range types.AllPermissions {
		if RoleHasPermission(role, p) {
			perms = append(perms, p)
		}
	}
	return perms
}

func IsConditionalPermission(perm types.Permission) bool {
	_, ok := conditionalPermissions[perm]
	return ok
}

func ResourceKindFor(perm types.Permission) (types.ResourceKind, bool) {
	kind, ok := resourcePermissions[perm]
	return kind, ok
}
