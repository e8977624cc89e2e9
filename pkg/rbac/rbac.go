package rbac

import "slices"

// 权限常量
const (
	// 照护者专属
	PermissionAssignTask     = "task:assign"
	PermissionCreateReminder = "reminder:create"
	PermissionSearchPatients = "patient:search"
	PermissionLinkPatient    = "patient:link"
	PermissionNearbyPatients = "patient:nearby"
	PermissionPatientContact = "patient:contacts"

	// 所有登录用户
	PermissionReadTask       = "task:read"
	PermissionCompleteTask   = "task:complete"
	PermissionReadReminder   = "reminder:read"
	PermissionPostForum      = "forum:post"
	PermissionReact          = "forum:react"
	PermissionReadNotice     = "notification:read"
	PermissionManageContacts = "contact:manage"
	PermissionListCaregivers = "caregiver:list"
)

const (
	RoleUser      = "user"
	RoleCaregiver = "caregiver"
)

var common = []string{
	PermissionReadTask,
	PermissionCompleteTask,
	PermissionReadReminder,
	PermissionPostForum,
	PermissionReact,
	PermissionReadNotice,
	PermissionManageContacts,
}

var rolePermissions = map[string][]string{
	RoleUser: append(slices.Clone(common),
		PermissionListCaregivers,
	),
	RoleCaregiver: append(slices.Clone(common),
		PermissionAssignTask,
		PermissionCreateReminder,
		PermissionSearchPatients,
		PermissionLinkPatient,
		PermissionNearbyPatients,
		PermissionPatientContact,
	),
}

// ValidRole 角色是否合法
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role, permission string) bool {
	return slices.Contains(rolePermissions[role], permission)
}

// CheckPermission 与 HasPermission 相同，但返回错误便于 handler 处理
func CheckPermission(role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{Role: role, Permission: permission}
	}
	return nil
}

type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions: " + e.Permission
}
