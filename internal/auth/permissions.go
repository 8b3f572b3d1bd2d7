package auth

// Role is the caller's role, carried in the token.
type Role string

// Roles.
const (
	// RoleViewer may read session state, metrics and history.
	RoleViewer Role = "viewer"

	// RoleOperator may also connect sessions and send commands.
	RoleOperator Role = "operator"
)

// Permission represents a named capability.
type Permission string

// Permission constants.
const (
	PermSessionRead     Permission = "session:read"
	PermSessionManage   Permission = "session:manage"
	PermLampOperate     Permission = "lamp:operate"
	PermRelayPublish    Permission = "relay:publish"
	PermHistoryRead     Permission = "history:read"
	PermEventsSubscribe Permission = "events:subscribe"
)

// rolePermissions maps each role to its granted permissions.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermSessionRead,
		PermHistoryRead,
		PermEventsSubscribe,
	},
	RoleOperator: {
		PermSessionRead,
		PermSessionManage,
		PermLampOperate,
		PermRelayPublish,
		PermHistoryRead,
		PermEventsSubscribe,
	},
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// HasPermission reports whether role has perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
