package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner      = "owner"
	RoleManager    = "manager"
	RoleAgent      = "agent"
	RoleSuperAdmin = "super_admin"
	// RoleScheduler is the service identity used by the recurring dispatch trigger.
	RoleScheduler = "scheduler" // hidden role
)

// Role groups the API guards routes with.
var (
	// Managers configure campaigns, numbers and leads and read reports.
	Managers = []string{RoleOwner, RoleManager}
	// Staff is every human tenant role.
	Staff = []string{RoleOwner, RoleManager, RoleAgent}
	// Triggers may run dispatcher and follow-up passes.
	Triggers = []string{RoleOwner, RoleManager, RoleScheduler}
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RoleScheduler }

// Known reports whether role is one this service issues tokens for.
func Known(role string) bool {
	switch role {
	case RoleOwner, RoleManager, RoleAgent, RoleSuperAdmin, RoleScheduler:
		return true
	}
	return false
}

// Allowed applies the role rules: super_admin passes everything, every other
// role (hidden ones included) must be listed.
func Allowed(role string, allowed ...string) bool {
	if role == "" {
		return false
	}
	if IsSuperAdmin(role) {
		return true
	}
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}
