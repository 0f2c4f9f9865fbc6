// Package domain defines shared domain constants and types.
package domain

const (
	// RoleOwner is the configured bot owner.
	RoleOwner = "owner"
	// RoleMember is a sender on the authorization roster.
	RoleMember = "member"
	// RoleGuest is a sender that contacted the bot without being authorized.
	RoleGuest = "guest"
)

// Role priorities, higher wins.
const (
	RolePriorityGuest  = 1
	RolePriorityMember = 2
	RolePriorityOwner  = 3
)

// RolePriority ranks a role; unknown roles rank 0.
func RolePriority(role string) int {
	switch role {
	case RoleOwner:
		return RolePriorityOwner
	case RoleMember:
		return RolePriorityMember
	case RoleGuest:
		return RolePriorityGuest
	default:
		return 0
	}
}

// RoleForAccess is the role recorded for a newly seen sender.
func RoleForAccess(authorized bool) string {
	if authorized {
		return RoleMember
	}
	return RoleGuest
}
