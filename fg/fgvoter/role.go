package fgvoter

import "fmt"

// Role controls whether the driver casts its own votes in a round.
// Every role still tracks incoming votes and drives round completion.
type Role uint8

const (
	// Zero value is reserved so an unset config field is caught in validation.
	_ Role = iota

	// Observe the round without casting any votes.
	RoleSilent

	// Cast a prevote and a precommit when the round's policy allows.
	RoleVoter

	// Like RoleVoter, and additionally eligible to send
	// the primary block hint at the start of the round.
	RolePrimary
)

// IsActive reports whether the role casts prevotes and precommits.
func (r Role) IsActive() bool {
	return r == RoleVoter || r == RolePrimary
}

// IsPrimary reports whether the role sends the primary block hint.
func (r Role) IsPrimary() bool {
	return r == RolePrimary
}

func (r Role) String() string {
	switch r {
	case RoleSilent:
		return "Silent"
	case RoleVoter:
		return "Voter"
	case RolePrimary:
		return "Primary"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}
