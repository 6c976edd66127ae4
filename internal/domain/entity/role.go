package entity

// Role is the closed set of user roles known to the workflow
type Role string

const (
	RoleStaff      Role = "STAFF"
	RoleApproverL1 Role = "APPROVER_LEVEL_1"
	RoleApproverL2 Role = "APPROVER_LEVEL_2"
	RoleFinance    Role = "FINANCE"
	RoleAdmin      Role = "ADMIN"
)

var validRoles = map[Role]bool{
	RoleStaff:      true,
	RoleApproverL1: true,
	RoleApproverL2: true,
	RoleFinance:    true,
	RoleAdmin:      true,
}

// IsValid returns true if the role is one of the defined constants
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// CanApproveAtLevel reports whether the role carries approval authority
// for the given level. Level 1 accepts both approver tiers, level 2 only
// the senior tier; Admin approves at any level.
func (r Role) CanApproveAtLevel(level int) bool {
	switch level {
	case 1:
		return r == RoleApproverL1 || r == RoleApproverL2 || r == RoleAdmin
	case 2:
		return r == RoleApproverL2 || r == RoleAdmin
	default:
		return false
	}
}

// CanFinalize reports whether the role may close out a validated request.
func (r Role) CanFinalize() bool {
	return r == RoleFinance || r == RoleAdmin
}
