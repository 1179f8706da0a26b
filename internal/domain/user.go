package domain

type Role string

const (
	RoleMember     Role = "member"
	RoleConsultant Role = "consultant"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleConsultant, RoleAdmin:
		return true
	default:
		return false
	}
}
