package profile

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

var AllRoles = []string{RoleAdmin, RoleTeacher}

func ValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Profile is the application-level user record, distinct from the identity
// provider's authentication record. Dates travel as ISO "2006-01-02" strings,
// the platform's wire format.
type Profile struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	ChurchID    string `json:"church_id"`
	Phone       string `json:"phone,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

func (p Profile) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Profile) IsTeacher() bool { return p.Role == RoleTeacher }

// RoleSet is a policy object holding the set of roles permitted to reach an
// endpoint group.
type RoleSet struct {
	allowed map[string]struct{}
}

func NewRoleSet(roles ...string) RoleSet {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return RoleSet{allowed: allowed}
}

// Allows reports whether the given role may pass. An empty set allows any
// authenticated profile.
func (rs RoleSet) Allows(role string) bool {
	if len(rs.allowed) == 0 {
		return true
	}
	_, ok := rs.allowed[role]
	return ok
}
