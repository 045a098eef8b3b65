package enums

import "fmt"

// ProfileRole distinguishes the two self-service account types. Admin access
// is a separate flag on the profile, not a role.
type ProfileRole string

const (
	ProfileRoleStudent ProfileRole = "student"
	ProfileRoleAuthor  ProfileRole = "author"
)

var validProfileRoles = []ProfileRole{
	ProfileRoleStudent,
	ProfileRoleAuthor,
}

// String implements fmt.Stringer.
func (p ProfileRole) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProfileRole.
func (p ProfileRole) IsValid() bool {
	for _, candidate := range validProfileRoles {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProfileRole converts raw input into a ProfileRole.
func ParseProfileRole(value string) (ProfileRole, error) {
	for _, candidate := range validProfileRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid profile role %q", value)
}
