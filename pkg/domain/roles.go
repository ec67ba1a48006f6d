package domain

// RoleName identifies one of the fixed authorization groups.
type RoleName string

const (
	RoleResident RoleName = "Resident"
	RoleAdmin    RoleName = "Admin"
)

// KnownRoles lists every role the system expects to exist at startup.
var KnownRoles = []RoleName{RoleResident, RoleAdmin}

func (r RoleName) String() string { return string(r) }

func (r RoleName) IsValid() bool {
	for _, known := range KnownRoles {
		if r == known {
			return true
		}
	}
	return false
}
