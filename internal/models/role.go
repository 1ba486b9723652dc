package models

// Role is the closed set of caller roles. Permission checks happen once at
// the API boundary against the capability table below, not ad hoc per
// endpoint.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleSubAdmin Role = "SubAdmin"
	RoleCenter   Role = "Center"
	RoleDoctor   Role = "Doctor"
)

// Capabilities describes what a role may do.
type Capabilities struct {
	CanUpload        bool
	CanAssign        bool
	CanReport        bool
	CanViewStats     bool
	CanManageCenters bool
}

var roleCapabilities = map[Role]Capabilities{
	RoleAdmin:    {CanUpload: true, CanAssign: true, CanReport: true, CanViewStats: true, CanManageCenters: true},
	RoleSubAdmin: {CanUpload: false, CanAssign: true, CanReport: false, CanViewStats: true, CanManageCenters: false},
	RoleCenter:   {CanUpload: true, CanAssign: false, CanReport: false, CanViewStats: true, CanManageCenters: false},
	RoleDoctor:   {CanUpload: false, CanAssign: false, CanReport: true, CanViewStats: false, CanManageCenters: false},
}

// ParseRole maps a role string to its Role; unknown strings report ok=false.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleCapabilities[r]
	return r, ok
}

// Caps returns the capability row for the role. Unknown roles get the
// zero value (no capabilities).
func (r Role) Caps() Capabilities {
	return roleCapabilities[r]
}
