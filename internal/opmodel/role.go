package opmodel

// Role is a participant's privilege level (spec.md §3 User, §4.5
// PermissionGate).
type Role uint8

const (
	Viewer Role = iota
	Editor
	Admin
)

func (r Role) String() string {
	switch r {
	case Admin:
		return "Admin"
	case Editor:
		return "Editor"
	case Viewer:
		return "Viewer"
	default:
		return "Unknown"
	}
}
