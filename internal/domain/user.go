package domain

// PermissionLevel grades access to an area of the application.
type PermissionLevel int

const (
	PermissionNone      PermissionLevel = 0
	PermissionRead      PermissionLevel = 1
	PermissionReadWrite PermissionLevel = 2
)

// PermissionArea names the areas a role grants access to.
type PermissionArea string

const (
	AreaTickets     PermissionArea = "tickets"
	AreaUsers       PermissionArea = "users"
	AreaDepartments PermissionArea = "departments"
	AreaAdmin       PermissionArea = "admin"
)

// DefaultRoleName is the role given to self-registered accounts.
const DefaultRoleName = "Usuario"

// Role bundles per-area permission levels.
type Role struct {
	ID              int64
	Name            string
	PermTickets     PermissionLevel
	PermUsers       PermissionLevel
	PermDepartments PermissionLevel
	PermAdmin       PermissionLevel
}

// Level returns the role's level for area. Unknown areas grant nothing.
func (r Role) Level(area PermissionArea) PermissionLevel {
	switch area {
	case AreaTickets:
		return r.PermTickets
	case AreaUsers:
		return r.PermUsers
	case AreaDepartments:
		return r.PermDepartments
	case AreaAdmin:
		return r.PermAdmin
	default:
		return PermissionNone
	}
}

// User is an account that files, handles or comments on tickets.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	DepartmentID *int64
	Active       bool
	Role         Role
}

// Allows reports whether the user holds at least level in area.
func (u *User) Allows(area PermissionArea, level PermissionLevel) bool {
	if u == nil {
		return false
	}
	return u.Role.Level(area) >= level
}

// CanSee reports whether the user may view the ticket.
func (u *User) CanSee(t *Ticket) bool {
	if u == nil || t == nil {
		return false
	}
	if u.Allows(AreaTickets, PermissionReadWrite) {
		return true
	}
	if t.UserID == u.ID {
		return true
	}
	return t.AssigneeID != nil && *t.AssigneeID == u.ID
}
