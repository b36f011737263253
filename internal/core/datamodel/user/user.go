package user

import "strings"

// Role values are the wire constants the backend uses.
type Role string

const (
	RoleSuperAdmin  Role = "SUPERADMIN"
	RoleAdmin       Role = "ADMIN"
	RoleCoordinator Role = "COORDONNATEUR"
	RoleStockman    Role = "STOCKMAN"
	RoleSupervisor  Role = "SUPERVISEUR"
)

type Permission struct {
	Code string `json:"code"`
	Nom  string `json:"nom,omitempty"`
}

type Profile struct {
	Code              string       `json:"code"`
	Nom               string       `json:"nom"`
	Prenoms           string       `json:"prenoms"`
	Telephone         string       `json:"telephone,omitempty"`
	Role              Role         `json:"role"`
	Fonction          string       `json:"fonction,omitempty"`
	CustomPermissions []Permission `json:"custom_permissions,omitempty"`
}

// User is the account record the backend returns on login and from
// the profile endpoint. It is replaced wholesale, never patched field
// by field on the client.
type User struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	IsActive bool    `json:"is_active"`
	Profile  Profile `json:"profile"`
}

// EntityID satisfies the resource store's identity contract.
func (u User) EntityID() int64 { return u.ID }

func (u *User) FullName() string {
	return strings.TrimSpace(u.Profile.Nom + " " + u.Profile.Prenoms)
}

func (u *User) Role() Role {
	return u.Profile.Role
}

// HasAdminRights reports whether the user holds one of the two
// administrative roles.
func (u *User) HasAdminRights() bool {
	return u.Profile.Role == RoleSuperAdmin || u.Profile.Role == RoleAdmin
}

// HasPermission checks a custom permission code. Super admins pass
// every check.
func (u *User) HasPermission(code string) bool {
	if u.Profile.Role == RoleSuperAdmin {
		return true
	}
	for _, perm := range u.Profile.CustomPermissions {
		if perm.Code == code {
			return true
		}
	}
	return false
}
