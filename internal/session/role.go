// Package session owns the resolved identity of the current portal user:
// which role the bearer token belongs to, the role-dependent profile, and
// the per-browser state that survives a gateway restart (token, theme,
// navigation position). The resolution procedure itself lives in resolver.go.
package session

// Role is the closed set of portal roles. RoleUser is a legacy untyped
// alias some backend accounts still carry; it is treated as patient
// everywhere through IsPatientAlias, never by ad-hoc string comparison.
type Role string

const (
	RolePatient    Role = "patient"
	RoleDoctor     Role = "doctor"
	RoleLaboratory Role = "laboratory"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
	RoleUnknown    Role = "unknown"
)

// ParseRole maps a backend role string onto the closed enum. Anything
// unrecognized resolves to RoleUnknown, which grants access to nothing.
func ParseRole(s string) Role {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleLaboratory, RoleAdmin, RoleUser:
		return Role(s)
	}
	return RoleUnknown
}

func (r Role) String() string {
	return string(r)
}

// PortalRoles are the roles a user can pick on the role-selection screen.
var PortalRoles = []Role{RolePatient, RoleDoctor, RoleLaboratory, RoleAdmin}

// IsPortalRole reports whether r is a selectable portal role.
func IsPortalRole(r Role) bool {
	for _, p := range PortalRoles {
		if r == p {
			return true
		}
	}
	return false
}

// IsPatientAlias reports whether a resolved role counts as patient,
// covering the legacy "user" alias.
func IsPatientAlias(r Role) bool {
	return r == RolePatient || r == RoleUser
}

// Compatible decides whether an account whose role resolved to `resolved`
// may enter the portal selected as `target`. Admin matches only admin,
// doctor only doctor, laboratory only laboratory; the patient portal also
// accepts the legacy "user" alias. Every other combination is a mismatch.
func Compatible(target, resolved Role) bool {
	switch target {
	case RoleAdmin:
		return resolved == RoleAdmin
	case RolePatient:
		return IsPatientAlias(resolved)
	case RoleDoctor:
		return resolved == RoleDoctor
	case RoleLaboratory:
		return resolved == RoleLaboratory
	}
	return false
}
