package session

import "testing"

func TestCompatible_FullMatrix(t *testing.T) {
	resolvedRoles := []Role{RolePatient, RoleDoctor, RoleLaboratory, RoleAdmin, RoleUser, RoleUnknown}

	// target role -> resolved roles allowed through
	allowed := map[Role]map[Role]bool{
		RolePatient:    {RolePatient: true, RoleUser: true},
		RoleDoctor:     {RoleDoctor: true},
		RoleLaboratory: {RoleLaboratory: true},
		RoleAdmin:      {RoleAdmin: true},
	}

	for _, target := range PortalRoles {
		for _, resolved := range resolvedRoles {
			want := allowed[target][resolved]
			if got := Compatible(target, resolved); got != want {
				t.Errorf("Compatible(%s, %s) = %v, want %v", target, resolved, got, want)
			}
		}
	}
}

func TestCompatible_NonPortalTarget(t *testing.T) {
	for _, target := range []Role{RoleUser, RoleUnknown, Role("")} {
		for _, resolved := range []Role{RolePatient, RoleAdmin, RoleUser} {
			if Compatible(target, resolved) {
				t.Errorf("Compatible(%s, %s) = true, want false", target, resolved)
			}
		}
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"patient", RolePatient},
		{"doctor", RoleDoctor},
		{"laboratory", RoleLaboratory},
		{"admin", RoleAdmin},
		{"user", RoleUser},
		{"", RoleUnknown},
		{"superadmin", RoleUnknown},
		{"Patient", RoleUnknown},
	}

	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestIsPatientAlias(t *testing.T) {
	if !IsPatientAlias(RolePatient) || !IsPatientAlias(RoleUser) {
		t.Error("patient and user must both count as patient")
	}
	for _, r := range []Role{RoleDoctor, RoleLaboratory, RoleAdmin, RoleUnknown} {
		if IsPatientAlias(r) {
			t.Errorf("%s must not count as patient", r)
		}
	}
}

func TestIsPortalRole(t *testing.T) {
	for _, r := range PortalRoles {
		if !IsPortalRole(r) {
			t.Errorf("%s should be a portal role", r)
		}
	}
	for _, r := range []Role{RoleUser, RoleUnknown, Role("x")} {
		if IsPortalRole(r) {
			t.Errorf("%s should not be a portal role", r)
		}
	}
}
