package session

import "fmt"

// Session is the resolved in-memory representation of the current
// authenticated actor. It is owned exclusively by the Resolver and always
// replaced wholesale, never mutated field by field.
type Session struct {
	Token   string      `json:"-"`
	Role    Role        `json:"role"`
	Profile UserProfile `json:"profile"`
}

// Authenticated reports whether the session carries a token at all. A
// session can be authenticated with Role == RoleUnknown; such a session is
// granted no role-gated view.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// UserProfile is the role-dependent profile payload. The common fields are
// best-effort: the backend does not always supply them, and a blank field is
// not an error.
type UserProfile struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`

	Patient *PatientDetails `json:"patient,omitempty"`
}

// PatientDetails is present only for patient sessions. Allergies is the
// backend's comma-delimited string passed through untouched; splitting it is
// a display concern, not a session concern.
type PatientDetails struct {
	DateOfBirth         string `json:"date_of_birth,omitempty"`
	BloodType           string `json:"blood_type,omitempty"`
	Allergies           string `json:"allergies,omitempty"`
	EmergencyContact    string `json:"emergency_contact,omitempty"`
	EmergencyAccessCode string `json:"emergency_access_code,omitempty"`
}

// ProfileFromMap normalizes a backend profile object into a UserProfile.
// Field names vary between services, so each field checks the known
// spellings in order.
func ProfileFromMap(m map[string]interface{}) UserProfile {
	return UserProfile{
		ID:        stringField(m, "id", "userId", "user_id"),
		Email:     stringField(m, "email"),
		FirstName: stringField(m, "first_name", "firstName"),
		LastName:  stringField(m, "last_name", "lastName"),
		Phone:     stringField(m, "phone", "phone_number"),
	}
}

// PatientDetailsFromMap pulls the patient-specific fields out of a patient
// profile object.
func PatientDetailsFromMap(m map[string]interface{}) *PatientDetails {
	return &PatientDetails{
		DateOfBirth:         stringField(m, "date_of_birth", "dateOfBirth", "dob"),
		BloodType:           stringField(m, "blood_type", "bloodType"),
		Allergies:           stringField(m, "allergies"),
		EmergencyContact:    stringField(m, "emergency_contact", "emergencyContact"),
		EmergencyAccessCode: stringField(m, "emergency_access_code", "emergencyAccessCode"),
	}
}

// stringField returns the first non-empty value among the given keys,
// stringifying numeric IDs on the way.
func stringField(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
