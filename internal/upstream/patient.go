package upstream

import (
	"context"
	"fmt"
	"net/http"
)

// MedicalRecords fetches the patient's medical records. When the caller
// already knows the session role and it is anything other than patient, the
// call short-circuits to an empty list without touching the network; a 403
// from the backend is likewise an empty list, not an error.
func (c *Client) MedicalRecords(ctx context.Context, token, role string) ([]map[string]interface{}, error) {
	if role != "" && role != "patient" {
		return []map[string]interface{}{}, nil
	}
	return c.getList(ctx, "/patients/medical-records", token)
}

// PatientProfile fetches the patient's own profile.
func (c *Client) PatientProfile(ctx context.Context, token string) (map[string]interface{}, error) {
	body, err := c.doJSON(ctx, http.MethodGet, "/patients/profile", token, nil)
	if err != nil {
		return nil, err
	}
	return UnwrapProfile(body), nil
}

// UpdatePatientInfo updates the patient-specific profile fields.
func (c *Client) UpdatePatientInfo(ctx context.Context, token string, fields map[string]interface{}) (map[string]interface{}, error) {
	return c.doJSON(ctx, http.MethodPut, "/patients/profile/me", token, fields)
}

// GrantedAccesses lists the access grants the patient has handed out.
func (c *Client) GrantedAccesses(ctx context.Context, token string) ([]map[string]interface{}, error) {
	return c.getList(ctx, "/patients/granted-accesses", token)
}

// GrantAccess hands a doctor access to the patient's record.
func (c *Client) GrantAccess(ctx context.Context, token string, grant map[string]interface{}) (map[string]interface{}, error) {
	return c.doJSON(ctx, http.MethodPost, "/patients/grant", token, grant)
}

// RevokeAccess withdraws a previously granted access.
func (c *Client) RevokeAccess(ctx context.Context, token, grantID string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/patients/revoke/%s", grantID), token, nil)
	return err
}

// Doctors lists the doctors known to the platform (used by patients to pick
// a grant target, and by doctors as their patient-list endpoint).
func (c *Client) Doctors(ctx context.Context, token string) ([]map[string]interface{}, error) {
	return c.getList(ctx, "/doctors", token)
}
