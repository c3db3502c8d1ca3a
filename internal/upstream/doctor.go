package upstream

import (
	"context"
	"fmt"
	"net/http"
)

// CreateMedicalRecord writes a consultation record into a patient's file.
func (c *Client) CreateMedicalRecord(ctx context.Context, token, patientID string, record map[string]interface{}) (map[string]interface{}, error) {
	path := fmt.Sprintf("/doctors/patients/%s/medical-records", patientID)
	return c.doJSON(ctx, http.MethodPost, path, token, record)
}

// CreatePrescription issues a prescription.
func (c *Client) CreatePrescription(ctx context.Context, token string, prescription map[string]interface{}) (map[string]interface{}, error) {
	return c.doJSON(ctx, http.MethodPost, "/doctors/prescriptions", token, prescription)
}

// OrderLabTest orders a laboratory test for a patient.
func (c *Client) OrderLabTest(ctx context.Context, token string, order map[string]interface{}) (map[string]interface{}, error) {
	return c.doJSON(ctx, http.MethodPost, "/doctors/lab-tests", token, order)
}
