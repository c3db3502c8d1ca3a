package upstream

import (
	"context"
	"net/http"
)

// RegistrationPayload is the role-shaped registration body. The common
// fields are always sent; the optional fields are populated per role and
// omitted from the wire otherwise.
type RegistrationPayload struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`

	// patient
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Gender      string `json:"gender,omitempty"`

	// doctor and laboratory
	LicenseNumber string `json:"license_number,omitempty"`
	Specialty     string `json:"specialty,omitempty"`
	Hospital      string `json:"hospital,omitempty"`
}

// Authenticate exchanges credentials for the backend's login response. The
// response shape is deliberately left as a raw map: token and user extraction
// go through the adapters in adapters.go.
func (c *Client) Authenticate(ctx context.Context, email, password string) (map[string]interface{}, error) {
	body := map[string]string{"email": email, "password": password}
	return c.doJSON(ctx, http.MethodPost, "/jwt/auth", "", body)
}

// Register submits a role-shaped registration. It never logs the new account
// in; a successful registration returns the caller to the login step.
func (c *Client) Register(ctx context.Context, payload RegistrationPayload) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/jwt/register", "", payload)
	return err
}

// UpdateProfile updates the common account fields of the authenticated user.
func (c *Client) UpdateProfile(ctx context.Context, token string, fields map[string]interface{}) (map[string]interface{}, error) {
	return c.doJSON(ctx, http.MethodPut, "/jwt/profile", token, fields)
}
