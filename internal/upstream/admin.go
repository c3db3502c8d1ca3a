package upstream

import (
	"context"
	"fmt"
	"net/http"
)

// AdminStatistics fetches the admin dashboard counters. The same endpoint
// doubles as the admin role probe.
func (c *Client) AdminStatistics(ctx context.Context, token string) (map[string]interface{}, error) {
	return c.doJSON(ctx, http.MethodGet, "/admin/statistics", token, nil)
}

// AllUsers lists every registered account.
func (c *Client) AllUsers(ctx context.Context, token string) ([]map[string]interface{}, error) {
	return c.getList(ctx, "/admin/all-users", token)
}

// PendingValidations lists professional accounts awaiting review.
func (c *Client) PendingValidations(ctx context.Context, token string) ([]map[string]interface{}, error) {
	return c.getList(ctx, "/admin/pending-validations", token)
}

// ValidateProfessional approves or rejects a doctor or laboratory account.
// kind is "doctors" or "laboratories"; action is "approve" or "reject".
func (c *Client) ValidateProfessional(ctx context.Context, token, kind, id, action string) (map[string]interface{}, error) {
	path := fmt.Sprintf("/admin/%s/%s/%s", kind, id, action)
	return c.doJSON(ctx, http.MethodPut, path, token, nil)
}
