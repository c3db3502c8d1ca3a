package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// LabTests lists the laboratory's test queue. Follows the
// empty-result-fallback rule for role-scoped collections.
func (c *Client) LabTests(ctx context.Context, token string) ([]map[string]interface{}, error) {
	return c.getList(ctx, "/laboratories/tests", token)
}

// StartTest moves a test into in_progress. The backend expects numeric test
// IDs; non-numeric IDs are passed through as-is.
func (c *Client) StartTest(ctx context.Context, token string, testID string) (map[string]interface{}, error) {
	var id interface{} = testID
	if n, err := strconv.Atoi(testID); err == nil {
		id = n
	}
	body := map[string]interface{}{"testId": id, "status": "in_progress"}
	return c.doJSON(ctx, http.MethodPut, "/laboratories/update-exam-status", token, body)
}

// SubmitTestResults completes a test with its results.
func (c *Client) SubmitTestResults(ctx context.Context, token, testID string, results map[string]interface{}) (map[string]interface{}, error) {
	path := fmt.Sprintf("/laboratories/tests/%s/results", testID)
	return c.doJSON(ctx, http.MethodPut, path, token, results)
}
