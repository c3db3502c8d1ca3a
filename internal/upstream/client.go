// Package upstream is a typed client for the TOHPITOH backend REST API.
//
// The backend is an external collaborator with loosely specified response
// shapes: token and user fields vary by deployment, and there is no whoami
// endpoint. Shape tolerance lives in adapters.go and role discovery in
// probe.go; everything else is a plain authenticated relay.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the production backend.
const DefaultBaseURL = "https://tohpitoh-api.onrender.com/api/v1"

const httpCallTimeout = 10 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: httpCallTimeout},
	}
}

// do issues a request with JSON headers and an optional bearer token, and
// returns the raw response. Transport failures come back wrapped as
// *NetworkError; HTTP status handling is left to the caller.
func (c *Client) do(ctx context.Context, method, path, token string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	return resp, nil
}

// doJSON issues a request and decodes a 2xx JSON body into a generic map.
// Non-2xx responses are converted to *APIError via decodeError.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body interface{}) (map[string]interface{}, error) {
	resp, err := c.do(ctx, method, path, token, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if err == io.EOF {
			return map[string]interface{}{}, nil
		}
		return nil, fmt.Errorf("decode response body: %w", err)
	}
	return out, nil
}

// listFromBody unwraps the backend's list shapes: a bare JSON array, or an
// object carrying the array under "records" or "data". Anything else is
// treated as an empty list.
func listFromBody(body io.Reader) []map[string]interface{} {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil
	}

	var direct []map[string]interface{}
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil
	}
	for _, key := range []string{"records", "data"} {
		if inner, ok := wrapped[key]; ok {
			var list []map[string]interface{}
			if err := json.Unmarshal(inner, &list); err == nil {
				return list
			}
		}
	}
	return nil
}

// getList fetches a role-scoped collection endpoint. These endpoints follow
// the empty-result-fallback rule: any failure, including a role-based 403,
// yields an empty list rather than an error.
func (c *Client) getList(ctx context.Context, path, token string) ([]map[string]interface{}, error) {
	resp, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return []map[string]interface{}{}, nil
	}
	list := listFromBody(resp.Body)
	if list == nil {
		list = []map[string]interface{}{}
	}
	return list, nil
}
