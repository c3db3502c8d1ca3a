package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NetworkError is a transport-level failure (connection refused, DNS,
// timeout). Callers surface it as a generic failure; no retry is attempted.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// decodeError turns a non-2xx response into an *APIError. The backend is not
// consistent about error bodies: prefer a JSON "message" field, fall back to
// the raw body text, fall back to a generic status message.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	raw, err := io.ReadAll(resp.Body)
	if err == nil && len(raw) > 0 {
		var body struct {
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(raw, &body); jsonErr == nil && body.Message != "" {
			apiErr.Message = body.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("HTTP error %d", resp.StatusCode)
	}
	return apiErr
}
