package upstream

import (
	"context"
	"errors"
	"net/http"
)

// ErrTokenRejected reports that every role probe answered 401: the token
// itself is no longer accepted by the backend.
var ErrTokenRejected = errors.New("token rejected by backend")

// roleProbe pairs a role with the endpoint whose status code reveals
// membership, plus the endpoint that carries the role's profile (empty for
// admin, which has no dedicated profile endpoint).
type roleProbe struct {
	role        string
	probePath   string
	profilePath string
}

// roleProbes is the fixed probe order. The backend has no whoami endpoint,
// so role membership is tested by status code: 200 or 403 on a role-scoped
// endpoint counts as a match. A 403 is trusted to mean "authenticated but
// wrong operation", which can misclassify e.g. a suspended account; this is
// a known fragility of the upstream contract and is kept as-is.
var roleProbes = []roleProbe{
	{role: "admin", probePath: "/admin/statistics"},
	{role: "doctor", probePath: "/doctors/profile/me", profilePath: "/doctors/profile/me"},
	{role: "laboratory", probePath: "/laboratories/profile/me", profilePath: "/laboratories/profile/me"},
	{role: "patient", probePath: "/patients/profile", profilePath: "/patients/profile"},
}

// ProbeRole walks the probe list strictly in order and stops at the first
// match; probe N+1 is only issued when probe N did not match.
//
// It returns the matched role and, when the role has a profile endpoint that
// answered 200, the unwrapped profile object. No match at all returns an
// empty role; if every probe answered 401 the error is ErrTokenRejected.
func (c *Client) ProbeRole(ctx context.Context, token string) (string, map[string]interface{}, error) {
	allUnauthorized := true
	responded := false

	for _, probe := range roleProbes {
		resp, err := c.do(ctx, http.MethodGet, probe.probePath, token, nil)
		if err != nil {
			allUnauthorized = false
			continue
		}
		status := resp.StatusCode
		resp.Body.Close()
		responded = true

		if status != http.StatusOK && status != http.StatusForbidden {
			if status != http.StatusUnauthorized {
				allUnauthorized = false
			}
			continue
		}

		var profile map[string]interface{}
		if probe.profilePath != "" {
			if body, err := c.doJSON(ctx, http.MethodGet, probe.profilePath, token, nil); err == nil {
				profile = UnwrapProfile(body)
			}
		}
		return probe.role, profile, nil
	}

	if responded && allUnauthorized {
		return "", nil, ErrTokenRejected
	}
	return "", nil, nil
}
