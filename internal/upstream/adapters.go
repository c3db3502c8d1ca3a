package upstream

// The backend's auth responses come in several shapes depending on which
// service issued them. Each known variant gets a named adapter; adapters are
// tried in the declared order and the first hit wins. New variants are added
// here, never at call sites.

// tokenFields are the response fields recognized as carrying the bearer
// token, in the order they are tried.
var tokenFields = []string{"token", "accessToken", "access", "key"}

// ExtractToken pulls the bearer token out of a login response body.
func ExtractToken(body map[string]interface{}) (string, bool) {
	for _, field := range tokenFields {
		if v, ok := body[field].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

type userAdapter func(map[string]interface{}) (map[string]interface{}, bool)

// userFromUserField handles {"user": {...}}.
func userFromUserField(body map[string]interface{}) (map[string]interface{}, bool) {
	u, ok := body["user"].(map[string]interface{})
	return u, ok
}

// userFromDataField handles {"data": {...}}.
func userFromDataField(body map[string]interface{}) (map[string]interface{}, bool) {
	u, ok := body["data"].(map[string]interface{})
	return u, ok
}

// userFromFlatShape handles responses where the user fields sit at the top
// level; a top-level "role" field is the marker for this variant.
func userFromFlatShape(body map[string]interface{}) (map[string]interface{}, bool) {
	if _, ok := body["role"]; !ok {
		return nil, false
	}
	return body, true
}

var userAdapters = []userAdapter{
	userFromUserField,
	userFromDataField,
	userFromFlatShape,
}

// ExtractUser pulls the inline user object out of a login response body, if
// the response carries one at all.
func ExtractUser(body map[string]interface{}) (map[string]interface{}, bool) {
	for _, adapt := range userAdapters {
		if u, ok := adapt(body); ok {
			return u, true
		}
	}
	return nil, false
}

// InferredRole resolves the role of an inline user object that lacks an
// explicit "role" field: elevated-privilege flags mean admin, an explicit
// user_type is taken at face value, and everything else is the legacy
// untyped "user".
func InferredRole(user map[string]interface{}) string {
	if role, ok := user["role"].(string); ok && role != "" {
		return role
	}
	if truthy(user["is_superuser"]) || truthy(user["is_staff"]) {
		return "admin"
	}
	if t, ok := user["user_type"].(string); ok && t != "" {
		return t
	}
	return "user"
}

func truthy(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}

// UnwrapProfile strips the backend's single-object wrappers: {"user": {...}}
// or {"data": {...}}, else the body itself.
func UnwrapProfile(body map[string]interface{}) map[string]interface{} {
	if u, ok := body["user"].(map[string]interface{}); ok {
		return u
	}
	if d, ok := body["data"].(map[string]interface{}); ok {
		return d
	}
	return body
}
