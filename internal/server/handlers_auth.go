package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/M1-Gl-UY1/TOPITO/internal/session"
	"github.com/M1-Gl-UY1/TOPITO/internal/upstream"
)

// The unauthenticated flow is a small state machine:
// role-selection → login ⇄ register, with authenticated reachable only
// through a login whose resolved role passes the compatibility check, and
// logout the only way back.

type sessionView struct {
	Authenticated  bool                     `json:"authenticated"`
	Step           session.AuthStep         `json:"step"`
	TargetRole     session.Role             `json:"target_role,omitempty"`
	Role           session.Role             `json:"role,omitempty"`
	Profile        *session.UserProfile     `json:"profile,omitempty"`
	ActiveTab      string                   `json:"active_tab,omitempty"`
	Tabs           []string                 `json:"tabs,omitempty"`
	MedicalRecords []map[string]interface{} `json:"medical_records,omitempty"`
	AdminStats     map[string]interface{}   `json:"admin_stats,omitempty"`
}

// SelectRole starts the flow: the user picks which portal they claim to
// belong to, before any credentials are entered.
func (h *Handler) SelectRole(c echo.Context) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	role := session.ParseRole(req.Role)
	if !session.IsPortalRole(role) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown portal role")
	}

	st := h.stateFor(c)
	if st.AuthStep == session.StepAuthenticated {
		return echo.NewHTTPError(http.StatusConflict, "already authenticated; log out first")
	}
	st.TargetRole = role
	st.AuthStep = session.StepLogin
	if err := h.store.Put(c.Request().Context(), st); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sessionView{Step: st.AuthStep, TargetRole: st.TargetRole})
}

// SwitchStep toggles between the login and register forms. It is only legal
// once a portal role has been selected, and never while authenticated.
func (h *Handler) SwitchStep(c echo.Context) error {
	var req struct {
		Step string `json:"step"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	step := session.AuthStep(req.Step)
	if step != session.StepLogin && step != session.StepRegister {
		return echo.NewHTTPError(http.StatusBadRequest, "step must be login or register")
	}

	st := h.stateFor(c)
	if st.AuthStep == session.StepAuthenticated {
		return echo.NewHTTPError(http.StatusConflict, "already authenticated; log out first")
	}
	if st.TargetRole == "" {
		return echo.NewHTTPError(http.StatusConflict, "select a portal role first")
	}
	st.AuthStep = step
	if err := h.store.Put(c.Request().Context(), st); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sessionView{Step: st.AuthStep, TargetRole: st.TargetRole})
}

// Login submits credentials for the selected portal. The resolver enforces
// the role compatibility rule; a mismatch is a failed attempt that stores
// nothing.
func (h *Handler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	st := h.stateFor(c)
	if st.AuthStep != session.StepLogin || st.TargetRole == "" {
		return echo.NewHTTPError(http.StatusConflict, "select a portal role first")
	}

	ctx := c.Request().Context()
	result, err := h.resolver.Login(ctx, sessionID(c), req.Email, req.Password, st.TargetRole)
	if err != nil {
		return authFlowError(err)
	}

	// The resolver persisted the token; record where the portal lands.
	st = h.stateFor(c)
	st.ActiveTab = initialTab(result.Session.Role)
	if err := h.store.Put(ctx, st); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	view := sessionView{
		Authenticated: true,
		Step:          session.StepAuthenticated,
		TargetRole:    st.TargetRole,
		Role:          result.Session.Role,
		Profile:       &result.Session.Profile,
		ActiveTab:     st.ActiveTab,
		Tabs:          tabsFor(result.Session.Role),
	}
	if session.IsPatientAlias(result.Session.Role) {
		view.MedicalRecords = result.MedicalRecords
	}
	return c.JSON(http.StatusOK, view)
}

// RegisterAccount submits the registration form for the selected portal and,
// on success, returns the user to the login step. It never logs the new
// account in.
func (h *Handler) RegisterAccount(c echo.Context) error {
	var reg session.Registration
	if err := c.Bind(&reg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	st := h.stateFor(c)
	if st.AuthStep != session.StepRegister || st.TargetRole == "" {
		return echo.NewHTTPError(http.StatusConflict, "switch to the register step first")
	}

	ctx := c.Request().Context()
	if err := h.resolver.Register(ctx, sessionID(c), reg, st.TargetRole); err != nil {
		return authFlowError(err)
	}

	st.AuthStep = session.StepLogin
	if err := h.store.Put(ctx, st); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "account created, you can now sign in",
		"step":    session.StepLogin,
	})
}

// CurrentSession is the bootstrap endpoint: from a stored token alone it
// reports whether the browser is authenticated and, if so, as what.
func (h *Handler) CurrentSession(c echo.Context) error {
	ctx := c.Request().Context()
	sid := sessionID(c)

	result, err := h.resolver.Bootstrap(ctx, sid)
	if err != nil {
		if errors.Is(err, upstream.ErrTokenRejected) {
			// Stored token no longer accepted; the resolver already logged out.
			return c.JSON(http.StatusOK, sessionView{Step: session.StepRoleSelection})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if result == nil {
		st := h.stateFor(c)
		step := st.AuthStep
		if step == "" || step == session.StepAuthenticated {
			step = session.StepRoleSelection
		}
		return c.JSON(http.StatusOK, sessionView{Step: step, TargetRole: st.TargetRole})
	}

	st := h.stateFor(c)
	if st.ActiveTab == "" {
		st.ActiveTab = initialTab(result.Session.Role)
	}
	view := sessionView{
		Authenticated:  true,
		Step:           session.StepAuthenticated,
		TargetRole:     st.TargetRole,
		Role:           result.Session.Role,
		Profile:        &result.Session.Profile,
		ActiveTab:      st.ActiveTab,
		Tabs:           tabsFor(result.Session.Role),
		MedicalRecords: result.MedicalRecords,
		AdminStats:     result.AdminStats,
	}
	return c.JSON(http.StatusOK, view)
}

// Logout clears the token and the whole navigation state; the next request
// starts back at role selection.
func (h *Handler) Logout(c echo.Context) error {
	if err := h.resolver.Logout(c.Request().Context(), sessionID(c)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// SelectTab moves the authenticated user between their portal's tabs.
func (h *Handler) SelectTab(c echo.Context) error {
	var req struct {
		Tab string `json:"tab"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sess, err := h.resolvedSession(c)
	if err != nil {
		return err
	}
	valid := false
	for _, tab := range tabsFor(sess.Role) {
		if tab == req.Tab {
			valid = true
			break
		}
	}
	if !valid {
		return echo.NewHTTPError(http.StatusBadRequest, "tab not available for this portal")
	}

	st := h.stateFor(c)
	st.ActiveTab = req.Tab
	if err := h.store.Put(c.Request().Context(), st); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"active_tab": st.ActiveTab})
}

// stateFor loads the browser's state record, or a fresh one on first contact.
func (h *Handler) stateFor(c echo.Context) session.State {
	st, err := h.store.Get(c.Request().Context(), sessionID(c))
	if err != nil {
		return session.State{ID: sessionID(c), AuthStep: session.StepRoleSelection}
	}
	return st
}

// authFlowError maps resolver failures onto the auth form: rejected attempts
// are 401s with the reason inline, a duplicate submission is a conflict, and
// transport failures surface as a generic 502.
func authFlowError(err error) error {
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		return echo.NewHTTPError(http.StatusUnauthorized, authErr.Reason)
	}
	if errors.Is(err, session.ErrOperationInFlight) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	var netErr *upstream.NetworkError
	if errors.As(err, &netErr) {
		return echo.NewHTTPError(http.StatusBadGateway, "backend unreachable")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
