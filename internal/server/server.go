// Package server is the portal's own HTTP surface: the auth flow the mobile
// front-end drives (role selection, login, register), the session endpoints,
// and the role-gated relays to the TOHPITOH backend. Each browser is bound
// to its state record by an opaque session cookie.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/M1-Gl-UY1/TOPITO/internal/session"
	"github.com/M1-Gl-UY1/TOPITO/internal/upstream"
)

const (
	sessionIDKey  = "portal_session_id"
	sessionKey    = "portal_session"
	defaultCookie = "tohpitoh_session"
	cookieMaxAge  = 30 * 24 * 60 * 60
)

type Handler struct {
	resolver     *session.Resolver
	store        session.Store
	api          *upstream.Client
	log          zerolog.Logger
	cookieName   string
	cookieSecure bool
}

func NewHandler(resolver *session.Resolver, store session.Store, api *upstream.Client, log zerolog.Logger, cookieName string, cookieSecure bool) *Handler {
	if cookieName == "" {
		cookieName = defaultCookie
	}
	return &Handler{
		resolver:     resolver,
		store:        store,
		api:          api,
		log:          log,
		cookieName:   cookieName,
		cookieSecure: cookieSecure,
	}
}

func (h *Handler) RegisterRoutes(portal *echo.Group) {
	auth := portal.Group("/auth")
	auth.POST("/role", h.SelectRole)
	auth.POST("/step", h.SwitchStep)
	auth.POST("/login", h.Login)
	auth.POST("/register", h.RegisterAccount)
	auth.GET("/session", h.CurrentSession)
	auth.DELETE("/session", h.Logout)
	auth.PUT("/tab", h.SelectTab)

	prefs := portal.Group("/preferences")
	prefs.GET("/theme", h.GetTheme)
	prefs.PUT("/theme", h.SetTheme)

	patient := portal.Group("/patient", h.requireRole(session.RolePatient, session.RoleUser))
	patient.GET("/records", h.PatientRecords)
	patient.GET("/profile", h.PatientProfile)
	patient.PUT("/profile", h.UpdatePatientProfile)
	patient.GET("/accesses", h.PatientAccesses)
	patient.POST("/accesses", h.GrantAccess)
	patient.DELETE("/accesses/:id", h.RevokeAccess)
	patient.GET("/doctors", h.PatientDoctors)

	doctor := portal.Group("/doctor", h.requireRole(session.RoleDoctor))
	doctor.GET("/patients", h.DoctorPatients)
	doctor.POST("/patients/:id/records", h.CreateMedicalRecord)
	doctor.POST("/prescriptions", h.CreatePrescription)
	doctor.POST("/lab-tests", h.OrderLabTest)

	lab := portal.Group("/laboratory", h.requireRole(session.RoleLaboratory))
	lab.GET("/tests", h.LabTests)
	lab.PUT("/tests/:id/start", h.StartTest)
	lab.PUT("/tests/:id/results", h.CompleteTest)

	admin := portal.Group("/admin", h.requireRole(session.RoleAdmin))
	admin.GET("/statistics", h.AdminStatistics)
	admin.GET("/users", h.AdminUsers)
	admin.GET("/validations", h.AdminValidations)
	admin.PUT("/:kind/:id/:action", h.ValidateProfessional)
}

// SessionCookie binds the request to a browser session, minting a cookie on
// first contact.
func (h *Handler) SessionCookie() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var sid string
			if cookie, err := c.Cookie(h.cookieName); err == nil && cookie.Value != "" {
				sid = cookie.Value
			} else {
				sid = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     h.cookieName,
					Value:    sid,
					Path:     "/",
					MaxAge:   cookieMaxAge,
					HttpOnly: true,
					Secure:   h.cookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c.Set(sessionIDKey, sid)
			return next(c)
		}
	}
}

func sessionID(c echo.Context) string {
	sid, _ := c.Get(sessionIDKey).(string)
	return sid
}

// requireRole gates a route group on the resolved session role. Roles are
// matched exactly — the admin role does not bypass the other portals, and an
// unknown role is granted nothing. The patient portal lists both the patient
// role and its legacy alias.
func (h *Handler) requireRole(roles ...session.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := h.resolvedSession(c)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if sess.Role == role {
					c.Set(sessionKey, sess)
					return next(c)
				}
			}
			names := make([]string, len(roles))
			for i, role := range roles {
				names[i] = role.String()
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(names, " or ")))
		}
	}
}

// resolvedSession returns the cached session for the request's browser, or
// bootstraps one from the stored token.
func (h *Handler) resolvedSession(c echo.Context) (session.Session, error) {
	sid := sessionID(c)
	if sess, ok := h.resolver.Current(sid); ok {
		return sess, nil
	}
	res, err := h.resolver.Bootstrap(c.Request().Context(), sid)
	if err != nil || res == nil {
		return session.Session{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return res.Session, nil
}

func currentSession(c echo.Context) session.Session {
	sess, _ := c.Get(sessionKey).(session.Session)
	return sess
}

// roleTabs lists the navigation tabs each portal offers; the first entry is
// the tab selected right after login.
var roleTabs = map[session.Role][]string{
	session.RolePatient:    {"summary", "history", "access", "profile"},
	session.RoleDoctor:     {"patients", "consultations"},
	session.RoleLaboratory: {"requests", "results"},
	session.RoleAdmin:      {"dashboard", "validations", "users"},
}

func tabsFor(role session.Role) []string {
	if session.IsPatientAlias(role) {
		return roleTabs[session.RolePatient]
	}
	return roleTabs[role]
}

func initialTab(role session.Role) string {
	tabs := tabsFor(role)
	if len(tabs) == 0 {
		return ""
	}
	return tabs[0]
}

// relayError maps upstream failures onto the portal's HTTP surface: backend
// rejections pass through with their status and message, transport failures
// become a 502.
func relayError(err error) error {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		return echo.NewHTTPError(apiErr.Status, apiErr.Message)
	}
	var netErr *upstream.NetworkError
	if errors.As(err, &netErr) {
		return echo.NewHTTPError(http.StatusBadGateway, "backend unreachable")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
