package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *Handler) AdminStatistics(c echo.Context) error {
	sess := currentSession(c)
	stats, err := h.api.AdminStatistics(c.Request().Context(), sess.Token)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) AdminUsers(c echo.Context) error {
	sess := currentSession(c)
	users, err := h.api.AllUsers(c.Request().Context(), sess.Token)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) AdminValidations(c echo.Context) error {
	sess := currentSession(c)
	pending, err := h.api.PendingValidations(c.Request().Context(), sess.Token)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusOK, pending)
}

// ValidateProfessional approves or rejects a pending doctor or laboratory.
func (h *Handler) ValidateProfessional(c echo.Context) error {
	kind := c.Param("kind")
	action := c.Param("action")
	if kind != "doctors" && kind != "laboratories" {
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be doctors or laboratories")
	}
	if action != "approve" && action != "reject" {
		return echo.NewHTTPError(http.StatusBadRequest, "action must be approve or reject")
	}

	sess := currentSession(c)
	result, err := h.api.ValidateProfessional(c.Request().Context(), sess.Token, kind, c.Param("id"), action)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusOK, result)
}
