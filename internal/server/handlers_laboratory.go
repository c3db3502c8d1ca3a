package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// LabTests lists the laboratory's test queue; a role-based 403 comes back as
// an empty queue.
func (h *Handler) LabTests(c echo.Context) error {
	sess := currentSession(c)
	tests, err := h.api.LabTests(c.Request().Context(), sess.Token)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusOK, tests)
}

func (h *Handler) StartTest(c echo.Context) error {
	sess := currentSession(c)
	updated, err := h.api.StartTest(c.Request().Context(), sess.Token, c.Param("id"))
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) CompleteTest(c echo.Context) error {
	var results map[string]interface{}
	if err := c.Bind(&results); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess := currentSession(c)
	updated, err := h.api.SubmitTestResults(c.Request().Context(), sess.Token, c.Param("id"), results)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusOK, updated)
}
