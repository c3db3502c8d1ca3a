package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/M1-Gl-UY1/TOPITO/internal/session"
)

// PatientRecords lists the patient's medical records. A role-based 403 from
// the backend is an expected condition here and comes back as an empty list.
func (h *Handler) PatientRecords(c echo.Context) error {
	sess := currentSession(c)
	records, err := h.api.MedicalRecords(c.Request().Context(), sess.Token, session.RolePatient.String())
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) PatientProfile(c echo.Context) error {
	sess := currentSession(c)
	profile, err := h.api.PatientProfile(c.Request().Context(), sess.Token)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *Handler) UpdatePatientProfile(c echo.Context) error {
	var fields map[string]interface{}
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess := currentSession(c)
	updated, err := h.api.UpdatePatientInfo(c.Request().Context(), sess.Token, fields)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) PatientAccesses(c echo.Context) error {
	sess := currentSession(c)
	accesses, err := h.api.GrantedAccesses(c.Request().Context(), sess.Token)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusOK, accesses)
}

func (h *Handler) GrantAccess(c echo.Context) error {
	var grant map[string]interface{}
	if err := c.Bind(&grant); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess := currentSession(c)
	created, err := h.api.GrantAccess(c.Request().Context(), sess.Token, grant)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) RevokeAccess(c echo.Context) error {
	sess := currentSession(c)
	if err := h.api.RevokeAccess(c.Request().Context(), sess.Token, c.Param("id")); err != nil {
		return relayError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PatientDoctors lists doctors the patient can grant access to.
func (h *Handler) PatientDoctors(c echo.Context) error {
	sess := currentSession(c)
	doctors, err := h.api.Doctors(c.Request().Context(), sess.Token)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusOK, doctors)
}
