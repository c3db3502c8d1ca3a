package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *Handler) DoctorPatients(c echo.Context) error {
	sess := currentSession(c)
	patients, err := h.api.Doctors(c.Request().Context(), sess.Token)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusOK, patients)
}

// CreateMedicalRecord writes a consultation record into the patient's file.
func (h *Handler) CreateMedicalRecord(c echo.Context) error {
	var record map[string]interface{}
	if err := c.Bind(&record); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess := currentSession(c)
	created, err := h.api.CreateMedicalRecord(c.Request().Context(), sess.Token, c.Param("id"), record)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var prescription map[string]interface{}
	if err := c.Bind(&prescription); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess := currentSession(c)
	created, err := h.api.CreatePrescription(c.Request().Context(), sess.Token, prescription)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) OrderLabTest(c echo.Context) error {
	var order map[string]interface{}
	if err := c.Bind(&order); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess := currentSession(c)
	created, err := h.api.OrderLabTest(c.Request().Context(), sess.Token, order)
	if err != nil {
		return relayError(err)
	}
	return c.JSON(http.StatusCreated, created)
}
