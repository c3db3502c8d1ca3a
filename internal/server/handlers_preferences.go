package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const defaultTheme = "cosmic"

var validThemes = map[string]bool{
	"cosmic":  true,
	"neon":    true,
	"vintage": true,
}

// GetTheme returns the browser's display-mode preference. The preference
// survives logout: it belongs to the device, not the account.
func (h *Handler) GetTheme(c echo.Context) error {
	st := h.stateFor(c)
	theme := st.Theme
	if theme == "" {
		theme = defaultTheme
	}
	return c.JSON(http.StatusOK, map[string]string{"theme": theme})
}

func (h *Handler) SetTheme(c echo.Context) error {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !validThemes[req.Theme] {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown theme")
	}

	st := h.stateFor(c)
	st.Theme = req.Theme
	if err := h.store.Put(c.Request().Context(), st); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"theme": st.Theme})
}
