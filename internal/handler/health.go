package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a simple liveness endpoint for load balancers and monitoring.
// It does not touch the store; use the admin connection check for that.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
