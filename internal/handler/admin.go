package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jok6r1/src-diplom/internal/config"
	"github.com/jok6r1/src-diplom/internal/logger"
	"github.com/jok6r1/src-diplom/internal/repository"
)

// AdminHandler exposes the administrative SQL surface. Unlike every other
// endpoint it deliberately echoes store error messages back to the caller:
// the route sits behind JWT auth with the admin role and exists for operator
// debugging, not for general API consumers.
type AdminHandler struct {
	Cfg   config.Config
	Admin *repository.AdminRepo
}

func NewAdminHandler(cfg config.Config, r *repository.AdminRepo) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Admin: r}
}

type executeSQLReq struct {
	Query string `json:"query"`
}

// ExecuteSQL runs an operator-supplied statement verbatim. Statements
// starting with "select" return rows; anything else returns a success
// message.
func (h *AdminHandler) ExecuteSQL(c echo.Context) error {
	var req executeSQLReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "query required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	if repository.IsSelect(req.Query) {
		rows, err := h.Admin.Query(ctx, req.Query)
		if err != nil {
			logger.Log.Errorw("admin query failed", "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rows})
	}

	if err := h.Admin.Exec(ctx, req.Query); err != nil {
		logger.Log.Errorw("admin exec failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Query executed"})
}

// CheckConnection probes the store with SELECT 1 and answers with a bare
// boolean.
func (h *AdminHandler) CheckConnection(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	if err := h.Admin.Ping(ctx); err != nil {
		logger.Log.Errorw("connection check failed", "error", err)
		return c.JSON(http.StatusInternalServerError, false)
	}
	return c.JSON(http.StatusOK, true)
}
