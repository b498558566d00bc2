package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jok6r1/src-diplom/internal/config"
	"github.com/jok6r1/src-diplom/internal/logger"
	"github.com/jok6r1/src-diplom/internal/repository"
)

// HiddenIPHandler serves the operator-curated suppressed IP list. The
// front-end treats these IPs as already flagged; the core only reads the
// table, mutation happens through the administrative SQL surface.
type HiddenIPHandler struct {
	Cfg config.Config
	IPs *repository.HiddenIPRepo
}

func NewHiddenIPHandler(cfg config.Config, r *repository.HiddenIPRepo) *HiddenIPHandler {
	return &HiddenIPHandler{Cfg: cfg, IPs: r}
}

// List returns every suppressed IP as a flat array.
func (h *HiddenIPHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	ips, err := h.IPs.All(ctx)
	if err != nil {
		logger.Log.Errorw("fetching suppressed IPs failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
	}
	return c.JSON(http.StatusOK, ips)
}
