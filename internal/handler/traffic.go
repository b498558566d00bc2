package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/jok6r1/src-diplom/internal/config"
	"github.com/jok6r1/src-diplom/internal/logger"
	"github.com/jok6r1/src-diplom/internal/model"
	"github.com/jok6r1/src-diplom/internal/queue"
	"github.com/jok6r1/src-diplom/internal/repository"
	queue_publisher "github.com/jok6r1/src-diplom/internal/service"
)

// TrafficHandler bundles dependencies for the ingestion and query endpoints.
type TrafficHandler struct {
	Cfg     config.Config
	Traffic *repository.TrafficRepo
	Users   *repository.UserRepo
}

func NewTrafficHandler(cfg config.Config, t *repository.TrafficRepo, u *repository.UserRepo) *TrafficHandler {
	return &TrafficHandler{Cfg: cfg, Traffic: t, Users: u}
}

// Ingest accepts a batch of candidate flow samples from the upstream agent.
// The payload must be a non-empty JSON array; beyond that, items are handled
// independently: a malformed or incomplete item is skipped and logged while
// the rest of the batch is stored. The caller only learns stored-or-failed,
// not which rows were skipped.
func (h *TrafficHandler) Ingest(c echo.Context) error {
	var raw []json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil || len(raw) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Data must be a non-empty array"})
	}

	candidates := make([]model.Candidate, 0, len(raw))
	malformed := 0
	for i, item := range raw {
		cand, err := model.DecodeCandidate(item)
		if err != nil {
			logger.Log.Warnw("skipping malformed batch item", "index", i, "error", err)
			malformed++
			continue
		}
		candidates = append(candidates, cand)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	res, err := h.Traffic.InsertBatch(ctx, candidates)
	if err != nil {
		logger.Log.Errorw("storing batch failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to store anomalies"})
	}

	logger.Log.Infow("batch stored",
		"received", len(raw),
		"inserted", res.Inserted,
		"skipped", len(res.Skipped)+malformed,
	)

	h.publishAlerts(res.Stored)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Data stored successfully"})
}

// publishAlerts emits an anomaly.detected event for each stored record whose
// consensus score reaches the alert threshold. Publishing is fire-and-forget;
// a broker outage never fails an ingest request.
func (h *TrafficHandler) publishAlerts(stored []model.TrafficRecord) {
	var flagged []model.TrafficRecord
	for _, rec := range stored {
		if rec.AnomalyConsensus >= h.Cfg.AlertThreshold {
			flagged = append(flagged, rec)
		}
	}
	if len(flagged) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		now := time.Now().UTC().Format(time.RFC3339)
		for _, rec := range flagged {
			_ = queue_publisher.PublishAnomalyDetected(ctx, queue.AnomalyDetectedEvent{
				RecordID:    rec.ID,
				UserID:      rec.UserID,
				IP:          rec.IP,
				Timestamp:   rec.Timestamp.UTC().Format(time.RFC3339),
				ByteRate:    rec.ByteRate,
				PacketRate:  rec.PacketRate,
				Autoencoder: rec.AnomalyAE,
				LSTM:        rec.AnomalyLSTM,
				Consensus:   rec.AnomalyConsensus,
				DetectedAt:  now,
			})
		}
	}()
}

// ByUser returns a user's flow samples in the nested dashboard shape. The
// `since` parameter filters strictly after the given timestamp, `from`
// at-or-after; with neither, the window is the last 60 minutes.
func (h *TrafficHandler) ByUser(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Invalid user ID"})
	}

	filter := repository.TimeFilter{}
	if v := c.QueryParam("since"); v != "" {
		at, ok := model.ParseTimestamp(v)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Invalid since parameter"})
		}
		filter = repository.TimeFilter{Kind: repository.TimeFilterAfter, At: at}
	} else if v := c.QueryParam("from"); v != "" {
		at, ok := model.ParseTimestamp(v)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Invalid from parameter"})
		}
		filter = repository.TimeFilter{Kind: repository.TimeFilterAtOrAfter, At: at}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	recs, err := h.Traffic.ByUser(ctx, userID, filter)
	if err != nil {
		logger.Log.Errorw("fetching traffic by user failed", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch traffic data"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": model.Views(recs)})
}

// ByIP returns every flow sample for an IP in the nested dashboard shape,
// newest first, with no time filter.
func (h *TrafficHandler) ByIP(c echo.Context) error {
	ip := c.Param("ip")

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	recs, err := h.Traffic.ByIP(ctx, ip)
	if err != nil {
		logger.Log.Errorw("fetching traffic by ip failed", "ip", ip, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch traffic data for IP"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": model.Views(recs)})
}

// Recent returns raw rows from the last N minutes (default 15), optionally
// restricted to one IP.
func (h *TrafficHandler) Recent(c echo.Context) error {
	minutes := queryInt(c, "minutes", 15)
	ip := c.QueryParam("ip")

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	recs, err := h.Traffic.Recent(ctx, minutes, ip)
	if err != nil {
		logger.Log.Errorw("fetching recent traffic failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch last data"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": recs})
}

// ByID returns a single raw row or 404.
func (h *TrafficHandler) ByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Invalid record ID"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	rec, err := h.Traffic.ByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "Record not found"})
		}
		logger.Log.Errorw("fetching traffic by id failed", "id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch traffic data"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"data":      rec,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// UsersAndTraffic serves the live "who's active" view: all accounts plus the
// flow samples of the last 15 seconds. The two reads are independent (no
// join) and run concurrently; the response merges both.
func (h *TrafficHandler) UsersAndTraffic(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	var (
		users   []model.UserSummary
		traffic []model.TrafficRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = h.Users.All(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		traffic, err = h.Traffic.RecentSeconds(gctx, 15)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Log.Errorw("fetching users and traffic failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch data"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"users":   users,
			"traffic": model.Views(traffic),
		},
	})
}

// Latest returns the raw rows sharing the single maximum timestamp in the
// table, or 404 when the table is empty.
func (h *TrafficHandler) Latest(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	recs, err := h.Traffic.Latest(ctx)
	if err != nil {
		logger.Log.Errorw("fetching latest traffic failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Failed to fetch latest traffic"})
	}
	if len(recs) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "No data found"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"count":           len(recs),
		"latestTimestamp": recs[0].Timestamp,
		"data":            recs,
	})
}
