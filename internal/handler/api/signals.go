package api

import (
	"time"

	models "SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
	"SignalFlow/internal/rules"
	xhttp "SignalFlow/pkg/http"
	xlogger "SignalFlow/pkg/logger"
	"SignalFlow/pkg/util"

	"github.com/labstack/echo/v4"
)

// SignalsHandler serves signal history and the rule catalog over HTTP.
type SignalsHandler struct {
	logger   *xlogger.Logger
	history  domrepo.HistoryStore
	registry *rules.Registry
}

func NewSignalsHandler(logger *xlogger.Logger, history domrepo.HistoryStore, registry *rules.Registry) *SignalsHandler {
	return &SignalsHandler{logger: logger, history: history, registry: registry}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/signals")
	g.GET("/recent", h.Recent)
	g.GET("/stats", h.Stats)
	e.GET("/api/rules", h.Rules)
}

func (h *SignalsHandler) Recent(c echo.Context) error {
	req := &models.RecentSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	signals, err := h.history.Recent(c.Request().Context(), models.HistoryQuery{
		Limit:     req.Limit,
		Symbol:    req.Symbol,
		Direction: models.Direction(req.Direction),
	})
	if err != nil {
		h.logger.Error("recent signals query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, signals, int64(len(signals)))
}

func (h *SignalsHandler) Stats(c echo.Context) error {
	req := &models.SignalStatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	// since wins over hours when both are given.
	since := util.ParseTimeDefault(req.Since, time.Now().Add(-time.Duration(req.Hours)*time.Hour))
	stats, err := h.history.Stats(c.Request().Context(), since)
	if err != nil {
		h.logger.Error("signal stats query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, stats)
}

// ruleSummary is the wire form of one catalog entry.
type ruleSummary struct {
	Name        string   `json:"name"`
	SourceTable string   `json:"source_table"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory,omitempty"`
	Direction   string   `json:"direction"`
	Strength    int      `json:"strength"`
	Priority    string   `json:"priority"`
	Cooldown    string   `json:"cooldown"`
	Timeframes  []string `json:"timeframes,omitempty"`
}

func (h *SignalsHandler) Rules(c echo.Context) error {
	out := make([]ruleSummary, 0, h.registry.Len())
	for _, table := range h.registry.Tables() {
		for _, r := range h.registry.RulesFor(table) {
			out = append(out, ruleSummary{
				Name:        r.Name,
				SourceTable: r.SourceTable,
				Category:    r.Category,
				Subcategory: r.Subcategory,
				Direction:   string(r.Direction),
				Strength:    r.Strength,
				Priority:    string(r.Priority),
				Cooldown:    r.Cooldown.String(),
				Timeframes:  r.Timeframes,
			})
		}
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}
