package api

import (
	models "SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
	xhttp "SignalFlow/pkg/http"
	xlogger "SignalFlow/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SubscriptionsHandler exposes per-consumer delivery filters.
type SubscriptionsHandler struct {
	logger *xlogger.Logger
	subs   domrepo.SubscriptionStore
}

func NewSubscriptionsHandler(logger *xlogger.Logger, subs domrepo.SubscriptionStore) *SubscriptionsHandler {
	return &SubscriptionsHandler{logger: logger, subs: subs}
}

func (h *SubscriptionsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/subscriptions")
	g.GET("/:consumer", h.Get)
	g.PUT("/:consumer/enabled", h.SetEnabled)
	g.POST("/:consumer/tables/:table/toggle", h.ToggleTable)
	g.POST("/:consumer/tables/enable_all", h.EnableAll)
	g.POST("/:consumer/tables/disable_all", h.DisableAll)
	g.GET("/tables/:table/consumers", h.Consumers)
}

func (h *SubscriptionsHandler) Get(c echo.Context) error {
	consumer := c.Param("consumer")
	if consumer == "" {
		return xhttp.BadRequestResponse(c, "consumer required")
	}

	sub, err := h.subs.Get(c.Request().Context(), consumer)
	if err != nil {
		h.logger.Error("subscription get error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, sub)
}

func (h *SubscriptionsHandler) SetEnabled(c echo.Context) error {
	consumer := c.Param("consumer")
	req := &models.SubscriptionEnabledRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.subs.SetEnabled(c.Request().Context(), consumer, *req.Enabled); err != nil {
		h.logger.Error("subscription enable error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return h.respondWith(c, consumer)
}

// ToggleTable flips one table's delivery flag for the consumer.
func (h *SubscriptionsHandler) ToggleTable(c echo.Context) error {
	consumer := c.Param("consumer")
	table := c.Param("table")
	ctx := c.Request().Context()

	sub, err := h.subs.Get(ctx, consumer)
	if err != nil {
		h.logger.Error("subscription get error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if err := h.subs.SetTable(ctx, consumer, table, !sub.Tables[table]); err != nil {
		h.logger.Error("subscription toggle error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return h.respondWith(c, consumer)
}

func (h *SubscriptionsHandler) EnableAll(c echo.Context) error {
	return h.setAll(c, true)
}

func (h *SubscriptionsHandler) DisableAll(c echo.Context) error {
	return h.setAll(c, false)
}

func (h *SubscriptionsHandler) setAll(c echo.Context, enabled bool) error {
	consumer := c.Param("consumer")
	if err := h.subs.SetAllTables(c.Request().Context(), consumer, enabled); err != nil {
		h.logger.Error("subscription set-all error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return h.respondWith(c, consumer)
}

// Consumers lists consumer IDs currently accepting signals from a table.
func (h *SubscriptionsHandler) Consumers(c echo.Context) error {
	table := c.Param("table")
	ids, err := h.subs.ConsumersFor(c.Request().Context(), table)
	if err != nil {
		h.logger.Error("consumers query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, ids, int64(len(ids)))
}

// respondWith returns the post-mutation subscription so clients see the
// effective state.
func (h *SubscriptionsHandler) respondWith(c echo.Context, consumer string) error {
	sub, err := h.subs.Get(c.Request().Context(), consumer)
	if err != nil {
		h.logger.Error("subscription get error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, sub)
}
