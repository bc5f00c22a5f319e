package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthFunc probes one dependency. A nil error means healthy.
type HealthFunc func(ctx context.Context) error

// Router combines the API handlers into one route registrar plus a health
// endpoint over the registered dependency probes.
type Router struct {
	signals       *SignalsHandler
	subscriptions *SubscriptionsHandler
	probes        map[string]HealthFunc
}

func NewRouter(signals *SignalsHandler, subscriptions *SubscriptionsHandler) *Router {
	return &Router{
		signals:       signals,
		subscriptions: subscriptions,
		probes:        make(map[string]HealthFunc),
	}
}

// AddProbe registers a named dependency health check.
func (r *Router) AddProbe(name string, fn HealthFunc) {
	r.probes[name] = fn
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.signals.RegisterRoutes(e)
	r.subscriptions.RegisterRoutes(e)
	e.GET("/health", r.Health)
}

func (r *Router) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(r.probes))
	for name, probe := range r.probes {
		if err := probe(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			deps[name] = "ok"
		}
	}

	return c.JSON(status, map[string]interface{}{
		"status":       http.StatusText(status),
		"dependencies": deps,
	})
}
