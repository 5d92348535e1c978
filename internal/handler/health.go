package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
)

// Health reports liveness for load balancers.  With a database configured
// it also pings it and answers 503 when the ping fails.
type Health struct {
	DB *sqlx.DB
}

func (h Health) Check(c echo.Context) error {
	if h.DB == nil {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		c.Logger().Warnf("health: db ping failed: %v", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "db": "unreachable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "db": "ok"})
}
