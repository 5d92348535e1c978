package router // package router registers the HTTP routes of the booking API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parish-booking/internal/handler"
	"github.com/iliyamo/parish-booking/internal/middleware"
	"github.com/iliyamo/parish-booking/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, h handler.Health) {
	e.GET("/healthz", h.Check)
}

// RegisterBookings registers the routes of one sacrament kind under
// /v1/<kind>s.  Calendar lookups are public; everything else requires a
// valid access token.  limiter throttles submissions and comments per
// caller and may be nil.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter *middleware.Limiter) {
	prefix := "/v1/" + h.Kind().Plural()

	pub := e.Group(prefix + "/dates")
	pub.GET("/booked", h.BookedDates)
	pub.GET("/:date", h.DateAvailability)

	g := e.Group(prefix, middleware.JWTAuth(jwtSecret))
	anyone := middleware.RequireRole(model.RoleParishioner, model.RoleStaff)
	staff := middleware.RequireRole(model.RoleStaff)

	g.POST("", h.Submit, anyone, limiter.Guard(h.Kind(), middleware.ActionSubmit))
	g.GET("/mine", h.ListMine, anyone)
	g.GET("/:id", h.Get, anyone)

	g.GET("", h.List, staff)
	g.GET("/pending", h.ListPending, staff)
	g.GET("/confirmed", h.ListConfirmed, staff)
	g.PATCH("/:id/confirm", h.Confirm, staff)
	g.PATCH("/:id/decline", h.Decline, staff)
	g.POST("/:id/comments", h.AddComment, staff, limiter.Guard(h.Kind(), middleware.ActionComment))
}
