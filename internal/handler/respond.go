package handler // package handler exposes the booking workflow over HTTP

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parish-booking/internal/service"
)

// errorBody is the JSON shape of every failed response.
func errorBody(code, msg string) echo.Map {
	return echo.Map{"error": code, "message": msg}
}

// writeError maps a workflow error to its HTTP status.  Unknown errors are
// logged and reported as 500 without leaking details.
func writeError(c echo.Context, err error) error {
	var (
		ve *service.ValidationError
		nf *service.NotFoundError
		it *service.InvalidTransitionError
		du *service.DateUnavailableError
		se *service.StoreError
	)
	switch {
	case errors.As(err, &ve):
		body := errorBody("validation_error", ve.Error())
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &nf):
		return c.JSON(http.StatusNotFound, errorBody("not_found", nf.Error()))
	case errors.As(err, &it):
		body := errorBody("invalid_transition", it.Error())
		body["status"] = it.From
		return c.JSON(http.StatusConflict, body)
	case errors.As(err, &du):
		body := errorBody("date_unavailable", du.Error())
		body["date"] = du.Date
		return c.JSON(http.StatusConflict, body)
	case errors.As(err, &se):
		c.Logger().Errorf("store failure: %v", se)
		return c.JSON(http.StatusInternalServerError, errorBody("store_error", "storage failure, try again later"))
	}
	c.Logger().Errorf("unhandled error: %v", err)
	return c.JSON(http.StatusInternalServerError, errorBody("internal_error", "internal server error"))
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, errorBody("forbidden", "you may only access your own bookings"))
}

func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorBody("unauthenticated", "missing identity"))
}
