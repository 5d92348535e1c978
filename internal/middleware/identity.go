package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parish-booking/internal/model"
)

// Principal returns the caller stored by JWTAuth.  ok is false on routes
// that are not behind JWTAuth.
func Principal(c echo.Context) (p model.Principal, ok bool) {
	id, _ := c.Get(ctxUserID).(string)
	if id == "" {
		return model.Principal{}, false
	}
	role, _ := c.Get(ctxRole).(string)
	return model.Principal{ID: id, Role: role}, true
}
