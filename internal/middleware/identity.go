package middleware

// identity.go holds the context keys written by the JWT middleware and
// the accessors handlers use to read them back.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-orders/internal/utils"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

func setIdentity(c echo.Context, cl utils.Claims) {
	c.Set(ctxUserID, cl.UserID)
	c.Set(ctxRole, cl.Role)
}

// UserID returns the authenticated user's id, or false for guests.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id > 0
}

// Role returns the role claim of the authenticated user ("" for guests).
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// userKey is the identity segment used in rate limit keys.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
