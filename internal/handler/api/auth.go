package api

import (
	"crypto/subtle"
	"strings"

	xhttp "RWAPrice/pkg/http"

	"github.com/labstack/echo/v4"
)

// BearerAuth guards mutating and search endpoints with a static bearer token.
// Comparison is constant-time.
func BearerAuth(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("missing bearer token"))
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				return xhttp.AppErrorResponse(c, xhttp.ForbiddenError("invalid token"))
			}
			return next(c)
		}
	}
}
