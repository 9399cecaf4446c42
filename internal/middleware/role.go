package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/calyxcontainers/scar-service/internal/model"
)

// RequireRole aborts with 403 unless the authenticated user's role is
// in the allowed set. It assumes JWTAuth has already run. Vendor-level
// ownership checks stay in the workflow engine; this only gates whole
// route groups (e.g. admin-only settings).
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ctxRole).(string)
			if !ok || !allowed[model.Role(role)] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
