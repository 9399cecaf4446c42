// Package middleware provides shared request processing: bearer token
// validation, role enforcement, login rate limiting and a redis-backed
// response cache.
package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/calyxcontainers/scar-service/internal/model"
	"github.com/calyxcontainers/scar-service/internal/workflow"
)

// Context keys set by JWTAuth and read by handlers via ActorFrom.
const (
	ctxUserID   = "user_id"
	ctxRole     = "role"
	ctxVendorID = "vendor_id"
)

// JWTAuth validates a Bearer access token and stores the subject, role
// and vendor claims in the request context. Protected routes wrap this
// so handlers can build a workflow actor without a user lookup.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			sub, _ := claims["sub"].(string)
			role, _ := claims["role"].(string)
			vendor, _ := claims["vendor"].(string)
			if sub == "" || !model.Role(role).Valid() {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			c.Set(ctxUserID, sub)
			c.Set(ctxRole, role)
			c.Set(ctxVendorID, vendor)
			return next(c)
		}
	}
}

// ActorFrom builds the workflow actor for the authenticated request.
// It must only be called behind JWTAuth.
func ActorFrom(c echo.Context) workflow.Actor {
	id, _ := c.Get(ctxUserID).(string)
	role, _ := c.Get(ctxRole).(string)
	vendor, _ := c.Get(ctxVendorID).(string)
	return workflow.Actor{
		UserID:   id,
		Role:     model.Role(role),
		VendorID: vendor,
	}
}
