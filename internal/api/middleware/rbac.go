package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

// RBAC admits requests whose role claim, set by Auth, is one of allowed.
// Denials return domain.ErrForbidden for the global error handler.
func RBAC(allowed ...domain.Role) echo.MiddlewareFunc {
	set := make(map[domain.Role]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, _ := c.Get("role").(string)
			if _, ok := set[domain.Role(raw)]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
