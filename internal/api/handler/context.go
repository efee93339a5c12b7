package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

// ctxClaims extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call:
//   - role must be non-empty (presence proves the middleware ran).
//   - partner role requires a non-empty account_id; a partner token without
//     one cannot read anything, so it is rejected with 401.
func ctxClaims(c echo.Context) (role domain.Role, accountID string, err error) {
	raw, _ := c.Get("role").(string)
	role = domain.Role(raw)
	if role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	accountID, _ = c.Get("account_id").(string)
	if role == domain.RolePartner && accountID == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "token missing account identity")
	}

	return role, accountID, nil
}
