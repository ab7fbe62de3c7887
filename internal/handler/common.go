// Package handler implements the HTTP endpoints. Identity values used here
// are injected by the authorization middleware; handlers never parse tokens
// themselves.
package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cargoflow/cargoflow/internal/middleware"
	"github.com/cargoflow/cargoflow/internal/model"
)

// currentUserID returns the authenticated principal's id, or zero when the
// middleware did not run (misregistered route).
func currentUserID(c echo.Context) uint64 {
	if v, ok := c.Get(middleware.CtxUserID).(uint64); ok {
		return v
	}
	return 0
}

// currentRole returns the authenticated principal's role.
func currentRole(c echo.Context) string {
	if v, ok := c.Get(middleware.CtxUserRole).(string); ok {
		return v
	}
	return ""
}

// currentCompanyID returns the caller's company id, zero for principals
// without one (platform owners).
func currentCompanyID(c echo.Context) uint64 {
	if v, ok := c.Get(middleware.CtxCompanyID).(uint64); ok {
		return v
	}
	return 0
}

// scopedCompanyID resolves which company a request operates on. Tenant
// callers are pinned to their own company; a platform owner has none and
// must name one with the company_id query parameter.
func scopedCompanyID(c echo.Context) (uint64, error) {
	if id := currentCompanyID(c); id != 0 {
		return id, nil
	}
	if currentRole(c) == model.RoleOwner {
		if raw := c.QueryParam("company_id"); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 64); err == nil && id != 0 {
				return id, nil
			}
		}
		return 0, echo.NewHTTPError(http.StatusBadRequest, "company_id query parameter required")
	}
	return 0, echo.NewHTTPError(http.StatusForbidden, "no company attached to account")
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
