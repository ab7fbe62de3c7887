package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Page stubs. The real UI is served by a separate frontend; these exist so
// the redirect targets of the authorization middleware resolve when the
// backend runs standalone.

// LoginPage renders the login form placeholder.
func LoginPage(c echo.Context) error {
	return c.HTML(http.StatusOK, "<h1>Sign in</h1>")
}

// RegisterPage renders the registration form placeholder.
func RegisterPage(c echo.Context) error {
	return c.HTML(http.StatusOK, "<h1>Create account</h1>")
}

// UnauthorizedPage is where authenticated principals land when their role
// does not allow the page they asked for.
func UnauthorizedPage(c echo.Context) error {
	return c.HTML(http.StatusForbidden, "<h1>You do not have access to this page</h1>")
}
