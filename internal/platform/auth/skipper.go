package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// PublicPaths returns a skipper that lets the given routes through without a
// bearer token. It matches the registered route, so query strings and path
// parameters do not matter.
func PublicPaths(paths ...string) middleware.Skipper {
	public := make(map[string]bool, len(paths))
	for _, p := range paths {
		public[p] = true
	}
	return func(c echo.Context) bool {
		return public[c.Path()]
	}
}
