package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// swaggerCSP lets the bundled Swagger UI run its inline bootstrap script.
const swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data:; frame-ancestors 'none'"

// SecurityHeadersConfig configures SecurityHeaders. Empty fields take the
// values from DefaultSecurityHeadersConfig.
type SecurityHeadersConfig struct {
	ContentSecurityPolicy string
	ReferrerPolicy        string
	PermissionsPolicy     string
	// NoStorePrefixes are path prefixes whose responses must not be cached
	// (prospect data, notifications, route plans).
	NoStorePrefixes []string
	// DocsPrefix is served with a CSP that allows the Swagger UI.
	DocsPrefix string
}

// DefaultSecurityHeadersConfig allows map tiles and the Mapbox APIs, and lets
// the page ask for the device location so a rep can start a route from where
// they stand.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		ContentSecurityPolicy: "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' data: blob: https:; font-src 'self'; worker-src blob:; " +
			"connect-src 'self' https://api.mapbox.com https://events.mapbox.com; " +
			"frame-ancestors 'none'; base-uri 'self'; form-action 'self'",
		ReferrerPolicy:    "strict-origin-when-cross-origin",
		PermissionsPolicy: "camera=(self), microphone=(), geolocation=(self), payment=()",
		NoStorePrefixes:   []string{"/api/"},
		DocsPrefix:        "/swagger/",
	}
}

// SecurityHeaders sets CSP, Referrer-Policy and Permissions-Policy on every
// response, plus Cache-Control: no-store under NoStorePrefixes.
func SecurityHeaders(config SecurityHeadersConfig) echo.MiddlewareFunc {
	defaults := DefaultSecurityHeadersConfig()
	if config.ContentSecurityPolicy == "" {
		config.ContentSecurityPolicy = defaults.ContentSecurityPolicy
	}
	if config.ReferrerPolicy == "" {
		config.ReferrerPolicy = defaults.ReferrerPolicy
	}
	if config.PermissionsPolicy == "" {
		config.PermissionsPolicy = defaults.PermissionsPolicy
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			h := c.Response().Header()

			csp := config.ContentSecurityPolicy
			if config.DocsPrefix != "" && strings.HasPrefix(path, config.DocsPrefix) {
				csp = swaggerCSP
			}
			h.Set("Content-Security-Policy", csp)
			h.Set("Referrer-Policy", config.ReferrerPolicy)
			h.Set("Permissions-Policy", config.PermissionsPolicy)

			for _, prefix := range config.NoStorePrefixes {
				if strings.HasPrefix(path, prefix) {
					h.Set("Cache-Control", "no-store")
					break
				}
			}
			return next(c)
		}
	}
}
