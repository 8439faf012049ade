package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jordanlanch/prospectroute/pkg/auth"
	"github.com/jordanlanch/prospectroute/pkg/identity"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/labstack/echo/v4"
)

// JWTMiddleware creates a JWT authentication middleware
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return JWTMiddlewareWithBlacklist(secret, nil)
}

// JWTMiddlewareWithBlacklist authenticates the bearer token and stores the
// caller's identity in the request context. EventSource clients cannot set
// headers, so GET requests may pass the token as ?token= instead.
func JWTMiddlewareWithBlacklist(secret string, blacklist *auth.TokenBlacklist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, failure := bearerToken(c)
			if failure != nil {
				return c.JSON(http.StatusUnauthorized, failure)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			claims, err := auth.ValidateJWTWithBlacklist(ctx, token, secret, blacklist)
			cancel()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: err.Error(),
				})
			}

			id, err := claims.Identity()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: "Token does not carry a valid identity",
				})
			}

			c.Set("token", token)
			c.Set("claims", claims)
			c.Set("user_id", id.UserID)
			c.SetRequest(c.Request().WithContext(identity.WithIdentity(c.Request().Context(), id)))

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, *models.ErrorResponse) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if c.Request().Method == http.MethodGet {
			if token := c.QueryParam("token"); token != "" {
				return token, nil
			}
		}
		return "", &models.ErrorResponse{
			Error:   "missing_token",
			Message: "Authorization header is required",
		}
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", &models.ErrorResponse{
			Error:   "invalid_token_format",
			Message: "Authorization header must be 'Bearer {token}'",
		}
	}
	return parts[1], nil
}
