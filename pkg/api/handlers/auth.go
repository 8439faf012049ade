package handlers

import (
	"net/http"

	"github.com/jordanlanch/prospectroute/pkg/api/errors"
	"github.com/jordanlanch/prospectroute/pkg/auth"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/labstack/echo/v4"
)

// MeResponse describes the authenticated caller
type MeResponse struct {
	UserID int         `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

// AuthHandler handles session endpoints. Tokens are issued by the auth
// provider; this service only validates and revokes them.
type AuthHandler struct {
	blacklist *auth.TokenBlacklist
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(blacklist *auth.TokenBlacklist) *AuthHandler {
	return &AuthHandler{blacklist: blacklist}
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, MeResponse{UserID: caller.UserID, Email: caller.Email, Role: caller.Role})
}

// Logout godoc
// @Summary Revoke the current token
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	token, _ := c.Get("token").(string)
	claims, _ := c.Get("claims").(*auth.Claims)
	if token == "" || h.blacklist == nil {
		return c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
	}
	if err := h.blacklist.Revoke(c.Request().Context(), token, claims); err != nil {
		return errors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Logged out"})
}
