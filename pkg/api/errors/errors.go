package errors

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"strconv"

	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/labstack/echo/v4"
)

// ValidationError returns a generic validation error without exposing internal details
func ValidationError(c echo.Context, err error) error {
	log.Printf("[VALIDATION ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: "Invalid request data. Please check your input and try again.",
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context, err error) error {
	log.Printf("[INTERNAL ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred. Please try again later.",
	})
}

// UnauthorizedError returns a generic unauthorized error
func UnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: "You are not authorized to access this resource.",
	})
}

// NotFoundError returns a not found error naming the resource
func NotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: "The requested " + resource + " was not found.",
	})
}

type mapping struct {
	status int
	code   string
	// log marks failures worth an operator's attention.
	log bool
}

var mappings = map[string]mapping{
	domain.ErrCodeNotFound:            {http.StatusNotFound, "not_found", false},
	domain.ErrCodeValidation:          {http.StatusBadRequest, "validation_error", false},
	domain.ErrCodeBadRequest:          {http.StatusBadRequest, "bad_request", false},
	domain.ErrCodeUnauthorized:        {http.StatusUnauthorized, "unauthorized", false},
	domain.ErrCodeForbidden:           {http.StatusForbidden, "forbidden", false},
	domain.ErrCodeConflict:            {http.StatusConflict, "conflict", false},
	domain.ErrCodeNoResult:            {http.StatusUnprocessableEntity, "no_result", false},
	domain.ErrCodeUpstreamTimeout:     {http.StatusGatewayTimeout, "upstream_timeout", true},
	domain.ErrCodeUpstreamUnavailable: {http.StatusBadGateway, "upstream_unavailable", true},
	domain.ErrCodeUploadFailed:        {http.StatusBadGateway, "upload_failed", true},
	domain.ErrCodeRateLimited:         {http.StatusTooManyRequests, "rate_limit_exceeded", false},
}

// FromDomain writes the response for err. Domain errors keep their message,
// which is written for end users; anything else becomes a generic 500.
func FromDomain(c echo.Context, err error) error {
	if stderrors.Is(err, context.Canceled) {
		return c.NoContent(499)
	}

	var de *domain.DomainError
	if !stderrors.As(err, &de) {
		return InternalError(c, err)
	}
	m, ok := mappings[de.Code]
	if !ok {
		return InternalError(c, err)
	}
	if m.log {
		log.Printf("[UPSTREAM ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)
	}

	resp := models.ErrorResponse{Error: m.code, Message: de.Message}
	if de.Code == domain.ErrCodeRateLimited && de.RetryAfter > 0 {
		seconds := int(de.RetryAfter.Seconds() + 0.999)
		c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
		resp.RetryAfter = seconds
	}
	return c.JSON(m.status, resp)
}
