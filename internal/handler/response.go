package handler

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"letterdesk/internal/auth"
	"letterdesk/internal/errors"
	"letterdesk/internal/policy"
)

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}

// fail converts a service error into an echo error with the standard body.
func fail(err error) *echo.HTTPError {
	mapped := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse())
}

func badRequest(msg, code string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: msg, Code: code})
}

// bindAndValidate binds the request body into req and runs the validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request body", "INVALID_REQUEST")
	}
	if err := c.Validate(req); err != nil {
		return badRequest(err.Error(), "VALIDATION_ERROR")
	}
	return nil
}

// claimsFrom returns the claims the JWT middleware stored on the context.
func claimsFrom(c echo.Context) (*auth.Claims, bool) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return nil, false
	}
	claims, ok := token.Claims.(*auth.Claims)
	return claims, ok
}

// actorFrom resolves the caller of a secured route.
func actorFrom(c echo.Context) (policy.Actor, error) {
	claims, ok := claimsFrom(c)
	if !ok {
		return policy.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "invalid token",
			Code:  "UNAUTHORIZED",
		})
	}
	return policy.Actor{ID: claims.UserID, Role: claims.Role}, nil
}
