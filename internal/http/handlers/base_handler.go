// README: Base handler utilities (JSON helpers, caller lookup, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"maroonline/internal/http/middleware"
	"maroonline/internal/modules/auth"
	"maroonline/internal/modules/icebreaker"
	"maroonline/internal/modules/matching"
	"maroonline/internal/modules/profile"
	"maroonline/internal/modules/transit"
	"maroonline/internal/modules/trip"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// callerProfile returns the signed-in rider's profile, creating it on first use.
func callerProfile(c *gin.Context, profiles *profile.Service) (*profile.Profile, bool) {
	email := middleware.CallerEmail(c)
	if email == "" {
		writeError(c, http.StatusUnauthorized, "unauthenticated")
		return nil, false
	}
	p, err := profiles.Ensure(c.Request.Context(), email)
	if err != nil {
		writeProfileError(c, err)
		return nil, false
	}
	return p, true
}

func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrDomainNotAllowed):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrRateLimited):
		writeError(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, auth.ErrInvalidCode), errors.Is(err, auth.ErrUnauthenticated):
		writeError(c, http.StatusUnauthorized, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeProfileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, profile.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, profile.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeTripError(c *gin.Context, err error) {
	switch {
	case matching.IsInputError(err), errors.Is(err, trip.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, matching.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, trip.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, trip.ErrConflict), errors.Is(err, matching.ErrLocked), errors.Is(err, matching.ErrNotSuggested):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, transit.ErrNoService):
		writeError(c, http.StatusUnprocessableEntity, transit.ErrNoService.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeIcebreakerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, icebreaker.ErrInsufficientTokens):
		writeError(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, icebreaker.ErrDisabled):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		writeTripError(c, err)
	}
}
