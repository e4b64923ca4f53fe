package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"maroonline/internal/modules/auth"
	"maroonline/internal/modules/icebreaker"
	"maroonline/internal/modules/matching"
	"maroonline/internal/modules/profile"
	"maroonline/internal/modules/transit"
	"maroonline/internal/modules/trip"
)

func statusOf(write func(*gin.Context, error), err error) int {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	write(c, err)
	return w.Code
}

func TestWriteTripError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", matching.ErrInvalidStation), http.StatusBadRequest},
		{matching.ErrInvalidWindow, http.StatusBadRequest},
		{matching.ErrMissingSpeedData, http.StatusBadRequest},
		{trip.ErrBadRequest, http.StatusBadRequest},
		{matching.ErrForbidden, http.StatusForbidden},
		{trip.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("commit: %w", trip.ErrConflict), http.StatusConflict},
		{matching.ErrLocked, http.StatusConflict},
		{matching.ErrNotSuggested, http.StatusConflict},
		{fmt.Errorf("%w: cta: timeout", transit.ErrNoService), http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(writeTripError, tc.err), tc.err.Error())
	}
}

func TestWriteAuthAndProfileErrors(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, statusOf(writeAuthError, auth.ErrDomainNotAllowed))
	assert.Equal(t, http.StatusTooManyRequests, statusOf(writeAuthError, auth.ErrRateLimited))
	assert.Equal(t, http.StatusUnauthorized, statusOf(writeAuthError, auth.ErrInvalidCode))
	assert.Equal(t, http.StatusBadRequest, statusOf(writeProfileError, profile.ErrValidation))
	assert.Equal(t, http.StatusNotFound, statusOf(writeProfileError, profile.ErrNotFound))
}

func TestWriteIcebreakerError(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, statusOf(writeIcebreakerError, icebreaker.ErrInsufficientTokens))
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(writeIcebreakerError, icebreaker.ErrDisabled))
	assert.Equal(t, http.StatusForbidden, statusOf(writeIcebreakerError, matching.ErrForbidden))
}
