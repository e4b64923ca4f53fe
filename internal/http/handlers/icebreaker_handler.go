// README: Icebreaker handler (token-guarded Gemini conversation starter).
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"maroonline/internal/modules/icebreaker"
	"maroonline/internal/modules/matching"
	"maroonline/internal/modules/profile"
	"maroonline/internal/modules/trip"
	"maroonline/internal/types"
)

type IcebreakerHandler struct {
	icebreaker *icebreaker.Service
	matching   *matching.Service
	trips      *trip.Service
	profiles   *profile.Service
}

func NewIcebreakerHandler(svc *icebreaker.Service, matchingSvc *matching.Service, trips *trip.Service, profiles *profile.Service) *IcebreakerHandler {
	return &IcebreakerHandler{icebreaker: svc, matching: matchingSvc, trips: trips, profiles: profiles}
}

type icebreakerReq struct {
	CandidateTripID string `json:"candidate_trip_id" binding:"required"`
}

// Suggest handles POST /api/trips/:id/icebreaker. The candidate must be a
// current suggestion or a committed partner of the caller's trip.
func (h *IcebreakerHandler) Suggest(c *gin.Context) {
	if !h.icebreaker.Enabled() {
		writeIcebreakerError(c, icebreaker.ErrDisabled)
		return
	}
	var req icebreakerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, ok := callerProfile(c, h.profiles)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	tripID := types.ID(c.Param("id"))
	candidateID := types.ID(req.CandidateTripID)

	own, err := h.trips.GetRequest(ctx, tripID)
	if err != nil {
		writeIcebreakerError(c, err)
		return
	}
	if own.Trip.Owner != p.ID {
		writeIcebreakerError(c, matching.ErrForbidden)
		return
	}
	paired, err := h.paired(ctx, p.ID, tripID, candidateID)
	if err != nil {
		writeIcebreakerError(c, err)
		return
	}
	if !paired {
		writeIcebreakerError(c, matching.ErrNotSuggested)
		return
	}
	other, err := h.trips.GetRequest(ctx, candidateID)
	if err != nil {
		writeIcebreakerError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s, err := h.icebreaker.Suggest(ctx, p.ID, own.Interests.Intersect(other.Interests).Labels())
	if err != nil {
		writeIcebreakerError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, s)
}

func (h *IcebreakerHandler) paired(ctx context.Context, profileID, tripID, candidateID types.ID) (bool, error) {
	cands, err := h.matching.Suggestions(ctx, profileID, tripID)
	if err != nil {
		return false, err
	}
	for _, cand := range cands {
		if cand.TripID == candidateID {
			return true, nil
		}
	}
	matches, err := h.trips.ListMatches(ctx, profileID)
	if err != nil {
		return false, err
	}
	for _, m := range matches {
		if (m.TripA == tripID && m.TripB == candidateID) || (m.TripB == tripID && m.TripA == candidateID) {
			return true, nil
		}
	}
	return false, nil
}
