// README: Trip handlers: plan a ride, rank partners, accept one.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"maroonline/internal/modules/matching"
	"maroonline/internal/modules/profile"
	"maroonline/internal/modules/transit"
	"maroonline/internal/modules/trip"
	"maroonline/internal/types"
)

// TripConfig controls how a rider's target time becomes a travel window.
type TripConfig struct {
	Window   time.Duration
	Location *time.Location
}

type TripHandler struct {
	trips     *trip.Service
	matching  *matching.Service
	profiles  *profile.Service
	estimator transit.Estimator
	route     *matching.Route
	cfg       TripConfig
	now       func() time.Time
}

func NewTripHandler(
	trips *trip.Service,
	matchingSvc *matching.Service,
	profiles *profile.Service,
	estimator transit.Estimator,
	route *matching.Route,
	cfg TripConfig,
) *TripHandler {
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &TripHandler{
		trips:     trips,
		matching:  matchingSvc,
		profiles:  profiles,
		estimator: estimator,
		route:     route,
		cfg:       cfg,
		now:       time.Now,
	}
}

type createTripReq struct {
	Origin      string     `json:"origin" binding:"required"`
	Destination string     `json:"destination" binding:"required"`
	Mode        string     `json:"mode"`
	Time        *time.Time `json:"time"`
}

type commitReq struct {
	CandidateTripID string `json:"candidate_trip_id" binding:"required"`
}

type tripResp struct {
	Trip        *trip.Trip                `json:"trip"`
	Estimate    transit.Estimate          `json:"estimate"`
	Suggestions []matching.MatchCandidate `json:"suggestions"`
}

// Create handles POST /api/trips. The trip is stored first and then ranked
// against the open pool, so a rider with no partners yet still waits in it.
func (h *TripHandler) Create(c *gin.Context) {
	var req createTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, ok := callerProfile(c, h.profiles)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	origin, destination, err := h.stations(req.Origin, req.Destination)
	if err != nil {
		writeTripError(c, err)
		return
	}
	if origin.ID == destination.ID {
		writeError(c, http.StatusBadRequest, "origin and destination are the same station")
		return
	}

	at := h.now().In(h.cfg.Location)
	if req.Time != nil {
		at = req.Time.In(h.cfg.Location)
	}
	window, err := transit.PlanWindow(transit.WindowMode(strings.ToLower(req.Mode)), at, h.cfg.Window)
	if err != nil {
		writeTripError(c, err)
		return
	}

	est, err := h.estimator.Fastest(ctx, origin, destination, window.Earliest)
	if err != nil {
		writeTripError(c, err)
		return
	}

	t, err := h.trips.Create(ctx, trip.CreateCommand{
		ProfileID:      p.ID,
		Origin:         origin.ID,
		Destination:    destination.ID,
		Window:         window,
		FastestSeconds: est.Seconds,
	})
	if err != nil {
		writeTripError(c, err)
		return
	}

	cands, err := h.matching.FindMatches(ctx, p.ID, t.ID)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, tripResp{Trip: t, Estimate: est, Suggestions: cands})
}

func (h *TripHandler) List(c *gin.Context) {
	p, ok := callerProfile(c, h.profiles)
	if !ok {
		return
	}
	trips, err := h.trips.ListByProfile(c.Request.Context(), p.ID)
	if err != nil {
		writeTripError(c, err)
		return
	}
	if trips == nil {
		trips = []trip.Trip{}
	}
	writeJSON(c, http.StatusOK, gin.H{"trips": trips})
}

// Matches handles GET /api/trips/:id/matches and re-ranks against the
// current pool.
func (h *TripHandler) Matches(c *gin.Context) {
	p, ok := callerProfile(c, h.profiles)
	if !ok {
		return
	}
	cands, err := h.matching.FindMatches(c.Request.Context(), p.ID, types.ID(c.Param("id")))
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"suggestions": cands})
}

// Suggestions handles GET /api/trips/:id/suggestions: the cached ranking.
func (h *TripHandler) Suggestions(c *gin.Context) {
	p, ok := callerProfile(c, h.profiles)
	if !ok {
		return
	}
	cands, err := h.matching.Suggestions(c.Request.Context(), p.ID, types.ID(c.Param("id")))
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"suggestions": cands})
}

func (h *TripHandler) Commit(c *gin.Context) {
	var req commitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, ok := callerProfile(c, h.profiles)
	if !ok {
		return
	}
	chosen, err := h.matching.Commit(c.Request.Context(), p.ID, types.ID(c.Param("id")), types.ID(req.CandidateTripID))
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"match": chosen})
}

// ListMatches handles GET /api/matches.
func (h *TripHandler) ListMatches(c *gin.Context) {
	p, ok := callerProfile(c, h.profiles)
	if !ok {
		return
	}
	matches, err := h.trips.ListMatches(c.Request.Context(), p.ID)
	if err != nil {
		writeTripError(c, err)
		return
	}
	if matches == nil {
		matches = []trip.Match{}
	}
	writeJSON(c, http.StatusOK, gin.H{"matches": matches})
}

func (h *TripHandler) stations(originKey, destinationKey string) (matching.Station, matching.Station, error) {
	oi, err := h.route.Lookup(originKey)
	if err != nil {
		return matching.Station{}, matching.Station{}, err
	}
	di, err := h.route.Lookup(destinationKey)
	if err != nil {
		return matching.Station{}, matching.Station{}, err
	}
	origin, _ := h.route.Station(oi)
	destination, _ := h.route.Station(di)
	return origin, destination, nil
}
