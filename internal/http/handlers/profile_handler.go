// README: Profile and catalogue handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maroonline/internal/http/middleware"
	"maroonline/internal/modules/matching"
	"maroonline/internal/modules/profile"
)

type ProfileHandler struct {
	profiles *profile.Service
	route    *matching.Route
}

func NewProfileHandler(profiles *profile.Service, route *matching.Route) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, route: route}
}

type saveInterestsReq struct {
	Interests []string `json:"interests"`
}

func (h *ProfileHandler) Get(c *gin.Context) {
	p, ok := callerProfile(c, h.profiles)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, p)
}

// Save handles PUT /api/profile; the interest list replaces the stored one.
func (h *ProfileHandler) Save(c *gin.Context) {
	var req saveInterestsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.profiles.Save(c.Request.Context(), middleware.CallerEmail(c), req.Interests)
	if err != nil {
		writeProfileError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (h *ProfileHandler) Topics(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"topics": h.profiles.Topics()})
}

func (h *ProfileHandler) Stations(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"route": h.route.Name(), "stations": h.route.Stations()})
}
