// README: Login handlers: request a code, trade it for a session, log out.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"maroonline/internal/http/middleware"
	"maroonline/internal/modules/auth"
)

type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc}
}

type requestCodeReq struct {
	Email string `json:"email" binding:"required"`
}

type verifyReq struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// RequestCode handles POST /api/auth/code.
func (h *AuthHandler) RequestCode(c *gin.Context) {
	var req requestCodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.auth.RequestCode(c.Request.Context(), strings.TrimSpace(req.Email)); err != nil {
		writeAuthError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, gin.H{"status": "sent"})
}

// Verify handles POST /api/auth/verify.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	session, err := h.auth.Verify(c.Request.Context(), strings.TrimSpace(req.Email), strings.TrimSpace(req.Code))
	if err != nil {
		writeAuthError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, session)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.SessionToken(c)); err != nil {
		writeAuthError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
