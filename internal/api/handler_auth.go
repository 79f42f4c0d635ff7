package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"calibration-tracker/internal/auth"
	"calibration-tracker/internal/mw"
	"calibration-tracker/internal/store"
)

type loginRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// Login exchanges an employee id and password for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.store.FindUserByEmployeeID(c.Request.Context(), req.EmployeeID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		respondError(c, err)
		return
	}
	if user == nil || !auth.CheckSecret(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, exp, err := h.issuer.Issue(user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": exp, "user": user})
}

// Me returns the authenticated user.
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, mw.CurrentUser(c))
}
