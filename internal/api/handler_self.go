package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"calibration-tracker/internal/mw"
	"calibration-tracker/internal/tracking"
)

// SelfCheckOut lets an employee take their own equipment out, confirmed by PIN.
func (h *Handler) SelfCheckOut(c *gin.Context) {
	var in tracking.SelfCheckOutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.tracker.EmployeeCheckOut(c.Request.Context(), mw.CurrentUser(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// SelfCheckIn closes the employee's open loan.
func (h *Handler) SelfCheckIn(c *gin.Context) {
	var in tracking.SelfCheckInInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.tracker.EmployeeCheckIn(c.Request.Context(), mw.CurrentUser(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
