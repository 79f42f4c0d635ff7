package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"calibration-tracker/internal/model"
	"calibration-tracker/internal/mw"
)

// CheckIn receives equipment for calibration and opens an incoming record.
func (h *Handler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.tracker.CheckIn(c.Request.Context(), mw.CurrentUser(c), req.input(h.loc))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetIncoming returns one incoming record. With ?view=tracking it is projected
// onto the single-row tracking shape older clients read.
func (h *Handler) GetIncoming(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rec, err := h.store.FindIncoming(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("view") == "tracking" {
		c.JSON(http.StatusOK, model.TrackingRecordFromIncoming(rec))
		return
	}
	c.JSON(http.StatusOK, rec)
}

// StartCalibration moves a received record into calibration.
func (h *Handler) StartCalibration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rec, err := h.tracker.StartCalibration(c.Request.Context(), mw.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CheckOut releases calibrated equipment and opens its next cycle.
func (h *Handler) CheckOut(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req checkOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.tracker.CheckOut(c.Request.Context(), mw.CurrentUser(c), id, req.input(h.loc))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CompletePickup marks an outgoing record as collected.
func (h *Handler) CompletePickup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.tracker.CompletePickup(c.Request.Context(), mw.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
