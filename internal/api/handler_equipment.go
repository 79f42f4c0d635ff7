package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"calibration-tracker/internal/model"
	"calibration-tracker/internal/parse"
	"calibration-tracker/internal/store"
)

// equipmentView adds the split process requirement range to the stored row.
type equipmentView struct {
	*model.Equipment
	ProcessReqStart string `json:"process_req_start"`
	ProcessReqEnd   string `json:"process_req_end"`
}

func viewEquipment(e *model.Equipment) equipmentView {
	r := parse.ParseRange(e.ProcessReqRange)
	return equipmentView{Equipment: e, ProcessReqStart: r.Start, ProcessReqEnd: r.End}
}

// ListEquipment returns a page of equipment.
func (h *Handler) ListEquipment(c *gin.Context) {
	q := store.EquipmentQuery{
		Q:            c.Query("q"),
		Status:       c.Query("status"),
		WithArchived: c.Query("archived") == "true",
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("size", "50"))

	items, total, err := h.store.ListEquipment(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]equipmentView, len(items))
	for i := range items {
		views[i] = viewEquipment(&items[i])
	}
	c.JSON(http.StatusOK, gin.H{"items": views, "total": total})
}

// GetEquipment returns one piece of equipment, archived ones included.
func (h *Handler) GetEquipment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	e, err := h.store.FindEquipment(c.Request.Context(), id, true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewEquipment(e))
}

type createEquipmentRequest struct {
	SerialNumber    string `json:"serial_number" binding:"required,max=120"`
	Description     string `json:"description" binding:"required,max=255"`
	Model           string `json:"model" binding:"max=120"`
	Manufacturer    string `json:"manufacturer" binding:"max=120"`
	Plant           string `json:"plant" binding:"max=120"`
	DepartmentID    *uint  `json:"department_id"`
	LocationID      *uint  `json:"location_id"`
	AssignedUserID  *uint  `json:"assigned_user_id"`
	ProcessReqStart string `json:"process_req_start"`
	ProcessReqEnd   string `json:"process_req_end"`
	NextDueDate     *Date  `json:"next_calibration_date"`
}

// CreateEquipment registers equipment outside of a check-in.
func (h *Handler) CreateEquipment(c *gin.Context) {
	var req createEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	e := &model.Equipment{
		SerialNumber:        strings.TrimSpace(req.SerialNumber),
		Description:         strings.TrimSpace(req.Description),
		Model:               strings.TrimSpace(req.Model),
		Manufacturer:        strings.TrimSpace(req.Manufacturer),
		Plant:               strings.TrimSpace(req.Plant),
		DepartmentID:        req.DepartmentID,
		LocationID:          req.LocationID,
		AssignedUserID:      req.AssignedUserID,
		NextCalibrationDate: optionalDate(req.NextDueDate, h.loc),
	}
	e.SetProcessReq(req.ProcessReqStart, req.ProcessReqEnd)

	if err := h.store.CreateEquipment(c.Request.Context(), e); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewEquipment(e))
}

type updateEquipmentRequest struct {
	Description     *string `json:"description" binding:"omitempty,max=255"`
	Status          *string `json:"status" binding:"omitempty,oneof=active inactive pending_calibration in_calibration retired"`
	AssignedUserID  *uint   `json:"assigned_user_id"`
	LocationID      *uint   `json:"location_id"`
	Plant           *string `json:"plant" binding:"omitempty,max=120"`
	ProcessReqStart *string `json:"process_req_start"`
	ProcessReqEnd   *string `json:"process_req_end"`
}

// UpdateEquipment changes status, owner, location or the process requirement range.
func (h *Handler) UpdateEquipment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	fields := map[string]any{}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		fields["status"] = *req.Status
	}
	if req.AssignedUserID != nil {
		fields["assigned_user_id"] = *req.AssignedUserID
	}
	if req.LocationID != nil {
		fields["location_id"] = *req.LocationID
	}
	if req.Plant != nil {
		fields["plant"] = strings.TrimSpace(*req.Plant)
	}
	if req.ProcessReqStart != nil || req.ProcessReqEnd != nil {
		current, err := h.store.FindEquipment(ctx, id, false)
		if err != nil {
			respondError(c, err)
			return
		}
		start, end := current.ProcessReqStart(), current.ProcessReqEnd()
		if req.ProcessReqStart != nil {
			start = *req.ProcessReqStart
		}
		if req.ProcessReqEnd != nil {
			end = *req.ProcessReqEnd
		}
		fields["process_req_range"] = parse.FormatRange(start, end)
	}

	e, err := h.store.UpdateEquipment(ctx, id, fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewEquipment(e))
}

// ArchiveEquipment soft-deletes equipment.
func (h *Handler) ArchiveEquipment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.ArchiveEquipment(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RestoreEquipment brings archived equipment back.
func (h *Handler) RestoreEquipment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.RestoreEquipment(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
