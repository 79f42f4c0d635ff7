package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"calibration-tracker/internal/auth"
	"calibration-tracker/internal/model"
	"calibration-tracker/internal/store"
)

// ListDepartments returns every department by name.
func (h *Handler) ListDepartments(c *gin.Context) {
	ds, err := h.store.ListDepartments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

type createDepartmentRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

// CreateDepartment adds a department.
func (h *Handler) CreateDepartment(c *gin.Context) {
	var req createDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d := &model.Department{Name: strings.TrimSpace(req.Name)}
	if err := h.store.CreateDepartment(c.Request.Context(), d); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// ListLocations returns every location with its department.
func (h *Handler) ListLocations(c *gin.Context) {
	ls, err := h.store.ListLocations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ls)
}

type createLocationRequest struct {
	Name         string `json:"name" binding:"required,max=128"`
	DepartmentID uint   `json:"department_id" binding:"required"`
}

// CreateLocation adds a location to an existing department.
func (h *Handler) CreateLocation(c *gin.Context) {
	var req createLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.store.DB().WithContext(ctx).First(&model.Department{}, req.DepartmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": gin.H{"department_id": "unknown department"}})
			return
		}
		respondError(c, err)
		return
	}
	l := &model.Location{Name: strings.TrimSpace(req.Name), DepartmentID: req.DepartmentID}
	if err := h.store.CreateLocation(ctx, l); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

type createUserRequest struct {
	Name         string `json:"name" binding:"required,max=128"`
	EmployeeID   string `json:"employee_id" binding:"required,max=64"`
	Role         string `json:"role" binding:"required,oneof=admin technician employee"`
	DepartmentID uint   `json:"department_id" binding:"required"`
	Password     string `json:"password" binding:"required,min=8"`
	PIN          string `json:"pin" binding:"omitempty,numeric,min=4,max=12"`
}

// CreateUser registers an account, hashing its password and PIN.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	if _, err := h.store.FindUserByEmployeeID(ctx, req.EmployeeID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "employee id already registered"})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		respondError(c, err)
		return
	}

	pw, err := auth.HashSecret(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	u := &model.User{
		Name:         strings.TrimSpace(req.Name),
		EmployeeID:   strings.TrimSpace(req.EmployeeID),
		Role:         req.Role,
		DepartmentID: req.DepartmentID,
		PasswordHash: pw,
	}
	if req.PIN != "" {
		if u.PinHash, err = auth.HashSecret(req.PIN); err != nil {
			respondError(c, err)
			return
		}
	}
	if err := h.store.CreateUser(ctx, u); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}
