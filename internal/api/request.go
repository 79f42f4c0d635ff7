package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"calibration-tracker/internal/tracking"
)

// Date accepts "2006-01-02" or an RFC 3339 timestamp. Plain dates are resolved by the handler.
type Date struct {
	raw string
	t   time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.raw, d.t = s, t
		return nil
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	d.raw = s
	return nil
}

// In returns the date as a time; plain dates become midnight in loc.
func (d Date) In(loc *time.Location) time.Time {
	if d.raw == "" {
		return time.Time{}
	}
	if !d.t.IsZero() {
		return d.t
	}
	t, _ := time.ParseInLocation(dateLayout, d.raw, loc)
	return t
}

func optionalDate(d *Date, loc *time.Location) *time.Time {
	if d == nil || d.raw == "" {
		return nil
	}
	t := d.In(loc).UTC()
	return &t
}

const dateLayout = "2006-01-02"

type checkInRequest struct {
	EquipmentID  *uint                       `json:"equipment_id"`
	NewEquipment *tracking.NewEquipmentInput `json:"new_equipment"`
	TechnicianID uint                        `json:"technician_id"`
	LocationID   uint                        `json:"location_id"`
	DepartmentID uint                        `json:"department_id"`
	CalDate      Date                        `json:"cal_date"`
	CalDueDate   Date                        `json:"cal_due_date"`
	Description  string                      `json:"description"`
	RecallNumber string                      `json:"recall_number"`
}

func (r checkInRequest) input(loc *time.Location) tracking.CheckInInput {
	return tracking.CheckInInput{
		EquipmentID:  r.EquipmentID,
		NewEquipment: r.NewEquipment,
		TechnicianID: r.TechnicianID,
		LocationID:   r.LocationID,
		DepartmentID: r.DepartmentID,
		CalDate:      r.CalDate.In(loc),
		CalDueDate:   r.CalDueDate.In(loc),
		Description:  r.Description,
		RecallNumber: r.RecallNumber,
	}
}

type checkOutRequest struct {
	NextDueDate  Date   `json:"next_due_date"`
	Description  string `json:"description"`
	RecallNumber string `json:"recall_number"`
	CTReqd       int    `json:"ct_reqd"`
	CommitETC    *Date  `json:"commit_etc"`
	ActualETC    *Date  `json:"actual_etc"`
}

func (r checkOutRequest) input(loc *time.Location) tracking.CheckOutInput {
	return tracking.CheckOutInput{
		NextDueDate:  r.NextDueDate.In(loc),
		Description:  r.Description,
		RecallNumber: r.RecallNumber,
		CTReqd:       r.CTReqd,
		CommitETC:    optionalDate(r.CommitETC, loc),
		ActualETC:    optionalDate(r.ActualETC, loc),
	}
}
