package report

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"calibration-tracker/internal/model"
)

const timeLayout = "2006-01-02 15:04"

var titler = cases.Title(language.English)

// Row is one incoming record flattened for the report table and its exports.
type Row struct {
	ID                   uint       `json:"id"`
	RecallNumber         string     `json:"recall_number"`
	EquipmentDescription string     `json:"equipment_description"`
	SerialNumber         string     `json:"serial_number"`
	Model                string     `json:"model"`
	Manufacturer         string     `json:"manufacturer"`
	Status               string     `json:"status"`
	Location             string     `json:"location"`
	Technician           string     `json:"technician"`
	EmployeeIn           string     `json:"employee_in"`
	EmployeeOut          string     `json:"employee_out"`
	DateIn               time.Time  `json:"date_in"`
	DateOut              *time.Time `json:"date_out"`
	CalDueDate           time.Time  `json:"cal_due_date"`
	CycleTime            int        `json:"cycle_time"`
	Overdue              bool       `json:"overdue"`
	PickupStatus         string     `json:"pickup_status"`
	Notes                string     `json:"notes"`
}

// TitleStatus turns "in_calibration" into "In Calibration".
func TitleStatus(s string) string {
	return titler.String(strings.ReplaceAll(s, "_", " "))
}

// BuildRow flattens rec. Equipment fields fall back to the record's own snapshot when no
// equipment row is linked.
func BuildRow(rec *model.IncomingRecord) Row {
	r := Row{
		ID:           rec.ID,
		RecallNumber: rec.Recall(),
		SerialNumber: rec.SerialNumber,
		Model:        rec.Model,
		Manufacturer: rec.Manufacturer,
		Status:       TitleStatus(rec.Stage()),
		DateIn:       rec.DateIn,
		DateOut:      rec.DateOut,
		CalDueDate:   rec.CalDueDate,
		CycleTime:    rec.CycleTime,
		Notes:        rec.Description,
	}
	if eq := rec.Equipment; eq != nil {
		r.EquipmentDescription = eq.Description
		r.SerialNumber = eq.SerialNumber
		r.Model = eq.Model
		r.Manufacturer = eq.Manufacturer
	}
	if rec.Location != nil {
		r.Location = rec.Location.Name
	}
	r.Technician = userName(rec.Technician)
	r.EmployeeIn = userName(rec.EmployeeIn)
	r.EmployeeOut = userName(rec.EmployeeOut)
	if out := rec.Outgoing; out != nil {
		r.CycleTime = out.CycleTime
		r.Overdue = out.Overdue
		r.PickupStatus = TitleStatus(out.Status)
		if r.EmployeeOut == "" {
			r.EmployeeOut = userName(out.EmployeeOut)
		}
	}
	return r
}

// Header is the column order shared by every export.
var Header = []string{
	"Recall Number", "Equipment", "Serial Number", "Model", "Manufacturer", "Status",
	"Location", "Technician", "Received By", "Released By", "Date In", "Date Out",
	"Cycle Time (h)", "Notes",
}

// Cells formats the row in Header order.
func (r Row) Cells() []string {
	dateOut := ""
	if r.DateOut != nil {
		dateOut = r.DateOut.Format(timeLayout)
	}
	cycle := ""
	if r.DateOut != nil {
		cycle = strconv.Itoa(r.CycleTime)
	}
	return []string{
		r.RecallNumber, r.EquipmentDescription, r.SerialNumber, r.Model, r.Manufacturer, r.Status,
		r.Location, r.Technician, r.EmployeeIn, r.EmployeeOut, r.DateIn.Format(timeLayout), dateOut,
		cycle, r.Notes,
	}
}

func userName(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.Name
}
