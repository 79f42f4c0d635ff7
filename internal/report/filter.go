package report

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"calibration-tracker/internal/store"
	"calibration-tracker/internal/tracking"
)

// DateLayout is the format of date_from and date_to.
const DateLayout = "2006-01-02"

// FilterKeys are the query keys ParseFilter understands.
var FilterKeys = []string{
	"search", "equipment_name", "recall_number", "status",
	"technician_id", "location_id", "date_from", "date_to",
}

// ParseFilter reads the report filter from query values. Dates are interpreted in loc and
// date_to covers its whole day up to 23:59:59.
func ParseFilter(v url.Values, loc *time.Location) (store.ReportFilter, error) {
	if loc == nil {
		loc = time.Local
	}
	f := store.ReportFilter{
		Search:        strings.TrimSpace(v.Get("search")),
		EquipmentName: strings.TrimSpace(v.Get("equipment_name")),
		RecallNumber:  strings.TrimSpace(v.Get("recall_number")),
		Status:        strings.TrimSpace(v.Get("status")),
	}
	fields := map[string]string{}

	parseID := func(key string) *uint {
		raw := strings.TrimSpace(v.Get(key))
		if raw == "" {
			return nil
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			fields[key] = "must be a positive integer"
			return nil
		}
		id := uint(n)
		return &id
	}
	parseDate := func(key string) *time.Time {
		raw := strings.TrimSpace(v.Get(key))
		if raw == "" {
			return nil
		}
		d, err := time.ParseInLocation(DateLayout, raw, loc)
		if err != nil {
			fields[key] = "must be a date in YYYY-MM-DD format"
			return nil
		}
		return &d
	}

	f.TechnicianID = parseID("technician_id")
	f.LocationID = parseID("location_id")
	f.DateFrom = parseDate("date_from")
	if to := parseDate("date_to"); to != nil {
		end := to.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		f.DateTo = &end
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		fields["date_to"] = "must not be before date_from"
	}

	if len(fields) > 0 {
		return store.ReportFilter{}, &tracking.ValidationError{Fields: fields}
	}
	return f, nil
}
