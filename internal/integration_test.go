package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibration-tracker/config"
	"calibration-tracker/internal/api"
	"calibration-tracker/internal/auth"
	"calibration-tracker/internal/db/dbtest"
	"calibration-tracker/internal/model"
	"calibration-tracker/internal/report"
	"calibration-tracker/internal/store"
	"calibration-tracker/internal/sweeper"
	"calibration-tracker/internal/tracking"
)

type pickups struct{ ids []uint }

func (p *pickups) Dispatch(id uint) { p.ids = append(p.ids, id) }

// TestCalibrationLifecycle drives one piece of equipment through check-in, calibration,
// check-out and pickup over HTTP, with a sweep between check-out and pickup.
func TestCalibrationLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// --- Setup ---
	testDB := dbtest.Open(t)
	base := time.Now().UTC().Truncate(time.Hour)
	offset := time.Duration(0)
	clock := func() time.Time { return base.Add(offset) }

	dept := model.Department{Name: "Metrology"}
	require.NoError(t, testDB.Create(&dept).Error)
	lab := model.Location{Name: "Cal Lab", DepartmentID: dept.ID}
	require.NoError(t, testDB.Create(&lab).Error)
	pw, err := auth.HashSecret("s3cret-pass")
	require.NoError(t, err)
	tech := model.User{Name: "Tess Tech", EmployeeID: "T-1", Role: model.RoleTechnician, DepartmentID: dept.ID, PasswordHash: pw}
	require.NoError(t, testDB.Create(&tech).Error)

	gormStore := store.NewGormStore(testDB)
	notified := &pickups{}
	manager := tracking.NewManager(gormStore, tracking.WithClock(clock), tracking.WithNotifier(notified))
	handler := api.NewHandler(gormStore, manager, report.NewService(gormStore), auth.NewTokenIssuer("it-secret", time.Hour), nil, time.UTC)
	router := api.NewRouter(config.ServerConfig{RateLimitPerSec: 100, RateLimitBurst: 100, CacheTTLSeconds: 60}, handler)
	sweep := sweeper.NewService(config.SweeperConfig{Enabled: true, IntervalSeconds: 60, DueLeadDays: 14}, gormStore)

	call := func(method, path, token string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}
	date := func(t time.Time) string { return t.Format("2006-01-02") }

	w := call(http.MethodPost, "/api/auth/login", "", gin.H{"employee_id": "T-1", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	token := login.Token

	// --- Check-in ---
	var checkIn tracking.CheckInResult
	t.Run("check in", func(t *testing.T) {
		w := call(http.MethodPost, "/api/incoming", token, gin.H{
			"new_equipment": gin.H{"serial_number": "MIC-0042", "description": "Outside micrometer", "manufacturer": "Mitutoyo"},
			"technician_id": tech.ID,
			"location_id":   lab.ID,
			"department_id": dept.ID,
			"cal_date":      date(base),
			"cal_due_date":  date(base.AddDate(0, 1, 0)),
			"description":   "annual",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkIn))
		assert.Equal(t, model.IncomingReceived, checkIn.Incoming.Status)

		var equipment model.Equipment
		require.NoError(t, testDB.First(&equipment, checkIn.Equipment.ID).Error)
		assert.Equal(t, model.EquipmentInCalibration, equipment.Status)

		w = call(http.MethodPost, "/api/incoming/"+strconv.Itoa(int(checkIn.Incoming.ID))+"/start", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	// --- Check-out, 30 hours later ---
	var checkOut tracking.CheckOutResult
	t.Run("check out", func(t *testing.T) {
		offset = 30 * time.Hour
		w := call(http.MethodPost, "/api/incoming/"+strconv.Itoa(int(checkIn.Incoming.ID))+"/checkout", token, gin.H{
			"next_due_date": date(base.AddDate(0, 0, 7)),
			"ct_reqd":       24,
			"commit_etc":    date(base.AddDate(0, 0, -1)),
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkOut))

		assert.Equal(t, 30, checkOut.CycleTimeHours)
		assert.True(t, checkOut.Outgoing.Overdue)
		assert.Equal(t, model.OutgoingForPickup, checkOut.Outgoing.Status)
		assert.Equal(t, []uint{checkIn.Equipment.ID}, notified.ids)

		var equipment model.Equipment
		require.NoError(t, testDB.First(&equipment, checkIn.Equipment.ID).Error)
		require.NotNil(t, equipment.NextCalibrationDate)
		assert.Equal(t, date(base.AddDate(0, 0, 7)), date(equipment.NextCalibrationDate.UTC()))

		var open int64
		testDB.Model(&model.IncomingRecord{}).Where("date_out IS NULL").Count(&open)
		assert.EqualValues(t, 1, open, "exactly the next cycle stays open")
	})

	// --- Sweep ---
	t.Run("sweep", func(t *testing.T) {
		res := sweep.SweepOnce(context.Background())
		assert.EqualValues(t, 1, res.Due)

		var equipment model.Equipment
		require.NoError(t, testDB.First(&equipment, checkIn.Equipment.ID).Error)
		assert.Equal(t, model.EquipmentPendingCalibration, equipment.Status)

		again := sweep.SweepOnce(context.Background())
		assert.Zero(t, again.Due)
		assert.Zero(t, again.Overdue)
	})

	// --- Pickup and report ---
	t.Run("pickup and report", func(t *testing.T) {
		w := call(http.MethodPost, "/api/outgoing/"+strconv.Itoa(int(checkOut.Outgoing.ID))+"/complete", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = call(http.MethodGet, "/api/reports/tracking?search=mic-0042", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Rows  []report.Row `json:"rows"`
			Count int          `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, 2, body.Count)

		next, closed := body.Rows[0], body.Rows[1]
		assert.Equal(t, "Received", next.Status)
		assert.Nil(t, next.DateOut)
		assert.Equal(t, "Released", closed.Status)
		assert.Equal(t, 30, closed.CycleTime)
		assert.True(t, closed.Overdue)
		assert.Equal(t, "Completed", closed.PickupStatus)
		assert.Equal(t, "Tess Tech", closed.EmployeeOut)
	})
}
