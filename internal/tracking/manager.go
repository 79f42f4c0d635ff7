// Package tracking implements the calibration check-in/check-out lifecycle.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"calibration-tracker/internal/auth"
	"calibration-tracker/internal/logging"
	"calibration-tracker/internal/model"
	"calibration-tracker/internal/recall"
	"calibration-tracker/internal/store"
)

// Notifier receives the equipment id of every released cycle.
type Notifier interface {
	Dispatch(equipmentID uint)
}

// Manager validates lifecycle operations and runs them against the store.
// The acting user is always passed in explicitly.
type Manager struct {
	store    store.Store
	validate *validator.Validate
	recalls  *recall.Generator
	legacy   *recall.Generator
	notifier Notifier
	now      func() time.Time

	maxAttempts int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithNotifier sets the pickup notifier used after check-out.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithRecallAttempts caps the recall number retry loop.
func WithRecallAttempts(n int) Option {
	return func(m *Manager) { m.maxAttempts = n }
}

// NewManager creates a Manager backed by s.
func NewManager(s store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:       s,
		validate:    newValidator(),
		now:         time.Now,
		maxAttempts: recall.DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.recalls = recall.New(s.RecallExists, m.maxAttempts)
	m.legacy = recall.NewLegacy(s.TrackingRecallExists, m.maxAttempts, m.now)
	return m
}

// CycleHours is the whole number of hours from in to out, truncated toward zero.
func CycleHours(in, out time.Time) int {
	return int(out.Sub(in) / time.Hour)
}

// CheckIn opens an incoming record, registering new equipment first when requested.
func (m *Manager) CheckIn(ctx context.Context, actor *model.User, in CheckInInput) (*CheckInResult, error) {
	if in.EquipmentID != nil {
		in.NewEquipment = nil
	}
	if err := m.check(in); err != nil {
		return nil, err
	}

	loc, err := m.store.FindLocation(ctx, in.LocationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid("location_id", "unknown location")
	} else if err != nil {
		return nil, fmt.Errorf("load location %d: %w", in.LocationID, err)
	}
	if actor.DepartmentID != loc.DepartmentID || in.DepartmentID != loc.DepartmentID {
		return nil, ErrDepartmentMismatch
	}

	if _, err := m.store.FindUser(ctx, in.TechnicianID); errors.Is(err, store.ErrNotFound) {
		return nil, invalid("technician_id", "unknown technician")
	} else if err != nil {
		return nil, fmt.Errorf("load technician %d: %w", in.TechnicianID, err)
	}

	rec := &model.IncomingRecord{
		TechnicianID: in.TechnicianID,
		LocationID:   loc.ID,
		EmployeeInID: actor.ID,
		CalDate:      in.CalDate.UTC(),
		CalDueDate:   in.CalDueDate.UTC(),
		CycleTime:    0,
		Status:       model.IncomingReceived,
		Description:  strings.TrimSpace(in.Description),
	}

	params := store.CheckInParams{Record: rec}
	if in.EquipmentID != nil {
		eq, err := m.store.FindEquipment(ctx, *in.EquipmentID, false)
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalid("equipment_id", "unknown equipment")
		} else if err != nil {
			return nil, fmt.Errorf("load equipment %d: %w", *in.EquipmentID, err)
		}
		rec.EquipmentID = &eq.ID
		rec.SerialNumber, rec.Model, rec.Manufacturer = eq.SerialNumber, eq.Model, eq.Manufacturer
	} else {
		ne := in.NewEquipment
		serial := strings.TrimSpace(ne.SerialNumber)
		taken, err := m.store.SerialExists(ctx, serial)
		if err != nil {
			return nil, fmt.Errorf("check serial %q: %w", serial, err)
		}
		if taken {
			return nil, ErrDuplicateSerial
		}
		deptID, locID := loc.DepartmentID, loc.ID
		params.NewEquipment = &model.Equipment{
			SerialNumber: serial,
			Description:  strings.TrimSpace(ne.Description),
			Model:        strings.TrimSpace(ne.Model),
			Manufacturer: strings.TrimSpace(ne.Manufacturer),
			Plant:        strings.TrimSpace(ne.Plant),
			DepartmentID: &deptID,
			LocationID:   &locID,
			Status:       model.EquipmentActive,
		}
		rec.SerialNumber = serial
		rec.Model = params.NewEquipment.Model
		rec.Manufacturer = params.NewEquipment.Manufacturer
	}

	number, err := m.recallNumber(ctx, in.RecallNumber)
	if err != nil {
		return nil, err
	}
	rec.RecallNumber = &number
	rec.DateIn = m.utcNow()

	eq, created, err := m.store.CheckIn(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("check in: %w", err)
	}

	logging.L().WithFields(logrus.Fields{
		"incoming_id":  created.ID,
		"equipment_id": eq.ID,
		"recall":       number,
		"actor":        actor.ID,
	}).Info("equipment checked in")

	return &CheckInResult{Equipment: eq, Incoming: created}, nil
}

// CheckOut closes an incoming record, writes its outgoing row and opens the next cycle.
func (m *Manager) CheckOut(ctx context.Context, actor *model.User, incomingID uint, in CheckOutInput) (*CheckOutResult, error) {
	if err := m.check(in); err != nil {
		return nil, err
	}
	// Today is judged in the zone the due date was given in, not the server's.
	now := m.utcNow()
	today := dateOf(now.In(in.NextDueDate.Location()))
	if !dateOf(in.NextDueDate).After(today) {
		return nil, invalid("next_due_date", "must be after today")
	}

	rec, err := m.store.FindIncoming(ctx, incomingID)
	if err != nil {
		return nil, fmt.Errorf("load incoming record %d: %w", incomingID, err)
	}
	if err := m.sameDepartment(ctx, actor, rec); err != nil {
		return nil, err
	}
	if rec.Released() {
		return nil, ErrAlreadyReleased
	}

	number, err := m.recallNumber(ctx, in.RecallNumber)
	if err != nil {
		return nil, err
	}

	cycle := CycleHours(rec.DateIn, now)
	params := store.CheckOutParams{
		IncomingID:    rec.ID,
		At:            now,
		CalDate:       today.UTC(),
		EmployeeOutID: actor.ID,
		CycleTime:     cycle,
		NextDueDate:   in.NextDueDate.UTC(),
		NextRecall:    number,
		CTReqd:        in.CTReqd,
		CommitETC:     utcPtr(in.CommitETC),
		ActualETC:     utcPtr(in.ActualETC),
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		params.Description = &d
	}

	res, err := m.store.CheckOut(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("check out incoming record %d: %w", rec.ID, err)
	}

	log := logging.L().WithFields(logrus.Fields{
		"incoming_id":      rec.ID,
		"next_incoming_id": res.Next.ID,
		"cycle_time_hours": cycle,
		"overdue":          res.Outgoing.Overdue,
		"actor":            actor.ID,
	})
	if rec.EquipmentID != nil {
		log = log.WithField("equipment_id", *rec.EquipmentID)
		if m.notifier != nil {
			m.notifier.Dispatch(*rec.EquipmentID)
		}
	}
	log.Info("equipment checked out")

	return &CheckOutResult{
		Closed:         res.Closed,
		Outgoing:       res.Outgoing,
		Next:           res.Next,
		CycleTimeHours: cycle,
	}, nil
}

// StartCalibration moves a received record to in_calibration.
func (m *Manager) StartCalibration(ctx context.Context, actor *model.User, incomingID uint) (*model.IncomingRecord, error) {
	rec, err := m.store.FindIncoming(ctx, incomingID)
	if err != nil {
		return nil, fmt.Errorf("load incoming record %d: %w", incomingID, err)
	}
	if err := m.sameDepartment(ctx, actor, rec); err != nil {
		return nil, err
	}
	if rec.Released() {
		return nil, ErrAlreadyReleased
	}
	if err := m.store.StartCalibration(ctx, rec.ID); err != nil {
		return nil, fmt.Errorf("start calibration %d: %w", rec.ID, err)
	}
	rec.Status = model.IncomingInCalibration
	return rec, nil
}

// CompletePickup marks a released cycle as collected by its owner.
func (m *Manager) CompletePickup(ctx context.Context, actor *model.User, outgoingID uint) (*model.OutgoingRecord, error) {
	out, err := m.store.FindOutgoing(ctx, outgoingID)
	if err != nil {
		return nil, fmt.Errorf("load outgoing record %d: %w", outgoingID, err)
	}
	rec, err := m.store.FindIncoming(ctx, out.IncomingID)
	if err != nil {
		return nil, fmt.Errorf("load incoming record %d: %w", out.IncomingID, err)
	}
	if err := m.sameDepartment(ctx, actor, rec); err != nil {
		return nil, err
	}
	done, err := m.store.CompleteOutgoing(ctx, out.ID)
	if err != nil {
		return nil, fmt.Errorf("complete outgoing record %d: %w", out.ID, err)
	}
	return done, nil
}

// EmployeeCheckOut opens a self-service loan row for equipment the actor owns.
func (m *Manager) EmployeeCheckOut(ctx context.Context, actor *model.User, in SelfCheckOutInput) (*model.TrackingRecord, error) {
	if err := m.check(in); err != nil {
		return nil, err
	}
	if !auth.CheckSecret(actor.PinHash, in.PIN) {
		return nil, invalid("pin", "PIN is incorrect")
	}
	if _, err := m.ownedEquipment(ctx, actor, in.EquipmentID); err != nil {
		return nil, err
	}

	number, err := m.legacy.Generate(ctx)
	if err != nil {
		return nil, recallErr(err)
	}
	now := m.utcNow()
	actorID := actor.ID
	rec := &model.TrackingRecord{
		RecallNumber:  number,
		EquipmentID:   in.EquipmentID,
		EmployeeOutID: &actorID,
		DateOut:       &now,
		Description:   strings.TrimSpace(in.Description),
	}
	if err := m.store.OpenLoan(ctx, rec); err != nil {
		return nil, fmt.Errorf("open loan: %w", err)
	}

	logging.L().WithFields(logrus.Fields{
		"tracking_id":  rec.ID,
		"equipment_id": in.EquipmentID,
		"recall":       number,
		"actor":        actor.ID,
	}).Info("employee checked equipment out")
	return rec, nil
}

// EmployeeCheckIn closes the actor's open loan row for the equipment.
func (m *Manager) EmployeeCheckIn(ctx context.Context, actor *model.User, in SelfCheckInInput) (*model.TrackingRecord, error) {
	if err := m.check(in); err != nil {
		return nil, err
	}
	if !auth.CheckSecret(actor.PinHash, in.PIN) {
		return nil, invalid("pin", "PIN is incorrect")
	}
	if _, err := m.ownedEquipment(ctx, actor, in.EquipmentID); err != nil {
		return nil, err
	}
	if _, err := m.store.FindLocation(ctx, in.LocationID); errors.Is(err, store.ErrNotFound) {
		return nil, invalid("location_id", "unknown location")
	} else if err != nil {
		return nil, fmt.Errorf("load location %d: %w", in.LocationID, err)
	}

	open, err := m.store.FindOpenLoan(ctx, in.EquipmentID)
	if err != nil {
		return nil, fmt.Errorf("find open loan: %w", err)
	}

	now := m.utcNow()
	cycle := 0
	if open.DateOut != nil {
		cycle = CycleHours(*open.DateOut, now)
	}
	rec, err := m.store.CloseLoan(ctx, store.CloseLoanParams{
		RecordID:     open.ID,
		LocationID:   in.LocationID,
		EmployeeInID: actor.ID,
		At:           now,
		CycleTime:    cycle,
		Description:  strings.TrimSpace(in.Description),
	})
	if err != nil {
		return nil, fmt.Errorf("close loan %d: %w", open.ID, err)
	}

	logging.L().WithFields(logrus.Fields{
		"tracking_id":      rec.ID,
		"equipment_id":     in.EquipmentID,
		"cycle_time_hours": cycle,
		"actor":            actor.ID,
	}).Info("employee checked equipment in")
	return rec, nil
}

func (m *Manager) sameDepartment(ctx context.Context, actor *model.User, rec *model.IncomingRecord) error {
	if rec.Location == nil {
		loc, err := m.store.FindLocation(ctx, rec.LocationID)
		if err != nil {
			return fmt.Errorf("load location %d: %w", rec.LocationID, err)
		}
		rec.Location = loc
	}
	if actor.DepartmentID != rec.Location.DepartmentID {
		return ErrDepartmentMismatch
	}
	return nil
}

func (m *Manager) ownedEquipment(ctx context.Context, actor *model.User, id uint) (*model.Equipment, error) {
	eq, err := m.store.FindEquipment(ctx, id, false)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid("equipment_id", "unknown equipment")
	} else if err != nil {
		return nil, fmt.Errorf("load equipment %d: %w", id, err)
	}
	if eq.AssignedUserID == nil || *eq.AssignedUserID != actor.ID {
		return nil, ErrNotOwner
	}
	return eq, nil
}

// recallNumber returns the caller's number when it is free, otherwise draws a new one.
func (m *Manager) recallNumber(ctx context.Context, requested string) (string, error) {
	if requested == "" {
		number, err := m.recalls.Generate(ctx)
		if err != nil {
			return "", recallErr(err)
		}
		return number, nil
	}
	taken, err := m.store.RecallExists(ctx, requested)
	if err != nil {
		return "", fmt.Errorf("check recall number: %w", err)
	}
	if taken {
		return "", invalid("recall_number", "is already in use")
	}
	return requested, nil
}

func recallErr(err error) error {
	if errors.Is(err, recall.ErrExhausted) {
		return fmt.Errorf("%w: %v", ErrRecallExhausted, err)
	}
	return err
}

// utcNow is the clock reading every stored timestamp uses.
func (m *Manager) utcNow() time.Time {
	return m.now().UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
