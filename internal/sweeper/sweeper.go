// Package sweeper periodically flags equipment coming due and pickups running late.
package sweeper

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"calibration-tracker/config"
	"calibration-tracker/internal/logging"
)

// Store is the part of store.Store the sweeper writes through.
type Store interface {
	FlagDueEquipment(ctx context.Context, cutoff time.Time) (int64, error)
	FlagOverdueOutgoing(ctx context.Context, now time.Time) (int64, error)
}

// Result counts the rows one sweep changed.
type Result struct {
	Due     int64
	Overdue int64
}

// Service runs the sweep on a fixed interval.
type Service struct {
	cfg      config.SweeperConfig
	store    Store
	interval time.Duration
	now      func() time.Time
}

// NewService creates a sweeper.
func NewService(cfg config.SweeperConfig, s Store) *Service {
	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	return &Service{cfg: cfg, store: s, interval: interval, now: time.Now}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	log := logging.L()
	if !s.cfg.Enabled {
		log.Info("sweeper is disabled, not starting")
		return
	}
	log.WithField("interval", s.interval).Info("starting sweeper")

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper shutting down")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// SweepOnce marks active equipment due within the lead window as pending calibration and
// flags pickups whose committed completion date has passed. A failure in one step does not
// skip the other.
func (s *Service) SweepOnce(ctx context.Context) Result {
	log := logging.L()
	now := s.now().UTC()
	cutoff := now.AddDate(0, 0, s.cfg.DueLeadDays)

	var res Result
	var err error
	if res.Due, err = s.store.FlagDueEquipment(ctx, cutoff); err != nil {
		log.WithError(err).Error("failed to flag due equipment")
	}
	if res.Overdue, err = s.store.FlagOverdueOutgoing(ctx, now); err != nil {
		log.WithError(err).Error("failed to flag overdue pickups")
	}

	log.WithFields(logrus.Fields{
		"due":     res.Due,
		"overdue": res.Overdue,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("sweep finished")
	return res
}
