package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"calibration-tracker/internal/logging"
	"calibration-tracker/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool sends "ready for pickup" pushes for released equipment.
type WorkerPool struct {
	size    int
	jobs    chan uint
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan uint, size*16),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := logging.L().WithField("worker", id)
	log.Debug("notification worker started")
	for {
		select {
		case equipmentID := <-wp.jobs:
			log.WithField("equipment_id", equipmentID).Debug("processing pickup notification")
			wp.sendPickupNotifications(ctx, equipmentID)
		case <-ctx.Done():
			log.Debug("notification worker shutting down")
			return
		}
	}
}

// Dispatch queues a pickup notification without blocking the caller.
// The job is dropped when the queue is full.
func (wp *WorkerPool) Dispatch(equipmentID uint) {
	select {
	case wp.jobs <- equipmentID:
	default:
		logging.L().WithField("equipment_id", equipmentID).Warn("notification queue full, dropping pickup notification")
	}
}

// sendPickupNotifications notifies every subscription watching the equipment.
func (wp *WorkerPool) sendPickupNotifications(ctx context.Context, equipmentID uint) {
	log := logging.L().WithField("equipment_id", equipmentID)

	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_equipment se ON se.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("se.equipment_id = ?", equipmentID).
		Find(&subscriptions).Error
	if err != nil {
		log.WithError(err).Error("failed to load subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	label := fmt.Sprintf("Equipment #%d", equipmentID)
	var eq model.Equipment
	if err := wp.db.WithContext(ctx).
		Select("serial_number", "description").
		First(&eq, equipmentID).Error; err != nil {
		log.WithError(err).Warn("failed to load equipment label")
	} else if eq.Description != "" {
		label = fmt.Sprintf("%s (%s)", eq.Description, eq.SerialNumber)
	}

	log.WithField("subscriptions", len(subscriptions)).Info("sending pickup notifications")
	message := []byte(label + " is calibrated and ready for pickup.")
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, message)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	log := logging.L().WithField("endpoint", sub.Endpoint)
	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.WithError(err).Error("failed to send notification")
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions are removed.
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		log.Info("subscription expired, deleting")
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.WithError(err).Error("failed to delete expired subscription")
		}
	}
}
