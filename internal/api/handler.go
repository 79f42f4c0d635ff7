package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"calibration-tracker/internal/auth"
	"calibration-tracker/internal/logging"
	"calibration-tracker/internal/report"
	"calibration-tracker/internal/store"
	"calibration-tracker/internal/tracking"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	tracker *tracking.Manager
	reports *report.Service
	issuer  *auth.TokenIssuer
	webpush *webpush.Options
	loc     *time.Location
	now     func() time.Time
}

// NewHandler creates a new API handler. Dates without a zone are read in loc.
func NewHandler(s store.Store, tracker *tracking.Manager, reports *report.Service, issuer *auth.TokenIssuer, webpushOptions *webpush.Options, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		store:   s,
		tracker: tracker,
		reports: reports,
		issuer:  issuer,
		webpush: webpushOptions,
		loc:     loc,
		now:     time.Now,
	}
}

// respondError maps domain errors onto status codes. Anything unrecognised is logged
// and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	var verr *tracking.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, tracking.ErrDepartmentMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": "department mismatch"})
	case errors.Is(err, tracking.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": tracking.ErrNotOwner.Error()})
	case errors.Is(err, tracking.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, tracking.ErrAlreadyReleased),
		errors.Is(err, tracking.ErrAlreadyCompleted),
		errors.Is(err, tracking.ErrDuplicateSerial),
		errors.Is(err, tracking.ErrOpenLoanExists),
		errors.Is(err, tracking.ErrNoOpenLoan):
		c.JSON(http.StatusConflict, gin.H{"error": conflictMessage(err)})
	case errors.Is(err, tracking.ErrRecallExhausted):
		logging.L().WithError(err).WithField("request_id", c.GetString("request_id")).Error("recall numbers exhausted")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": tracking.ErrRecallExhausted.Error()})
	default:
		logging.L().WithError(err).WithField("request_id", c.GetString("request_id")).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func conflictMessage(err error) string {
	for _, known := range []error{
		tracking.ErrAlreadyReleased, tracking.ErrAlreadyCompleted, tracking.ErrDuplicateSerial,
		tracking.ErrOpenLoanExists, tracking.ErrNoOpenLoan,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "conflict"
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
}

// pathID reads a positive integer path parameter, answering 400 when it is malformed.
func pathID(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(n), true
}
