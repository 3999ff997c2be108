// Package booking implements the salon appointment domain: catalog
// listings, client bookings and the staff-facing status workflow.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glamqueue/glamqueue/internal/models"
	"github.com/zerodha/logf"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrForbidden         = errors.New("not your booking")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrBadRequest        = errors.New("invalid booking request")
)

// transitions is the legal booking status state machine. Completed and
// cancelled are terminal.
var transitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingStatusPending:   {models.BookingStatusConfirmed, models.BookingStatusCancelled},
	models.BookingStatusConfirmed: {models.BookingStatusCompleted, models.BookingStatusCancelled},
}

// CreateRequest is a client's booking request.
type CreateRequest struct {
	SalonID   uint      `json:"salonId" validate:"required"`
	ServiceID uint      `json:"serviceId" validate:"required"`
	StartAt   time.Time `json:"startAt" validate:"required"`
	Notes     string    `json:"notes" validate:"max=500"`
}

// Service manages salon bookings.
type Service struct {
	db *gorm.DB
	lo logf.Logger
}

func NewService(db *gorm.DB, lo logf.Logger) *Service {
	return &Service{db: db, lo: lo}
}

// ListSalons returns currently open salons.
func (s *Service) ListSalons(ctx context.Context) ([]models.Salon, error) {
	var out []models.Salon
	err := s.db.WithContext(ctx).Where("is_open = ?", true).Order("name").Find(&out).Error
	return out, err
}

// ListServices returns the catalog, optionally scoped to one salon.
func (s *Service) ListServices(ctx context.Context, salonID uint) ([]models.Service, error) {
	q := s.db.WithContext(ctx).Order("name")
	if salonID != 0 {
		q = q.Where("salon_id = ?", salonID)
	}
	var out []models.Service
	err := q.Find(&out).Error
	return out, err
}

// Create books a service for a client. The service must belong to the
// salon and the start time must be in the future; the end time is
// derived from the service duration.
func (s *Service) Create(ctx context.Context, clientID uint, req CreateRequest) (models.Booking, error) {
	if !req.StartAt.After(time.Now()) {
		return models.Booking{}, fmt.Errorf("%w: start time must be in the future", ErrBadRequest)
	}

	var svc models.Service
	err := s.db.WithContext(ctx).
		Where("id = ? AND salon_id = ?", req.ServiceID, req.SalonID).
		First(&svc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Booking{}, fmt.Errorf("%w: service does not belong to salon", ErrBadRequest)
		}
		return models.Booking{}, err
	}

	b := models.Booking{
		ClientID:  clientID,
		SalonID:   req.SalonID,
		ServiceID: req.ServiceID,
		StartAt:   req.StartAt,
		EndAt:     req.StartAt.Add(time.Duration(svc.DurationMin) * time.Minute),
		Status:    models.BookingStatusPending,
		Notes:     req.Notes,
	}
	if err := s.db.WithContext(ctx).Create(&b).Error; err != nil {
		return models.Booking{}, err
	}

	s.lo.Info("booking created", "booking_id", b.ID, "client_id", clientID, "salon_id", req.SalonID)
	return b, nil
}

// ListForClient returns a client's own bookings, newest first.
func (s *Service) ListForClient(ctx context.Context, clientID uint) ([]models.Booking, error) {
	var out []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Service").Preload("Salon").
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListAll returns every booking for the admin dashboard, newest first.
func (s *Service) ListAll(ctx context.Context) ([]models.Booking, error) {
	var out []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Service").Preload("Salon").Preload("Client").
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// Cancel cancels a client's own pending or confirmed booking.
func (s *Service) Cancel(ctx context.Context, clientID, bookingID uint) (models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).First(&b, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b, ErrNotFound
		}
		return b, err
	}
	if b.ClientID != clientID {
		return b, ErrForbidden
	}
	return s.transition(ctx, b, models.BookingStatusCancelled)
}

// UpdateStatus moves a booking along the status workflow (staff side).
func (s *Service) UpdateStatus(ctx context.Context, bookingID uint, status models.BookingStatus) (models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).First(&b, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b, ErrNotFound
		}
		return b, err
	}
	return s.transition(ctx, b, status)
}

func (s *Service) transition(ctx context.Context, b models.Booking, to models.BookingStatus) (models.Booking, error) {
	ok := false
	for _, allowed := range transitions[b.Status] {
		if allowed == to {
			ok = true
			break
		}
	}
	if !ok {
		return b, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}

	if err := s.db.WithContext(ctx).Model(&b).Update("status", to).Error; err != nil {
		return b, err
	}
	b.Status = to
	return b, nil
}
