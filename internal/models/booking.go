package models

import (
	"time"

	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Salon is a shop offering services.
type Salon struct {
	gorm.Model
	Name        string  `json:"name" gorm:"not null"`
	Address     string  `json:"address"`
	Phone       string  `json:"phone"`
	Description string  `json:"description"`
	IsOpen      bool    `json:"isOpen" gorm:"not null;default:true"`
	Rating      float64 `json:"rating"`
}

func (Salon) TableName() string {
	return "salons"
}

// Service is a bookable offering of a salon. Price is in the smallest
// currency unit, duration in minutes.
type Service struct {
	gorm.Model
	SalonID     uint   `json:"salonId" gorm:"not null;index"`
	Salon       Salon  `json:"-"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price" gorm:"not null"`
	DurationMin int    `json:"duration" gorm:"column:duration_min;not null"`
}

func (Service) TableName() string {
	return "services"
}

// Booking is a client's appointment for a service at a salon.
type Booking struct {
	gorm.Model
	ClientID  uint          `json:"clientId" gorm:"not null;index"`
	Client    User          `json:"-"`
	SalonID   uint          `json:"salonId" gorm:"not null;index"`
	Salon     Salon         `json:"salon,omitempty"`
	ServiceID uint          `json:"serviceId" gorm:"not null"`
	Service   Service       `json:"service,omitempty"`
	StartAt   time.Time     `json:"startAt" gorm:"not null"`
	EndAt     time.Time     `json:"endAt"`
	Status    BookingStatus `json:"status" gorm:"not null;default:'pending'"`
	Notes     string        `json:"notes"`
}

func (Booking) TableName() string {
	return "bookings"
}
