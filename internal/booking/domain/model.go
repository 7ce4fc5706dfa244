package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Status is the booking lifecycle state. confirmed is only reachable from
// pending; cancelled and completed are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type Booking struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	CustomerID snowflake.ID `json:"customer_id" gorm:"not null;index"`
	PropertyID snowflake.ID `json:"property_id" gorm:"not null;index"`
	RoomID     snowflake.ID `json:"room_id" gorm:"not null;index"`

	Status      Status    `json:"status" gorm:"type:text;not null;default:pending"`
	CheckInDate time.Time `json:"check_in_date" gorm:"not null"`

	// MonthlyRent snapshots the room rent at booking time in minor units.
	MonthlyRent int64  `json:"monthly_rent" gorm:"not null"`
	Notes       string `json:"notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

var (
	ErrBookingNotFound   = errors.New("booking_not_found")
	ErrInvalidTransition = errors.New("invalid_booking_transition")
	ErrRoomUnavailable   = errors.New("room_unavailable")
	ErrNotBookingOwner   = errors.New("not_booking_owner")
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, b *Booking) error
	Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]Booking, error)
	List(ctx context.Context, db *gorm.DB, status Status, limit int) ([]Booking, error)

	// UpdateStatus applies a conditional transition and reports whether any
	// row matched the expected source states.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []Status, to Status) (bool, error)
}
