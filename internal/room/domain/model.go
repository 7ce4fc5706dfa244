package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Sharing describes how many tenants share a room.
type Sharing string

const (
	SharingSingle Sharing = "single"
	SharingDouble Sharing = "double"
	SharingTriple Sharing = "triple"
)

type Room struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	PropertyID snowflake.ID `json:"property_id" gorm:"not null;index"`

	Number  string  `json:"number" gorm:"type:text;not null"`
	Sharing Sharing `json:"sharing" gorm:"type:text;not null"`

	// RentMinor is the monthly rent per bed in currency minor units.
	RentMinor int64 `json:"rent_minor" gorm:"not null"`
	Capacity  int   `json:"capacity" gorm:"not null"`
	Occupied  int   `json:"occupied" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Room) TableName() string { return "rooms" }

func (r Room) Available() bool { return r.Occupied < r.Capacity }

var (
	ErrRoomNotFound = errors.New("room_not_found")
	ErrInvalidRent  = errors.New("invalid_rent")
	ErrRoomFull     = errors.New("room_full")
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, room *Room) error
	Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Room, error)
	ListByProperty(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) ([]Room, error)
	Update(ctx context.Context, db *gorm.DB, room *Room) error

	// AdjustOccupancy shifts the occupied count, guarded so it never exceeds
	// capacity or drops below zero. Returns false when the guard rejects.
	AdjustOccupancy(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int) (bool, error)
}
