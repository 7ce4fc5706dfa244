package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Kind is the listing category.
type Kind string

const (
	KindPG        Kind = "pg"
	KindHostel    Kind = "hostel"
	KindApartment Kind = "apartment"
)

type Property struct {
	ID   snowflake.ID `json:"id" gorm:"primaryKey"`
	Slug string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Name string       `json:"name" gorm:"type:text;not null"`
	Kind Kind         `json:"kind" gorm:"type:text;not null"`

	City    string `json:"city" gorm:"type:text;not null;index"`
	Address string `json:"address" gorm:"type:text"`
	Active  bool   `json:"active" gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Property) TableName() string { return "properties" }

var (
	ErrPropertyNotFound = errors.New("property_not_found")
	ErrSlugTaken        = errors.New("property_slug_taken")
	ErrInvalidName      = errors.New("invalid_property_name")
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, p *Property) error
	Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Property, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Property, error)
	List(ctx context.Context, db *gorm.DB, city string, activeOnly bool) ([]Property, error)
	Update(ctx context.Context, db *gorm.DB, p *Property) error
}
