package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Role separates tenants from back-office staff on the same account table.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)

type Customer struct {
	ID    snowflake.ID `json:"id" gorm:"primaryKey"`
	Name  string       `json:"name" gorm:"type:text;not null"`
	Email string       `json:"email" gorm:"type:text;not null;uniqueIndex"`
	Phone string       `json:"phone" gorm:"type:text"`
	Role  Role         `json:"role" gorm:"type:text;not null;default:customer"`

	PasswordHash string `json:"-" gorm:"type:text;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

var (
	ErrCustomerNotFound = errors.New("customer_not_found")
	ErrEmailTaken       = errors.New("email_taken")
	ErrBadCredentials   = errors.New("bad_credentials")
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, c *Customer) error
	Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Customer, error)
}
