package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Status is the payment lifecycle state. Transitions only move forward:
// pending -> initiated -> completed | failed. Terminal states are sticky.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInitiated Status = "initiated"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// PaymentRecord is the authoritative financial record. Rows are never deleted;
// completed rows are never rewritten by later gateway events.
type PaymentRecord struct {
	ID         snowflake.ID  `json:"id" gorm:"primaryKey"`
	CustomerID snowflake.ID  `json:"customer_id" gorm:"not null;index"`
	BookingID  *snowflake.ID `json:"booking_id" gorm:"index"`

	Amount      int64  `json:"amount" gorm:"not null"`
	LateFee     int64  `json:"late_fee" gorm:"not null;default:0"`
	Status      Status `json:"status" gorm:"type:text;not null;default:pending;index"`
	PeriodMonth int    `json:"period_month" gorm:"not null"`
	PeriodYear  int    `json:"period_year" gorm:"not null"`

	DueDate *time.Time `json:"due_date"`

	// BookingSnapshot captures the booking details at creation time and is
	// immutable afterwards.
	BookingSnapshot datatypes.JSON `json:"booking_snapshot" gorm:"type:jsonb"`

	Gateway         string  `json:"gateway" gorm:"type:text"`
	MerchantOrderID *string `json:"merchant_order_id" gorm:"type:text;uniqueIndex"`

	LastResponse datatypes.JSON `json:"last_response" gorm:"type:jsonb"`
	LastCode     string         `json:"last_code" gorm:"type:text"`
	LastState    string         `json:"last_state" gorm:"type:text"`
	Notes        string         `json:"notes" gorm:"type:text"`

	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (PaymentRecord) TableName() string { return "payments" }

var (
	ErrPaymentNotFound  = errors.New("payment_not_found")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidState     = errors.New("invalid_payment_state")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrNotPaymentOwner  = errors.New("not_payment_owner")
	ErrCheckoutRejected = errors.New("checkout_rejected")
	ErrNotInitiated     = errors.New("payment_not_initiated")
)

// Repository persists payment records. Status-changing writes are conditional
// on the current status so concurrent events serialize safely.
type Repository interface {
	Create(ctx context.Context, db *gorm.DB, p *PaymentRecord) error
	Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentRecord, error)
	FindByMerchantOrderID(ctx context.Context, db *gorm.DB, orderID string) (*PaymentRecord, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]PaymentRecord, error)
	List(ctx context.Context, db *gorm.DB, status Status, limit int) ([]PaymentRecord, error)

	// MarkInitiated moves pending -> initiated, attaching the correlation id
	// and raw gateway response. Returns false when the row was not pending.
	MarkInitiated(ctx context.Context, db *gorm.DB, id snowflake.ID, orderID string, raw []byte, code string) (bool, error)

	// MarkCompleted moves initiated -> completed. Returns false when the row
	// was not initiated, which makes duplicate success events no-ops.
	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, completedAt time.Time, raw []byte, code, state string) (bool, error)

	// MarkFailed moves initiated -> failed with a failure note.
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, raw []byte, code, state, note string) (bool, error)

	// RecordGatewayResponse updates only the audit fields, never the status.
	RecordGatewayResponse(ctx context.Context, db *gorm.DB, id snowflake.ID, raw []byte, code, state string) error
}
