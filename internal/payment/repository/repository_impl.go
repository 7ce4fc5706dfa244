package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stayloop/stayloop/internal/payment/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, p *domain.PaymentRecord) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentRecord, error) {
	var item domain.PaymentRecord
	err := db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindByMerchantOrderID(ctx context.Context, db *gorm.DB, orderID string) (*domain.PaymentRecord, error) {
	var item domain.PaymentRecord
	err := db.WithContext(ctx).First(&item, "merchant_order_id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]domain.PaymentRecord, error) {
	var items []domain.PaymentRecord
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, status domain.Status, limit int) ([]domain.PaymentRecord, error) {
	query := db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var items []domain.PaymentRecord
	err := query.Find(&items).Error
	return items, err
}

func (r *repo) MarkInitiated(ctx context.Context, db *gorm.DB, id snowflake.ID, orderID string, raw []byte, code string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.PaymentRecord{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"status":            domain.StatusInitiated,
			"merchant_order_id": orderID,
			"last_response":     datatypes.JSON(raw),
			"last_code":         code,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, completedAt time.Time, raw []byte, code, state string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.PaymentRecord{}).
		Where("id = ? AND status = ?", id, domain.StatusInitiated).
		Updates(map[string]any{
			"status":        domain.StatusCompleted,
			"completed_at":  completedAt,
			"last_response": datatypes.JSON(raw),
			"last_code":     code,
			"last_state":    state,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, raw []byte, code, state, note string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.PaymentRecord{}).
		Where("id = ? AND status = ?", id, domain.StatusInitiated).
		Updates(map[string]any{
			"status":        domain.StatusFailed,
			"last_response": datatypes.JSON(raw),
			"last_code":     code,
			"last_state":    state,
			"notes":         note,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) RecordGatewayResponse(ctx context.Context, db *gorm.DB, id snowflake.ID, raw []byte, code, state string) error {
	updates := map[string]any{
		"last_response": datatypes.JSON(raw),
		"updated_at":    time.Now().UTC(),
	}
	if code != "" {
		updates["last_code"] = code
	}
	if state != "" {
		updates["last_state"] = state
	}
	return db.WithContext(ctx).
		Model(&domain.PaymentRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}
