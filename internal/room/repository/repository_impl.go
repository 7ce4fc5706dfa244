package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stayloop/stayloop/internal/room/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, room *domain.Room) error {
	return db.WithContext(ctx).Create(room).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Room, error) {
	var item domain.Room
	err := db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListByProperty(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) ([]domain.Room, error) {
	var items []domain.Room
	err := db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("number ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, room *domain.Room) error {
	return db.WithContext(ctx).Save(room).Error
}

func (r *repo) AdjustOccupancy(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("id = ? AND occupied + ? BETWEEN 0 AND capacity", id, delta).
		Updates(map[string]any{
			"occupied":   gorm.Expr("occupied + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
