package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/stayloop/stayloop/internal/property/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, p *domain.Property) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Property, error) {
	var item domain.Property
	err := db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPropertyNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Property, error) {
	var item domain.Property
	err := db.WithContext(ctx).First(&item, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPropertyNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, city string, activeOnly bool) ([]domain.Property, error) {
	query := db.WithContext(ctx).Order("name ASC")
	if city != "" {
		query = query.Where("city = ?", city)
	}
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var items []domain.Property
	err := query.Find(&items).Error
	return items, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, p *domain.Property) error {
	return db.WithContext(ctx).Save(p).Error
}
