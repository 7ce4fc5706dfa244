package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/stayloop/stayloop/internal/cache"
	"github.com/stayloop/stayloop/internal/property/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const listingCacheTTL = 2 * time.Minute

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository

	// listings memoizes the public city listings. Advisory only; writes
	// evict and reads fall through to the store.
	listings cache.Cache[string, []domain.Property]
}

func NewService(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("property.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		listings: cache.NewTTLCache[string, []domain.Property](),
	}
}

type CreateParams struct {
	Name    string
	Kind    domain.Kind
	City    string
	Address string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*domain.Property, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	property := &domain.Property{
		ID:      s.genID.Generate(),
		Slug:    slug.Make(name),
		Name:    name,
		Kind:    params.Kind,
		City:    strings.TrimSpace(params.City),
		Address: strings.TrimSpace(params.Address),
		Active:  true,
	}

	if existing, err := s.repo.FindBySlug(ctx, s.db, property.Slug); err == nil && existing != nil {
		return nil, domain.ErrSlugTaken
	} else if err != nil && !errors.Is(err, domain.ErrPropertyNotFound) {
		return nil, err
	}

	if err := s.repo.Create(ctx, s.db, property); err != nil {
		return nil, err
	}
	s.listings.Evict(listingKey(property.City))

	s.log.Info("property created",
		zap.String("property_id", property.ID.String()),
		zap.String("slug", property.Slug),
	)
	return property, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Property, error) {
	return s.repo.Find(ctx, s.db, id)
}

func (s *Service) GetBySlug(ctx context.Context, value string) (*domain.Property, error) {
	return s.repo.FindBySlug(ctx, s.db, strings.TrimSpace(value))
}

// ListActive returns the public listings for a city, served from the TTL
// cache when warm.
func (s *Service) ListActive(ctx context.Context, city string) ([]domain.Property, error) {
	key := listingKey(city)
	if cached, ok := s.listings.Get(key); ok {
		return cached, nil
	}

	items, err := s.repo.List(ctx, s.db, strings.TrimSpace(city), true)
	if err != nil {
		return nil, err
	}
	s.listings.Set(key, items, listingCacheTTL)
	return items, nil
}

func (s *Service) Update(ctx context.Context, p *domain.Property) error {
	prior, err := s.repo.Find(ctx, s.db, p.ID)
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, s.db, p); err != nil {
		return err
	}
	// A city change leaves a stale entry behind the old key.
	s.listings.Evict(listingKey(prior.City))
	s.listings.Evict(listingKey(p.City))
	return nil
}

func listingKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
