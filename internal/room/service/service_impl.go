package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	propertydomain "github.com/stayloop/stayloop/internal/property/domain"
	"github.com/stayloop/stayloop/internal/room/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	PropertyRepo propertydomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	propertyRepo propertydomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("room.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		propertyRepo: p.PropertyRepo,
	}
}

type CreateParams struct {
	PropertyID snowflake.ID
	Number     string
	Sharing    domain.Sharing
	RentMinor  int64
	Capacity   int
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*domain.Room, error) {
	if params.RentMinor <= 0 {
		return nil, domain.ErrInvalidRent
	}
	if _, err := s.propertyRepo.Find(ctx, s.db, params.PropertyID); err != nil {
		return nil, err
	}

	capacity := params.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity(params.Sharing)
	}

	room := &domain.Room{
		ID:         s.genID.Generate(),
		PropertyID: params.PropertyID,
		Number:     strings.TrimSpace(params.Number),
		Sharing:    params.Sharing,
		RentMinor:  params.RentMinor,
		Capacity:   capacity,
	}
	if err := s.repo.Create(ctx, s.db, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Room, error) {
	return s.repo.Find(ctx, s.db, id)
}

func (s *Service) ListByProperty(ctx context.Context, propertyID snowflake.ID) ([]domain.Room, error) {
	return s.repo.ListByProperty(ctx, s.db, propertyID)
}

func (s *Service) Update(ctx context.Context, room *domain.Room) error {
	return s.repo.Update(ctx, s.db, room)
}

func defaultCapacity(sharing domain.Sharing) int {
	switch sharing {
	case domain.SharingDouble:
		return 2
	case domain.SharingTriple:
		return 3
	default:
		return 1
	}
}
