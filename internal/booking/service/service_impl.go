package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stayloop/stayloop/internal/booking/domain"
	"github.com/stayloop/stayloop/internal/clock"
	roomdomain "github.com/stayloop/stayloop/internal/room/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	RoomRepo roomdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	roomRepo roomdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("booking.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		roomRepo: p.RoomRepo,
	}
}

type CreateParams struct {
	CustomerID  snowflake.ID
	RoomID      snowflake.ID
	CheckInDate time.Time
	Notes       string
}

// Create reserves a bed in the room and opens a pending booking. The
// occupancy adjustment is guarded against overbooking at the store level.
func (s *Service) Create(ctx context.Context, params CreateParams) (*domain.Booking, error) {
	room, err := s.roomRepo.Find(ctx, s.db, params.RoomID)
	if err != nil {
		return nil, err
	}

	reserved, err := s.roomRepo.AdjustOccupancy(ctx, s.db, room.ID, 1)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, domain.ErrRoomUnavailable
	}

	checkIn := params.CheckInDate
	if checkIn.IsZero() {
		checkIn = s.clock.Now()
	}

	booking := &domain.Booking{
		ID:          s.genID.Generate(),
		CustomerID:  params.CustomerID,
		PropertyID:  room.PropertyID,
		RoomID:      room.ID,
		Status:      domain.StatusPending,
		CheckInDate: checkIn,
		MonthlyRent: room.RentMinor,
		Notes:       params.Notes,
	}
	if err := s.repo.Create(ctx, s.db, booking); err != nil {
		// Release the bed we just reserved; the booking row never existed.
		if _, releaseErr := s.roomRepo.AdjustOccupancy(ctx, s.db, room.ID, -1); releaseErr != nil {
			s.log.Error("failed to release bed after booking create error",
				zap.String("room_id", room.ID.String()),
				zap.Error(releaseErr),
			)
		}
		return nil, err
	}

	s.log.Info("booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("room_id", room.ID.String()),
	)
	return booking, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Booking, error) {
	return s.repo.Find(ctx, s.db, id)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID snowflake.ID) ([]domain.Booking, error) {
	return s.repo.ListByCustomer(ctx, s.db, customerID)
}

func (s *Service) List(ctx context.Context, status domain.Status, limit int) ([]domain.Booking, error) {
	return s.repo.List(ctx, s.db, status, limit)
}

// Cancel moves a pending or confirmed booking to cancelled and frees the bed.
func (s *Service) Cancel(ctx context.Context, id snowflake.ID) error {
	booking, err := s.repo.Find(ctx, s.db, id)
	if err != nil {
		return err
	}

	applied, err := s.repo.UpdateStatus(ctx, s.db, id,
		[]domain.Status{domain.StatusPending, domain.StatusConfirmed},
		domain.StatusCancelled,
	)
	if err != nil {
		return err
	}
	if !applied {
		return domain.ErrInvalidTransition
	}

	if _, err := s.roomRepo.AdjustOccupancy(ctx, s.db, booking.RoomID, -1); err != nil {
		s.log.Error("failed to release bed for cancelled booking",
			zap.String("booking_id", id.String()),
			zap.Error(err),
		)
	}
	return nil
}

// Complete closes out a confirmed booking at move-out and frees the bed.
func (s *Service) Complete(ctx context.Context, id snowflake.ID) error {
	booking, err := s.repo.Find(ctx, s.db, id)
	if err != nil {
		return err
	}

	applied, err := s.repo.UpdateStatus(ctx, s.db, id,
		[]domain.Status{domain.StatusConfirmed},
		domain.StatusCompleted,
	)
	if err != nil {
		return err
	}
	if !applied {
		return domain.ErrInvalidTransition
	}

	if _, err := s.roomRepo.AdjustOccupancy(ctx, s.db, booking.RoomID, -1); err != nil {
		s.log.Error("failed to release bed for completed booking",
			zap.String("booking_id", id.String()),
			zap.Error(err),
		)
	}
	return nil
}
