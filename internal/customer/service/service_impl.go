package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/stayloop/stayloop/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

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
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

type RegisterParams struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     domain.Role
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*domain.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || strings.TrimSpace(params.Name) == "" || len(params.Password) < 8 {
		return nil, domain.ErrBadCredentials
	}

	if existing, err := s.repo.FindByEmail(ctx, s.db, email); err == nil && existing != nil {
		return nil, domain.ErrEmailTaken
	} else if err != nil && !errors.Is(err, domain.ErrCustomerNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := params.Role
	if role == "" {
		role = domain.RoleCustomer
	}

	customer := &domain.Customer{
		ID:           s.genID.Generate(),
		Name:         strings.TrimSpace(params.Name),
		Email:        email,
		Phone:        strings.TrimSpace(params.Phone),
		Role:         role,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, s.db, customer); err != nil {
		return nil, err
	}

	s.log.Info("customer registered", zap.String("customer_id", customer.ID.String()))
	return customer, nil
}

// Authenticate verifies email+password and returns the account on success.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.Customer, error) {
	customer, err := s.repo.FindByEmail(ctx, s.db, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return nil, domain.ErrBadCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrBadCredentials
	}
	return customer, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Customer, error) {
	return s.repo.Find(ctx, s.db, id)
}
