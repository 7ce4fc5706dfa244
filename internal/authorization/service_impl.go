// Package authorization gates HTTP operations on the caller's role. Policies
// live in the database through the casbin gorm adapter so role grants survive
// restarts and can be extended without a deploy.
package authorization

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	customerdomain "github.com/stayloop/stayloop/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectProperty = "property"
	ObjectRoom     = "room"
	ObjectBooking  = "booking"
	ObjectPayment  = "payment"
	ObjectReceipt  = "receipt"
	ObjectCustomer = "customer"
)

const (
	ActionView     = "view"
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionCancel   = "cancel"
	ActionComplete = "complete"
	ActionInitiate = "initiate"
	ActionPoll     = "poll"
	ActionDownload = "download"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

type Service interface {
	Authorize(ctx context.Context, role customerdomain.Role, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

// seedPolicies installs the default grants. Staff operate the back office;
// customers act on their own bookings and payments, with ownership checked
// at the handler layer.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:staff", ObjectProperty, ActionView},
		{"role:staff", ObjectProperty, ActionCreate},
		{"role:staff", ObjectProperty, ActionUpdate},
		{"role:staff", ObjectRoom, ActionView},
		{"role:staff", ObjectRoom, ActionCreate},
		{"role:staff", ObjectRoom, ActionUpdate},
		{"role:staff", ObjectBooking, ActionView},
		{"role:staff", ObjectBooking, ActionCancel},
		{"role:staff", ObjectBooking, ActionComplete},
		{"role:staff", ObjectPayment, ActionView},
		{"role:staff", ObjectPayment, ActionCreate},
		{"role:staff", ObjectPayment, ActionPoll},
		{"role:staff", ObjectReceipt, ActionDownload},
		{"role:staff", ObjectCustomer, ActionView},

		{"role:customer", ObjectProperty, ActionView},
		{"role:customer", ObjectRoom, ActionView},
		{"role:customer", ObjectBooking, ActionView},
		{"role:customer", ObjectBooking, ActionCreate},
		{"role:customer", ObjectBooking, ActionCancel},
		{"role:customer", ObjectPayment, ActionView},
		{"role:customer", ObjectPayment, ActionInitiate},
		{"role:customer", ObjectPayment, ActionPoll},
		{"role:customer", ObjectReceipt, ActionDownload},
	}

	for _, rule := range policies {
		if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
			return err
		}
	}
	return nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role customerdomain.Role, object, action string) error {
	subject := "role:" + strings.ToLower(strings.TrimSpace(string(role)))
	if subject == "role:" {
		return ErrInvalidActor
	}
	if strings.TrimSpace(object) == "" {
		return ErrInvalidObject
	}
	if strings.TrimSpace(action) == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}
