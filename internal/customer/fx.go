package customer

import (
	"github.com/stayloop/stayloop/internal/customer/repository"
	"github.com/stayloop/stayloop/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
