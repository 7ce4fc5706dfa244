package booking

import (
	"github.com/stayloop/stayloop/internal/booking/repository"
	"github.com/stayloop/stayloop/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
