package property

import (
	"github.com/stayloop/stayloop/internal/property/repository"
	"github.com/stayloop/stayloop/internal/property/service"
	"go.uber.org/fx"
)

var Module = fx.Module("property.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
