package room

import (
	"github.com/stayloop/stayloop/internal/room/repository"
	"github.com/stayloop/stayloop/internal/room/service"
	"go.uber.org/fx"
)

var Module = fx.Module("room.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
