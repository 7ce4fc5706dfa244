package auth

import (
	"github.com/stayloop/stayloop/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	fx.Provide(func(cfg config.Config) (*TokenIssuer, error) {
		return NewTokenIssuer(cfg.AuthJWTSecret, cfg.AppName)
	}),
)
