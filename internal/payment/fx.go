package payment

import (
	"github.com/stayloop/stayloop/internal/config"
	"github.com/stayloop/stayloop/internal/payment/domain"
	"github.com/stayloop/stayloop/internal/payment/gateway/phonepe"
	"github.com/stayloop/stayloop/internal/payment/repository"
	"github.com/stayloop/stayloop/internal/payment/service"
	"github.com/stayloop/stayloop/internal/payment/signature"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.GatewayConfig, log *zap.Logger) domain.Gateway {
		return phonepe.New(cfg, log)
	}),
	fx.Provide(func(cfg config.GatewayConfig, log *zap.Logger) *signature.Verifier {
		return signature.NewVerifier(signature.Config{
			SaltKey:         cfg.SaltKey,
			SaltIndex:       cfg.SaltIndex,
			AllowUnverified: cfg.AllowUnverified,
		}, log)
	}),
	fx.Provide(service.NewService),
)
