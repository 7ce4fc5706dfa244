package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stayloop/stayloop/internal/auth"
	"github.com/stayloop/stayloop/internal/authorization"
	"github.com/stayloop/stayloop/internal/booking"
	bookingsvc "github.com/stayloop/stayloop/internal/booking/service"
	"github.com/stayloop/stayloop/internal/clock"
	"github.com/stayloop/stayloop/internal/config"
	"github.com/stayloop/stayloop/internal/customer"
	customersvc "github.com/stayloop/stayloop/internal/customer/service"
	"github.com/stayloop/stayloop/internal/observability"
	obslogger "github.com/stayloop/stayloop/internal/observability/logger"
	obsmetrics "github.com/stayloop/stayloop/internal/observability/metrics"
	obstracing "github.com/stayloop/stayloop/internal/observability/tracing"
	"github.com/stayloop/stayloop/internal/payment"
	paymentsvc "github.com/stayloop/stayloop/internal/payment/service"
	"github.com/stayloop/stayloop/internal/payment/signature"
	"github.com/stayloop/stayloop/internal/property"
	propertysvc "github.com/stayloop/stayloop/internal/property/service"
	"github.com/stayloop/stayloop/internal/ratelimit"
	"github.com/stayloop/stayloop/internal/receipt"
	"github.com/stayloop/stayloop/internal/room"
	roomsvc "github.com/stayloop/stayloop/internal/room/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	authorization.Module,
	auth.Module,
	customer.Module,
	property.Module,
	room.Module,
	booking.Module,
	payment.Module,
	receipt.Module,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	db          *gorm.DB
	genID       *snowflake.Node
	clock       clock.Clock
	tokens      *auth.TokenIssuer
	authzSvc    authorization.Service
	customerSvc *customersvc.Service
	propertySvc *propertysvc.Service
	roomSvc     *roomsvc.Service
	bookingSvc  *bookingsvc.Service
	paymentSvc  *paymentsvc.Service
	verifier    *signature.Verifier
	receiptGen  receipt.Generator
	pollLimiter *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	GenID       *snowflake.Node
	Clock       clock.Clock
	Tokens      *auth.TokenIssuer
	AuthzSvc    authorization.Service
	CustomerSvc *customersvc.Service
	PropertySvc *propertysvc.Service
	RoomSvc     *roomsvc.Service
	BookingSvc  *bookingsvc.Service
	PaymentSvc  *paymentsvc.Service
	Verifier    *signature.Verifier
	ReceiptGen  receipt.Generator
	PollLimiter *ratelimit.Limiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		db:          p.DB,
		genID:       p.GenID,
		clock:       p.Clock,
		tokens:      p.Tokens,
		authzSvc:    p.AuthzSvc,
		customerSvc: p.CustomerSvc,
		propertySvc: p.PropertySvc,
		roomSvc:     p.RoomSvc,
		bookingSvc:  p.BookingSvc,
		paymentSvc:  p.PaymentSvc,
		verifier:    p.Verifier,
		receiptGen:  p.ReceiptGen,
		pollLimiter: p.PollLimiter,
	}

	svc.registerAuthRoutes()
	svc.registerPublicRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerGatewayRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	authGroup := s.engine.Group("/auth")

	authGroup.POST("/register", s.Register)
	authGroup.POST("/login", s.Login)
	authGroup.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerPublicRoutes() {
	api := s.engine.Group("/api")

	api.GET("/properties", s.ListProperties)
	api.GET("/properties/:slug", s.GetPropertyBySlug)
	api.GET("/properties/:slug/rooms", s.ListPropertyRooms)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Bookings --------
	api.POST("/bookings", s.authorizeAction(authorization.ObjectBooking, authorization.ActionCreate), s.CreateBooking)
	api.GET("/bookings", s.authorizeAction(authorization.ObjectBooking, authorization.ActionView), s.ListBookings)
	api.GET("/bookings/:id", s.authorizeAction(authorization.ObjectBooking, authorization.ActionView), s.GetBookingByID)
	api.POST("/bookings/:id/cancel", s.authorizeAction(authorization.ObjectBooking, authorization.ActionCancel), s.CancelBooking)

	// -------- Payments --------
	api.GET("/payments", s.authorizeAction(authorization.ObjectPayment, authorization.ActionView), s.ListPayments)
	api.GET("/payments/:id", s.authorizeAction(authorization.ObjectPayment, authorization.ActionView), s.GetPaymentByID)
	api.POST("/payments/:id/initiate", s.authorizeAction(authorization.ObjectPayment, authorization.ActionInitiate), s.InitiatePayment)
	api.POST("/payments/:id/status", s.authorizeAction(authorization.ObjectPayment, authorization.ActionPoll), s.PollPaymentStatus)
	api.GET("/payments/:id/receipt", s.authorizeAction(authorization.ObjectReceipt, authorization.ActionDownload), s.DownloadReceipt)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AuthRequired(), s.RequireStaff())

	admin.POST("/properties", s.CreateProperty)
	admin.PATCH("/properties/:id", s.UpdateProperty)

	admin.POST("/rooms", s.CreateRoom)
	admin.PATCH("/rooms/:id", s.UpdateRoom)

	admin.GET("/bookings", s.ListAllBookings)
	admin.POST("/bookings/:id/complete", s.CompleteBooking)

	admin.POST("/payments", s.CreatePayment)
	admin.GET("/payments", s.ListAllPayments)
}

// registerGatewayRoutes binds the server-to-server endpoints the gateway
// posts to. Paths come from config so they can match what was registered
// with the gateway.
func (s *Server) registerGatewayRoutes() {
	s.engine.POST(s.cfg.Gateway.CallbackPath, s.HandleGatewayCallback)
	s.engine.POST(s.cfg.Gateway.WebhookPath, s.HandleGatewayWebhook)
}
