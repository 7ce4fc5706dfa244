package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	bookingdomain "github.com/stayloop/stayloop/internal/booking/domain"
	"github.com/stayloop/stayloop/internal/clock"
	"github.com/stayloop/stayloop/internal/config"
	"github.com/stayloop/stayloop/internal/observability/metrics"
	"github.com/stayloop/stayloop/internal/payment/domain"
	"github.com/stayloop/stayloop/internal/payment/outcome"
	"github.com/stayloop/stayloop/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const reconcileLockTTL = 10 * time.Second

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Gateway     domain.Gateway
	GatewayCfg  config.GatewayConfig
	Repo        domain.Repository
	BookingRepo bookingdomain.Repository
	Locker      *ratelimit.Locker `optional:"true"`
	Rental      *config.RentalConfigHolder
	Metrics     *metrics.PaymentMetrics
}

// Service owns the payment lifecycle: creating dues, initiating hosted
// checkouts and reconciling every gateway event against the stored record.
// All status changes go through conditional updates, so replaying an event
// is always safe.
type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	alertLog    *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	gateway     domain.Gateway
	gatewayCfg  config.GatewayConfig
	repo        domain.Repository
	bookingRepo bookingdomain.Repository
	locker      *ratelimit.Locker
	rental      *config.RentalConfigHolder
	metrics     *metrics.PaymentMetrics
}

func NewService(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		alertLog:    p.Log.Named("payment.reconcile.alert"),
		genID:       p.GenID,
		clock:       p.Clock,
		gateway:     p.Gateway,
		gatewayCfg:  p.GatewayCfg,
		repo:        p.Repo,
		bookingRepo: p.BookingRepo,
		locker:      p.Locker,
		rental:      p.Rental,
		metrics:     p.Metrics,
	}
}

type CreateParams struct {
	CustomerID  snowflake.ID
	BookingID   *snowflake.ID
	Amount      int64
	PeriodMonth int
	PeriodYear  int
	DueDate     *time.Time
	Notes       string
}

type bookingSnapshot struct {
	BookingID   string `json:"booking_id"`
	PropertyID  string `json:"property_id"`
	RoomID      string `json:"room_id"`
	CheckInDate string `json:"check_in_date"`
	MonthlyRent int64  `json:"monthly_rent"`
}

// Create opens a pending payment record for a rent period. When the payment
// is tied to a booking, the booking details are snapshotted into the record
// so the financial history survives later booking edits.
func (s *Service) Create(ctx context.Context, params CreateParams) (*domain.PaymentRecord, error) {
	if params.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var snapshot datatypes.JSON
	if params.BookingID != nil {
		booking, err := s.bookingRepo.Find(ctx, s.db, *params.BookingID)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(bookingSnapshot{
			BookingID:   booking.ID.String(),
			PropertyID:  booking.PropertyID.String(),
			RoomID:      booking.RoomID.String(),
			CheckInDate: booking.CheckInDate.Format(time.RFC3339),
			MonthlyRent: booking.MonthlyRent,
		})
		if err != nil {
			return nil, err
		}
		snapshot = raw
	}

	dueDate := params.DueDate
	var lateFee int64
	if s.rental != nil {
		policy := s.rental.Get()
		if dueDate == nil {
			due := time.Date(params.PeriodYear, time.Month(params.PeriodMonth), policy.DueDayOfMonth, 0, 0, 0, 0, time.UTC)
			dueDate = &due
		}
		lateFee = assessLateFee(policy, *dueDate, s.clock.Now())
	}

	record := &domain.PaymentRecord{
		ID:              s.genID.Generate(),
		CustomerID:      params.CustomerID,
		BookingID:       params.BookingID,
		Amount:          params.Amount,
		LateFee:         lateFee,
		Status:          domain.StatusPending,
		PeriodMonth:     params.PeriodMonth,
		PeriodYear:      params.PeriodYear,
		DueDate:         dueDate,
		BookingSnapshot: snapshot,
		Gateway:         s.gateway.Name(),
		Notes:           params.Notes,
	}
	if err := s.repo.Create(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.log.Info("payment created",
		zap.String("payment_id", record.ID.String()),
		zap.Int64("amount", record.Amount),
	)
	return record, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.PaymentRecord, error) {
	return s.repo.Find(ctx, s.db, id)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID snowflake.ID) ([]domain.PaymentRecord, error) {
	return s.repo.ListByCustomer(ctx, s.db, customerID)
}

func (s *Service) List(ctx context.Context, status domain.Status, limit int) ([]domain.PaymentRecord, error) {
	return s.repo.List(ctx, s.db, status, limit)
}

// InitiateResult carries the hosted checkout redirect for the caller.
type InitiateResult struct {
	Payment     *domain.PaymentRecord
	RedirectURL string
}

// Initiate creates a hosted checkout for a pending payment. A failed payment
// is retried by cloning it into a fresh pending record with a new correlation
// id, leaving the failed attempt in the ledger. The record only moves to
// initiated after the gateway accepted the checkout; a refusal or transport
// error leaves it pending so the customer can retry.
func (s *Service) Initiate(ctx context.Context, id snowflake.ID) (*InitiateResult, error) {
	record, err := s.repo.Find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	switch record.Status {
	case domain.StatusPending:
	case domain.StatusFailed:
		record, err = s.cloneForRetry(ctx, record)
		if err != nil {
			return nil, err
		}
	default:
		return nil, domain.ErrInvalidState
	}

	orderID := ulid.Make().String()
	result, err := s.gateway.CreateCheckout(ctx, domain.CheckoutRequest{
		MerchantOrderID: orderID,
		AmountMinor:     record.Amount + record.LateFee,
		RedirectURL:     s.gatewayCfg.RedirectURL,
		CallbackURL:     s.gatewayCfg.CallbackURL(),
	})
	if err != nil {
		s.log.Warn("checkout request failed",
			zap.String("payment_id", record.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if !result.Success {
		if auditErr := s.repo.RecordGatewayResponse(ctx, s.db, record.ID, result.Raw, result.Code, ""); auditErr != nil {
			s.log.Error("failed to record checkout refusal", zap.Error(auditErr))
		}
		return nil, domain.ErrCheckoutRejected
	}

	applied, err := s.repo.MarkInitiated(ctx, s.db, record.ID, orderID, result.Raw, result.Code)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domain.ErrInvalidState
	}

	s.log.Info("checkout initiated",
		zap.String("payment_id", record.ID.String()),
		zap.String("merchant_order_id", orderID),
	)

	record, err = s.repo.Find(ctx, s.db, record.ID)
	if err != nil {
		return nil, err
	}
	return &InitiateResult{Payment: record, RedirectURL: result.RedirectURL}, nil
}

func (s *Service) cloneForRetry(ctx context.Context, failed *domain.PaymentRecord) (*domain.PaymentRecord, error) {
	retry := &domain.PaymentRecord{
		ID:              s.genID.Generate(),
		CustomerID:      failed.CustomerID,
		BookingID:       failed.BookingID,
		Amount:          failed.Amount,
		LateFee:         failed.LateFee,
		Status:          domain.StatusPending,
		PeriodMonth:     failed.PeriodMonth,
		PeriodYear:      failed.PeriodYear,
		DueDate:         failed.DueDate,
		BookingSnapshot: failed.BookingSnapshot,
		Gateway:         failed.Gateway,
		Notes:           "retry of " + failed.ID.String(),
	}
	if err := s.repo.Create(ctx, s.db, retry); err != nil {
		return nil, err
	}
	s.log.Info("failed payment cloned for retry",
		zap.String("failed_payment_id", failed.ID.String()),
		zap.String("payment_id", retry.ID.String()),
	)
	return retry, nil
}

// HandleGatewayEvent reconciles a verified callback or webhook payload. The
// caller has already checked the signature against the raw body; this decodes
// the envelope, resolves the payment by correlation id and applies the
// outcome. Unknown correlation ids return ErrPaymentNotFound.
func (s *Service) HandleGatewayEvent(ctx context.Context, source string, payload []byte) error {
	decoded := outcome.DecodeEnvelope(payload)

	orderID := outcome.CorrelationID(decoded)
	if orderID == "" {
		return domain.ErrInvalidPayload
	}

	record, err := s.repo.FindByMerchantOrderID(ctx, s.db, orderID)
	if err != nil {
		return err
	}
	return s.reconcile(ctx, record, source, decoded)
}

// PollStatus queries the gateway for the payment's current state and
// reconciles the answer. Transport failures leave the record untouched.
func (s *Service) PollStatus(ctx context.Context, id snowflake.ID) (*domain.PaymentRecord, error) {
	record, err := s.repo.Find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if record.MerchantOrderID == nil {
		return nil, domain.ErrNotInitiated
	}

	result, err := s.gateway.CheckStatus(ctx, *record.MerchantOrderID)
	if err != nil {
		return nil, err
	}
	if err := s.reconcile(ctx, record, "poll", result.Raw); err != nil {
		return nil, err
	}
	return s.repo.Find(ctx, s.db, id)
}

// reconcile applies one gateway payload to the record. The conditional
// repository updates are the authoritative guard; the redis lock only
// narrows the window where two events race to the same row, so a missing
// or contended lock never blocks reconciliation.
func (s *Service) reconcile(ctx context.Context, record *domain.PaymentRecord, source string, payload []byte) error {
	token, oc := outcome.Extract(payload)
	s.metrics.RecordEvent(source, string(oc))

	if record.MerchantOrderID != nil {
		key := ratelimit.ReconcileLockKey(*record.MerchantOrderID)
		if lockToken, acquired, err := s.locker.TryLock(ctx, key, reconcileLockTTL); err == nil && acquired {
			defer func() {
				if releaseErr := s.locker.Release(ctx, key, lockToken); releaseErr != nil {
					s.log.Warn("failed to release reconcile lock", zap.Error(releaseErr))
				}
			}()
		}
	}

	log := s.log.With(
		zap.String("payment_id", record.ID.String()),
		zap.String("source", source),
		zap.String("gateway_token", token),
	)

	if record.Status.Terminal() {
		log.Info("event for settled payment ignored", zap.String("status", string(record.Status)))
		return s.repo.RecordGatewayResponse(ctx, s.db, record.ID, payload, token, string(oc))
	}

	switch oc {
	case outcome.Success:
		applied, err := s.repo.MarkCompleted(ctx, s.db, record.ID, s.clock.Now(), payload, token, string(oc))
		if err != nil {
			return err
		}
		if !applied {
			log.Info("success event lost the race, payment already settled")
			return s.repo.RecordGatewayResponse(ctx, s.db, record.ID, payload, token, string(oc))
		}
		log.Info("payment completed")
		s.confirmBooking(ctx, log, record)
		return nil

	case outcome.Failure:
		applied, err := s.repo.MarkFailed(ctx, s.db, record.ID, payload, token, string(oc), token)
		if err != nil {
			return err
		}
		if !applied {
			log.Info("failure event lost the race, payment already settled")
			return s.repo.RecordGatewayResponse(ctx, s.db, record.ID, payload, token, string(oc))
		}
		log.Info("payment failed")
		return nil

	case outcome.Pending:
		return s.repo.RecordGatewayResponse(ctx, s.db, record.ID, payload, token, string(oc))

	default:
		log.Warn("unrecognized gateway payload, state unchanged")
		return s.repo.RecordGatewayResponse(ctx, s.db, record.ID, payload, token, string(oc))
	}
}

// confirmBooking promotes the linked booking after a completed payment. It
// never moves a cancelled or completed booking back to confirmed, and a
// booking-side failure never unwinds the payment; it is surfaced as a
// reconciliation alert instead.
func (s *Service) confirmBooking(ctx context.Context, log *zap.Logger, record *domain.PaymentRecord) {
	if record.BookingID == nil {
		return
	}
	bookingID := *record.BookingID

	applied, err := s.bookingRepo.UpdateStatus(ctx, s.db, bookingID,
		[]bookingdomain.Status{bookingdomain.StatusPending},
		bookingdomain.StatusConfirmed,
	)
	if err != nil {
		s.alert("booking_confirm_failed", record.ID, bookingID, err)
		return
	}
	if applied {
		log.Info("booking confirmed", zap.String("booking_id", bookingID.String()))
		return
	}

	booking, err := s.bookingRepo.Find(ctx, s.db, bookingID)
	if err != nil {
		s.alert("booking_confirm_failed", record.ID, bookingID, err)
		return
	}
	if booking.Status == bookingdomain.StatusConfirmed {
		return
	}
	s.alert("booking_settled_elsewhere", record.ID, bookingID, nil)
}

// assessLateFee accrues the per-day penalty once the grace window has passed,
// capped at the configured maximum.
func assessLateFee(policy config.RentalConfig, dueDate, now time.Time) int64 {
	if policy.LateFeeMinor <= 0 {
		return 0
	}
	graceEnd := dueDate.AddDate(0, 0, policy.GraceDays)
	if !now.After(graceEnd) {
		return 0
	}
	daysLate := int64(now.Sub(graceEnd)/(24*time.Hour)) + 1
	fee := policy.LateFeeMinor * daysLate
	if policy.LateFeeMaxMinor > 0 && fee > policy.LateFeeMaxMinor {
		fee = policy.LateFeeMaxMinor
	}
	return fee
}

func (s *Service) alert(reason string, paymentID, bookingID snowflake.ID, err error) {
	s.metrics.RecordAlert(reason)
	s.alertLog.Error("payment completed but booking not confirmed",
		zap.String("reason", reason),
		zap.String("payment_id", paymentID.String()),
		zap.String("booking_id", bookingID.String()),
		zap.Error(err),
	)
}
