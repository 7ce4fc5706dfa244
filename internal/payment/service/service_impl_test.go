package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	bookingdomain "github.com/stayloop/stayloop/internal/booking/domain"
	bookingrepo "github.com/stayloop/stayloop/internal/booking/repository"
	"github.com/stayloop/stayloop/internal/clock"
	"github.com/stayloop/stayloop/internal/config"
	"github.com/stayloop/stayloop/internal/payment/domain"
	"github.com/stayloop/stayloop/internal/payment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeGateway struct {
	checkout func(domain.CheckoutRequest) (*domain.CheckoutResult, error)
	status   func(string) (*domain.StatusResult, error)
}

func (g *fakeGateway) Name() string { return "phonepe" }

func (g *fakeGateway) CreateCheckout(_ context.Context, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	if g.checkout == nil {
		return &domain.CheckoutResult{
			Success:     true,
			RedirectURL: "https://pay.example.com/" + req.MerchantOrderID,
			Code:        "PAYMENT_INITIATED",
			Raw:         json.RawMessage(`{"success":true,"code":"PAYMENT_INITIATED"}`),
		}, nil
	}
	return g.checkout(req)
}

func (g *fakeGateway) CheckStatus(_ context.Context, orderID string) (*domain.StatusResult, error) {
	if g.status == nil {
		return nil, fmt.Errorf("status not stubbed")
	}
	return g.status(orderID)
}

type countingBookingRepo struct {
	bookingdomain.Repository
	statusWrites int
}

func (r *countingBookingRepo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []bookingdomain.Status, to bookingdomain.Status) (bool, error) {
	r.statusWrites++
	return r.Repository.UpdateStatus(ctx, db, id, from, to)
}

type fixture struct {
	svc         *Service
	db          *gorm.DB
	gateway     *fakeGateway
	clock       *clock.FakeClock
	bookingRepo *countingBookingRepo
	genID       *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.PaymentRecord{}, &bookingdomain.Booking{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	gateway := &fakeGateway{}
	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	bookings := &countingBookingRepo{Repository: bookingrepo.Provide()}

	svc := NewService(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fakeClock,
		Gateway: gateway,
		GatewayCfg: config.GatewayConfig{
			Name:          "phonepe",
			RedirectURL:   "http://localhost:3000/payments/return",
			PublicBaseURL: "http://localhost:8080",
			CallbackPath:  "/callbacks/phonepe",
		},
		Repo:        repository.Provide(),
		BookingRepo: bookings,
	})

	return &fixture{
		svc:         svc,
		db:          db,
		gateway:     gateway,
		clock:       fakeClock,
		bookingRepo: bookings,
		genID:       node,
	}
}

func (f *fixture) createBooking(t *testing.T, status bookingdomain.Status) *bookingdomain.Booking {
	t.Helper()
	booking := &bookingdomain.Booking{
		ID:          f.genID.Generate(),
		CustomerID:  f.genID.Generate(),
		PropertyID:  f.genID.Generate(),
		RoomID:      f.genID.Generate(),
		Status:      status,
		CheckInDate: f.clock.Now(),
		MonthlyRent: 850000,
	}
	require.NoError(t, f.bookingRepo.Create(context.Background(), f.db, booking))
	return booking
}

func (f *fixture) createInitiated(t *testing.T, booking *bookingdomain.Booking) *domain.PaymentRecord {
	t.Helper()
	ctx := context.Background()

	params := CreateParams{
		CustomerID:  booking.CustomerID,
		BookingID:   &booking.ID,
		Amount:      850000,
		PeriodMonth: 6,
		PeriodYear:  2025,
	}
	record, err := f.svc.Create(ctx, params)
	require.NoError(t, err)

	result, err := f.svc.Initiate(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInitiated, result.Payment.Status)
	require.NotNil(t, result.Payment.MerchantOrderID)
	return result.Payment
}

func successPayload(orderID string) []byte {
	return []byte(fmt.Sprintf(
		`{"success":true,"code":"PAYMENT_SUCCESS","merchantTransactionId":%q,"data":{"state":"COMPLETED","transactionId":"T123"}}`,
		orderID,
	))
}

func failurePayload(orderID string) []byte {
	return []byte(fmt.Sprintf(
		`{"success":false,"code":"PAYMENT_ERROR","merchantTransactionId":%q}`,
		orderID,
	))
}

func envelope(payload []byte) []byte {
	body, _ := json.Marshal(map[string]string{
		"response": base64.StdEncoding.EncodeToString(payload),
	})
	return body
}

func TestCallbackCompletesPaymentAndConfirmsBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t, bookingdomain.StatusPending)
	payment := f.createInitiated(t, booking)

	err := f.svc.HandleGatewayEvent(ctx, "callback", envelope(successPayload(*payment.MerchantOrderID)))
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, f.clock.Now(), got.CompletedAt.UTC())
	assert.Equal(t, "PAYMENT_SUCCESS", got.LastCode)

	confirmed, err := f.bookingRepo.Find(ctx, f.db, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusConfirmed, confirmed.Status)
}

func TestDuplicateSuccessEventIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t, bookingdomain.StatusPending)
	payment := f.createInitiated(t, booking)
	event := envelope(successPayload(*payment.MerchantOrderID))

	require.NoError(t, f.svc.HandleGatewayEvent(ctx, "callback", event))
	first, err := f.svc.Get(ctx, payment.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	require.NoError(t, f.svc.HandleGatewayEvent(ctx, "webhook", event))

	second, err := f.svc.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, second.Status)
	assert.Equal(t, first.CompletedAt.UTC(), second.CompletedAt.UTC())
}

func TestDuplicateSuccessConfirmsBookingExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t, bookingdomain.StatusPending)
	payment := f.createInitiated(t, booking)
	event := envelope(successPayload(*payment.MerchantOrderID))

	require.NoError(t, f.svc.HandleGatewayEvent(ctx, "callback", event))
	require.NoError(t, f.svc.HandleGatewayEvent(ctx, "webhook", event))
	require.NoError(t, f.svc.HandleGatewayEvent(ctx, "webhook", event))

	assert.Equal(t, 1, f.bookingRepo.statusWrites)

	confirmed, err := f.bookingRepo.Find(ctx, f.db, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusConfirmed, confirmed.Status)
}

func TestFailureEventAfterCompletionDoesNotRegress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t, bookingdomain.StatusPending)
	payment := f.createInitiated(t, booking)
	orderID := *payment.MerchantOrderID

	require.NoError(t, f.svc.HandleGatewayEvent(ctx, "callback", envelope(successPayload(orderID))))
	require.NoError(t, f.svc.HandleGatewayEvent(ctx, "webhook", envelope(failurePayload(orderID))))

	got, err := f.svc.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestFailureEventMarksPaymentFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t, bookingdomain.StatusPending)
	payment := f.createInitiated(t, booking)

	err := f.svc.HandleGatewayEvent(ctx, "callback", envelope(failurePayload(*payment.MerchantOrderID)))
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "PAYMENT_ERROR", got.LastCode)

	// Failed rent does not touch the booking.
	still, err := f.bookingRepo.Find(ctx, f.db, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusPending, still.Status)
}

func TestUnknownTokenLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t, bookingdomain.StatusPending)
	payment := f.createInitiated(t, booking)

	event := []byte(fmt.Sprintf(
		`{"code":"SOMETHING_NEW","merchantTransactionId":%q}`,
		*payment.MerchantOrderID,
	))
	require.NoError(t, f.svc.HandleGatewayEvent(ctx, "webhook", event))

	got, err := f.svc.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInitiated, got.Status)
	assert.JSONEq(t, string(event), string(got.LastResponse))
}

func TestPendingEventKeepsPaymentInitiated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t, bookingdomain.StatusPending)
	payment := f.createInitiated(t, booking)

	event := []byte(fmt.Sprintf(
		`{"code":"PAYMENT_PENDING","merchantTransactionId":%q}`,
		*payment.MerchantOrderID,
	))
	require.NoError(t, f.svc.HandleGatewayEvent(ctx, "webhook", event))

	got, err := f.svc.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInitiated, got.Status)
	assert.Equal(t, "PAYMENT_PENDING", got.LastCode)
}

func TestCompletedPaymentDoesNotResurrectCancelledBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t, bookingdomain.StatusPending)
	payment := f.createInitiated(t, booking)

	cancelled, err := f.bookingRepo.UpdateStatus(ctx, f.db, booking.ID,
		[]bookingdomain.Status{bookingdomain.StatusPending},
		bookingdomain.StatusCancelled,
	)
	require.NoError(t, err)
	require.True(t, cancelled)

	require.NoError(t, f.svc.HandleGatewayEvent(ctx, "callback", envelope(successPayload(*payment.MerchantOrderID))))

	got, err := f.svc.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	still, err := f.bookingRepo.Find(ctx, f.db, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusCancelled, still.Status)
}

func TestEventForUnknownOrderID(t *testing.T) {
	f := newFixture(t)

	err := f.svc.HandleGatewayEvent(context.Background(), "webhook", envelope(successPayload("NO-SUCH-ORDER")))
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestEventWithoutCorrelationID(t *testing.T) {
	f := newFixture(t)

	err := f.svc.HandleGatewayEvent(context.Background(), "webhook", []byte(`{"code":"PAYMENT_SUCCESS"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestCheckoutRefusalLeavesPaymentPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.checkout = func(domain.CheckoutRequest) (*domain.CheckoutResult, error) {
		return &domain.CheckoutResult{
			Success: false,
			Code:    "BAD_REQUEST",
			Raw:     json.RawMessage(`{"success":false,"code":"BAD_REQUEST"}`),
		}, nil
	}

	booking := f.createBooking(t, bookingdomain.StatusPending)
	record, err := f.svc.Create(ctx, CreateParams{
		CustomerID: booking.CustomerID,
		BookingID:  &booking.ID,
		Amount:     850000,
	})
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, record.ID)
	assert.ErrorIs(t, err, domain.ErrCheckoutRejected)

	got, err := f.svc.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, "BAD_REQUEST", got.LastCode)
}

func TestCheckoutTransportFailureLeavesPaymentPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.checkout = func(domain.CheckoutRequest) (*domain.CheckoutResult, error) {
		return nil, fmt.Errorf("connection refused")
	}

	booking := f.createBooking(t, bookingdomain.StatusPending)
	record, err := f.svc.Create(ctx, CreateParams{
		CustomerID: booking.CustomerID,
		BookingID:  &booking.ID,
		Amount:     850000,
	})
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, record.ID)
	assert.Error(t, err)

	got, err := f.svc.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestInitiateRetriesFailedPaymentAsFreshRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t, bookingdomain.StatusPending)
	payment := f.createInitiated(t, booking)
	require.NoError(t, f.svc.HandleGatewayEvent(ctx, "callback", envelope(failurePayload(*payment.MerchantOrderID))))

	result, err := f.svc.Initiate(ctx, payment.ID)
	require.NoError(t, err)

	assert.NotEqual(t, payment.ID, result.Payment.ID)
	assert.Equal(t, domain.StatusInitiated, result.Payment.Status)
	assert.NotEqual(t, *payment.MerchantOrderID, *result.Payment.MerchantOrderID)

	original, err := f.svc.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, original.Status)
}

func TestInitiateCompletedPaymentRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t, bookingdomain.StatusPending)
	payment := f.createInitiated(t, booking)
	require.NoError(t, f.svc.HandleGatewayEvent(ctx, "callback", envelope(successPayload(*payment.MerchantOrderID))))

	_, err := f.svc.Initiate(ctx, payment.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestPollStatusReconciles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t, bookingdomain.StatusPending)
	payment := f.createInitiated(t, booking)
	orderID := *payment.MerchantOrderID

	f.gateway.status = func(got string) (*domain.StatusResult, error) {
		require.Equal(t, orderID, got)
		return &domain.StatusResult{
			Success: true,
			State:   "COMPLETED",
			Code:    "PAYMENT_SUCCESS",
			Raw:     json.RawMessage(fmt.Sprintf(`{"code":"PAYMENT_SUCCESS","data":{"merchantTransactionId":%q,"state":"COMPLETED"}}`, orderID)),
		}, nil
	}

	got, err := f.svc.PollStatus(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	confirmed, err := f.bookingRepo.Find(ctx, f.db, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusConfirmed, confirmed.Status)
}

func TestPollStatusBeforeInitiation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t, bookingdomain.StatusPending)
	record, err := f.svc.Create(ctx, CreateParams{
		CustomerID: booking.CustomerID,
		BookingID:  &booking.ID,
		Amount:     850000,
	})
	require.NoError(t, err)

	_, err = f.svc.PollStatus(ctx, record.ID)
	assert.ErrorIs(t, err, domain.ErrNotInitiated)
}

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateParams{
		CustomerID: f.genID.Generate(),
		Amount:     0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCreateSnapshotsBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t, bookingdomain.StatusPending)
	record, err := f.svc.Create(ctx, CreateParams{
		CustomerID: booking.CustomerID,
		BookingID:  &booking.ID,
		Amount:     850000,
	})
	require.NoError(t, err)

	var snapshot bookingSnapshot
	require.NoError(t, json.Unmarshal(record.BookingSnapshot, &snapshot))
	assert.Equal(t, booking.ID.String(), snapshot.BookingID)
	assert.Equal(t, booking.RoomID.String(), snapshot.RoomID)
	assert.Equal(t, int64(850000), snapshot.MonthlyRent)
}

func TestAssessLateFee(t *testing.T) {
	policy := config.RentalConfig{
		DueDayOfMonth:   5,
		GraceDays:       3,
		LateFeeMinor:    10000,
		LateFeeMaxMinor: 50000,
	}
	due := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)

	t.Run("within grace", func(t *testing.T) {
		now := due.AddDate(0, 0, 3)
		assert.Zero(t, assessLateFee(policy, due, now))
	})

	t.Run("accrues per day past grace", func(t *testing.T) {
		now := due.AddDate(0, 0, 5).Add(time.Hour)
		assert.Equal(t, int64(30000), assessLateFee(policy, due, now))
	})

	t.Run("capped at maximum", func(t *testing.T) {
		now := due.AddDate(0, 3, 0)
		assert.Equal(t, int64(50000), assessLateFee(policy, due, now))
	})

	t.Run("uncapped when max is zero", func(t *testing.T) {
		uncapped := policy
		uncapped.LateFeeMaxMinor = 0
		now := due.AddDate(0, 0, 12).Add(time.Hour)
		assert.Equal(t, int64(100000), assessLateFee(uncapped, due, now))
	})

	t.Run("disabled when fee is zero", func(t *testing.T) {
		disabled := policy
		disabled.LateFeeMinor = 0
		assert.Zero(t, assessLateFee(disabled, due, due.AddDate(0, 1, 0)))
	})
}
