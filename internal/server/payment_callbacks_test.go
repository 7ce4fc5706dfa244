package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	bookingdomain "github.com/stayloop/stayloop/internal/booking/domain"
	bookingrepo "github.com/stayloop/stayloop/internal/booking/repository"
	"github.com/stayloop/stayloop/internal/clock"
	"github.com/stayloop/stayloop/internal/config"
	paymentdomain "github.com/stayloop/stayloop/internal/payment/domain"
	paymentrepo "github.com/stayloop/stayloop/internal/payment/repository"
	paymentsvc "github.com/stayloop/stayloop/internal/payment/service"
	"github.com/stayloop/stayloop/internal/payment/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSaltKey = "callback-salt"

type stubGateway struct{}

func (stubGateway) Name() string { return "phonepe" }

func (stubGateway) CreateCheckout(_ context.Context, req paymentdomain.CheckoutRequest) (*paymentdomain.CheckoutResult, error) {
	return &paymentdomain.CheckoutResult{
		Success:     true,
		RedirectURL: "https://pay.example.com/" + req.MerchantOrderID,
		Code:        "PAYMENT_INITIATED",
		Raw:         json.RawMessage(`{"success":true,"code":"PAYMENT_INITIATED"}`),
	}, nil
}

func (stubGateway) CheckStatus(context.Context, string) (*paymentdomain.StatusResult, error) {
	return nil, fmt.Errorf("not used")
}

type callbackFixture struct {
	server *Server
	db     *gorm.DB
	svc    *paymentsvc.Service
}

func newCallbackFixture(t *testing.T, verifyContextPath string) *callbackFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&paymentdomain.PaymentRecord{}, &bookingdomain.Booking{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{
		AppName: "stayloop",
		Gateway: config.GatewayConfig{
			Name:              "phonepe",
			SaltKey:           testSaltKey,
			SaltIndex:         "1",
			CallbackPath:      "/callbacks/phonepe",
			WebhookPath:       "/webhooks/phonepe",
			RedirectURL:       "http://localhost:3000/payments/return",
			PublicBaseURL:     "http://localhost:8080",
			WebhookHeader:     "X-Verify",
			VerifyContextPath: verifyContextPath,
		},
	}

	svc := paymentsvc.NewService(paymentsvc.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Gateway:     stubGateway{},
		GatewayCfg:  cfg.Gateway,
		Repo:        paymentrepo.Provide(),
		BookingRepo: bookingrepo.Provide(),
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := &Server{
		engine:     engine,
		cfg:        cfg,
		log:        zap.NewNop(),
		db:         db,
		genID:      node,
		paymentSvc: svc,
		verifier: signature.NewVerifier(signature.Config{
			SaltKey:   cfg.Gateway.SaltKey,
			SaltIndex: cfg.Gateway.SaltIndex,
		}, zap.NewNop()),
	}
	srv.registerGatewayRoutes()

	return &callbackFixture{server: srv, db: db, svc: svc}
}

func (f *callbackFixture) createInitiated(t *testing.T) *paymentdomain.PaymentRecord {
	t.Helper()
	ctx := context.Background()

	record, err := f.svc.Create(ctx, paymentsvc.CreateParams{
		CustomerID:  12345,
		Amount:      850000,
		PeriodMonth: 6,
		PeriodYear:  2025,
	})
	require.NoError(t, err)

	result, err := f.svc.Initiate(ctx, record.ID)
	require.NoError(t, err)
	return result.Payment
}

func callbackBody(orderID string) []byte {
	inner := fmt.Sprintf(
		`{"success":true,"code":"PAYMENT_SUCCESS","merchantTransactionId":%q,"data":{"state":"COMPLETED"}}`,
		orderID,
	)
	body, _ := json.Marshal(map[string]string{
		"response": base64.StdEncoding.EncodeToString([]byte(inner)),
	})
	return body
}

func (f *callbackFixture) post(t *testing.T, path string, body []byte, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set("X-Verify", sig)
	}
	rec := httptest.NewRecorder()
	f.server.engine.ServeHTTP(rec, req)
	return rec
}

func TestCallbackWithValidSignatureCompletesPayment(t *testing.T) {
	f := newCallbackFixture(t, "")
	payment := f.createInitiated(t)

	body := callbackBody(*payment.MerchantOrderID)
	rec := f.post(t, "/callbacks/phonepe", body, signature.Sign(body, "", testSaltKey, "1"))

	assert.Equal(t, http.StatusOK, rec.Code)

	got, err := f.svc.Get(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusCompleted, got.Status)
}

func TestCallbackWithBadSignatureRejected(t *testing.T) {
	f := newCallbackFixture(t, "")
	payment := f.createInitiated(t)

	body := callbackBody(*payment.MerchantOrderID)
	rec := f.post(t, "/callbacks/phonepe", body, signature.Sign(body, "", "wrong-salt", "1"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	got, err := f.svc.Get(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusInitiated, got.Status)
}

func TestCallbackWithMissingSignatureRejected(t *testing.T) {
	f := newCallbackFixture(t, "")
	payment := f.createInitiated(t)

	body := callbackBody(*payment.MerchantOrderID)
	rec := f.post(t, "/callbacks/phonepe", body, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallbackForUnknownOrderReturnsNotFound(t *testing.T) {
	f := newCallbackFixture(t, "")

	body := callbackBody("NO-SUCH-ORDER")
	rec := f.post(t, "/webhooks/phonepe", body, signature.Sign(body, "", testSaltKey, "1"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallbackWithoutCorrelationIDReturnsBadRequest(t *testing.T) {
	f := newCallbackFixture(t, "")

	body := []byte(`{"code":"PAYMENT_SUCCESS"}`)
	rec := f.post(t, "/callbacks/phonepe", body, signature.Sign(body, "", testSaltKey, "1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDuplicateCallbackStaysOK(t *testing.T) {
	f := newCallbackFixture(t, "")
	payment := f.createInitiated(t)

	body := callbackBody(*payment.MerchantOrderID)
	sig := signature.Sign(body, "", testSaltKey, "1")

	first := f.post(t, "/callbacks/phonepe", body, sig)
	second := f.post(t, "/webhooks/phonepe", body, sig)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)

	got, err := f.svc.Get(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusCompleted, got.Status)
}

func TestCallbackHonorsConfiguredVerifyContextPath(t *testing.T) {
	f := newCallbackFixture(t, "/callbacks/phonepe")
	payment := f.createInitiated(t)
	body := callbackBody(*payment.MerchantOrderID)

	rec := f.post(t, "/callbacks/phonepe", body, signature.Sign(body, "", testSaltKey, "1"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.post(t, "/callbacks/phonepe", body, signature.Sign(body, "/callbacks/phonepe", testSaltKey, "1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	got, err := f.svc.Get(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusCompleted, got.Status)
}
