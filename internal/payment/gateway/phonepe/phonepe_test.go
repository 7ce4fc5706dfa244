package phonepe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stayloop/stayloop/internal/config"
	"github.com/stayloop/stayloop/internal/payment/domain"
	"github.com/stayloop/stayloop/internal/payment/signature"
	"go.uber.org/zap"
)

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return New(config.GatewayConfig{
		Name:        "phonepe",
		BaseURL:     baseURL,
		MerchantID:  "M1",
		SaltKey:     "salt",
		SaltIndex:   "1",
		RedirectURL: "http://localhost/return",
	}, zap.NewNop())
}

func TestCreateCheckoutSuccess(t *testing.T) {
	var gotVerify string
	var gotBody struct {
		Request string `json:"request"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pg/v1/pay" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotVerify = r.Header.Get("X-VERIFY")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"code":"PAYMENT_INITIATED","data":{"instrumentResponse":{"redirectInfo":{"url":"https://pay.example/checkout/abc"}}}}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	result, err := c.CreateCheckout(context.Background(), domain.CheckoutRequest{
		MerchantOrderID: "T1",
		AmountMinor:     10000,
		RedirectURL:     "http://localhost/return",
		CallbackURL:     "http://localhost/callbacks/phonepe",
	})
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, raw: %s", result.Raw)
	}
	if result.RedirectURL != "https://pay.example/checkout/abc" {
		t.Fatalf("unexpected redirect url %q", result.RedirectURL)
	}

	wantVerify := signature.Sign([]byte(gotBody.Request), "/pg/v1/pay", "salt", "1")
	if gotVerify != wantVerify {
		t.Fatalf("expected X-VERIFY %q, got %q", wantVerify, gotVerify)
	}

	decoded, err := base64.StdEncoding.DecodeString(gotBody.Request)
	if err != nil {
		t.Fatalf("decode request payload: %v", err)
	}
	var pay map[string]any
	if err := json.Unmarshal(decoded, &pay); err != nil {
		t.Fatalf("unmarshal pay payload: %v", err)
	}
	if pay["merchantTransactionId"] != "T1" {
		t.Fatalf("expected order ref T1, got %v", pay["merchantTransactionId"])
	}
	if pay["amount"] != float64(10000) {
		t.Fatalf("expected amount 10000, got %v", pay["amount"])
	}
}

func TestCreateCheckoutGatewayRefusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"code":"BAD_REQUEST","message":"amount mismatch"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	result, err := c.CreateCheckout(context.Background(), domain.CheckoutRequest{
		MerchantOrderID: "T1",
		AmountMinor:     10000,
	})
	if err != nil {
		t.Fatalf("expected parseable refusal to not error, got %v", err)
	}
	if result.Success {
		t.Fatalf("expected refusal")
	}
	if result.Code != "BAD_REQUEST" {
		t.Fatalf("expected raw code preserved, got %q", result.Code)
	}
	if len(result.Raw) == 0 {
		t.Fatalf("expected raw payload attached")
	}
}

func TestCreateCheckoutTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.CreateCheckout(context.Background(), domain.CheckoutRequest{
		MerchantOrderID: "T1",
		AmountMinor:     10000,
	})
	if err == nil {
		t.Fatalf("expected transport-level failure for non-JSON body")
	}
}

func TestCreateCheckoutRejectsBadAmount(t *testing.T) {
	c := newClient(t, "http://localhost:0")
	_, err := c.CreateCheckout(context.Background(), domain.CheckoutRequest{MerchantOrderID: "T1"})
	if err != domain.ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	var gotPath, gotVerify string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVerify = r.Header.Get("X-VERIFY")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"code":"PAYMENT_SUCCESS","data":{"state":"COMPLETED","transactionId":"GW123"}}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	result, err := c.CheckStatus(context.Background(), "T1")
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if !result.Success || result.State != "COMPLETED" || result.Code != "PAYMENT_SUCCESS" {
		t.Fatalf("unexpected result %+v", result)
	}

	if !strings.HasSuffix(gotPath, "/pg/v1/status/M1/T1") {
		t.Fatalf("unexpected status path %s", gotPath)
	}
	wantVerify := signature.Sign(nil, "/pg/v1/status/M1/T1", "salt", "1")
	if gotVerify != wantVerify {
		t.Fatalf("expected X-VERIFY %q, got %q", wantVerify, gotVerify)
	}
}
