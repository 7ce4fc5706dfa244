// Package phonepe implements the hosted-checkout gateway client. It only
// talks to the network; interpreting responses and mutating records is the
// reconciler's job.
package phonepe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stayloop/stayloop/internal/config"
	"github.com/stayloop/stayloop/internal/payment/domain"
	"github.com/stayloop/stayloop/internal/payment/signature"
	"go.uber.org/zap"
)

const (
	payPath    = "/pg/v1/pay"
	statusPath = "/pg/v1/status"

	requestTimeout = 15 * time.Second
)

type Client struct {
	http *http.Client
	cfg  config.GatewayConfig
	log  *zap.Logger
}

func New(cfg config.GatewayConfig, log *zap.Logger) *Client {
	return &Client{
		http: &http.Client{Timeout: requestTimeout},
		cfg:  cfg,
		log:  log.Named("payment.gateway.phonepe"),
	}
}

func (c *Client) Name() string { return c.cfg.Name }

type payRequest struct {
	MerchantID            string        `json:"merchantId"`
	MerchantTransactionID string        `json:"merchantTransactionId"`
	Amount                int64         `json:"amount"`
	RedirectURL           string        `json:"redirectUrl"`
	RedirectMode          string        `json:"redirectMode"`
	CallbackURL           string        `json:"callbackUrl"`
	PaymentInstrument     payInstrument `json:"paymentInstrument"`
}

type payInstrument struct {
	Type string `json:"type"`
}

type payResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Data    struct {
		InstrumentResponse struct {
			RedirectInfo struct {
				URL string `json:"url"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

// CreateCheckout asks the gateway for a hosted-checkout redirect URL. Gateway
// refusals (parseable error bodies) come back with Success=false and the raw
// payload attached; only transport-level failures return an error.
func (c *Client) CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	if req.AmountMinor <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if strings.TrimSpace(req.MerchantOrderID) == "" {
		return nil, domain.ErrInvalidState
	}

	payload, err := json.Marshal(payRequest{
		MerchantID:            c.cfg.MerchantID,
		MerchantTransactionID: req.MerchantOrderID,
		Amount:                req.AmountMinor,
		RedirectURL:           req.RedirectURL,
		RedirectMode:          "REDIRECT",
		CallbackURL:           req.CallbackURL,
		PaymentInstrument:     payInstrument{Type: "PAY_PAGE"},
	})
	if err != nil {
		return nil, err
	}

	encoded := base64.StdEncoding.EncodeToString(payload)
	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+payPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", signature.Sign([]byte(encoded), payPath, c.cfg.SaltKey, c.cfg.SaltIndex))

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var resp payResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed checkout response: %w", err)
	}

	result := &domain.CheckoutResult{
		Success: resp.Success,
		Code:    resp.Code,
		Raw:     raw,
	}
	if resp.Success {
		result.RedirectURL = resp.Data.InstrumentResponse.RedirectInfo.URL
	} else {
		c.log.Warn("gateway refused checkout",
			zap.String("merchant_order_id", req.MerchantOrderID),
			zap.String("code", resp.Code),
		)
	}
	return result, nil
}

type statusResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Data    struct {
		State string `json:"state"`
	} `json:"data"`
}

// CheckStatus polls the gateway for the current state of an order. Same error
// contract as CreateCheckout.
func (c *Client) CheckStatus(ctx context.Context, merchantOrderID string) (*domain.StatusResult, error) {
	if strings.TrimSpace(merchantOrderID) == "" {
		return nil, domain.ErrNotInitiated
	}

	path := fmt.Sprintf("%s/%s/%s", statusPath, c.cfg.MerchantID, merchantOrderID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-MERCHANT-ID", c.cfg.MerchantID)
	httpReq.Header.Set("X-VERIFY", signature.Sign(nil, path, c.cfg.SaltKey, c.cfg.SaltIndex))

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var resp statusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed status response: %w", err)
	}

	return &domain.StatusResult{
		Success: resp.Success,
		State:   resp.Data.State,
		Code:    resp.Code,
		Raw:     raw,
	}, nil
}

// do executes the request and returns the response body for any status code
// whose body is valid JSON. Unparseable bodies are transport failures.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("gateway returned non-JSON body with status %d", resp.StatusCode)
	}
	return raw, nil
}
