package domain

import (
	"context"
	"encoding/json"
)

// CheckoutRequest describes a hosted-checkout attempt. MerchantOrderID must be
// unique per attempt; it is the correlation key for every later event.
type CheckoutRequest struct {
	MerchantOrderID string
	AmountMinor     int64
	RedirectURL     string
	CallbackURL     string
}

// CheckoutResult carries the gateway's answer. Success=false with a populated
// Raw means the gateway refused the checkout; transport failures surface as
// errors instead.
type CheckoutResult struct {
	Success     bool
	RedirectURL string
	Code        string
	Raw         json.RawMessage
}

// StatusResult is a normalized status-poll response.
type StatusResult struct {
	Success bool
	State   string
	Code    string
	Raw     json.RawMessage
}

// Gateway talks to the external payment gateway. Implementations must not
// mutate persisted records; deciding what a response means is the
// reconciler's job.
type Gateway interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	CheckStatus(ctx context.Context, merchantOrderID string) (*StatusResult, error)
}
