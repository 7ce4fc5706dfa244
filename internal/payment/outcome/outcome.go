// Package outcome normalizes the gateway's outcome vocabulary. The gateway
// reports the same logical value under different field names depending on
// whether the payload came from a callback, a webhook or a status poll, so
// extraction is an ordered list of field paths tried until one is present.
package outcome

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

type Outcome string

const (
	Success Outcome = "success"
	Failure Outcome = "failure"
	Pending Outcome = "pending"
	Unknown Outcome = "unknown"
)

// vocabulary is the single canonical mapping of gateway tokens. Unrecognized
// tokens classify as Unknown, which leaves the payment in its current state.
var vocabulary = map[string]Outcome{
	"PAYMENT_SUCCESS":       Success,
	"SUCCESS":               Success,
	"COMPLETED":             Success,
	"PAYMENT_ERROR":         Failure,
	"PAYMENT_DECLINED":      Failure,
	"FAILED":                Failure,
	"INTERNAL_SERVER_ERROR": Failure,
	"TIMED_OUT":             Failure,
	"PAYMENT_PENDING":       Pending,
	"PENDING":               Pending,
}

type extractor func(map[string]any) (string, bool)

// Extraction order is fixed: top-level code, then data.state, then data.code.
// The first present value wins.
var extractors = []extractor{
	topLevelCode,
	dataState,
	dataCode,
}

// Extract returns the first recognized outcome token in the payload and its
// classification. A payload with no token in any known location returns
// ("", Unknown).
func Extract(raw []byte) (string, Outcome) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", Unknown
	}
	for _, ex := range extractors {
		if token, ok := ex(doc); ok {
			return token, Classify(token)
		}
	}
	return "", Unknown
}

// Classify maps a gateway token onto the canonical outcome.
func Classify(token string) Outcome {
	normalized := strings.ToUpper(strings.TrimSpace(token))
	if normalized == "" {
		return Unknown
	}
	if outcome, ok := vocabulary[normalized]; ok {
		return outcome
	}
	return Unknown
}

// CorrelationID returns the merchant order id referenced by the payload,
// probing the known field locations in priority order.
func CorrelationID(raw []byte) string {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	if v, ok := stringField(doc, "merchantTransactionId"); ok {
		return v
	}
	if data, ok := doc["data"].(map[string]any); ok {
		if v, ok := stringField(data, "merchantTransactionId"); ok {
			return v
		}
		if v, ok := stringField(data, "transactionId"); ok {
			return v
		}
	}
	if v, ok := stringField(doc, "transactionId"); ok {
		return v
	}
	return ""
}

// DecodeEnvelope unwraps the callback envelope: the gateway POSTs
// {"response": "<base64 JSON>"}. Payloads without the envelope are returned
// as-is. Decoding happens only after signature verification, which must see
// the original raw bytes.
func DecodeEnvelope(raw []byte) []byte {
	var envelope struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return raw
	}
	if strings.TrimSpace(envelope.Response) == "" {
		return raw
	}
	decoded, err := base64.StdEncoding.DecodeString(envelope.Response)
	if err != nil {
		return raw
	}
	return decoded
}

func topLevelCode(doc map[string]any) (string, bool) {
	return stringField(doc, "code")
}

func dataState(doc map[string]any) (string, bool) {
	data, ok := doc["data"].(map[string]any)
	if !ok {
		return "", false
	}
	return stringField(data, "state")
}

func dataCode(doc map[string]any) (string, bool) {
	data, ok := doc["data"].(map[string]any)
	if !ok {
		return "", false
	}
	return stringField(data, "code")
}

func stringField(doc map[string]any, key string) (string, bool) {
	v, ok := doc[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}
