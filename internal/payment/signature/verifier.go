// Package signature implements the gateway's keyed-hash scheme for inbound
// callbacks and outbound requests: sha256(payload + path + saltKey) in hex,
// suffixed with "###" and the salt key index.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"
)

// Sign computes the checksum the gateway expects for the given payload and
// context path. Either payload or path may be empty depending on the call
// (checkout signs the base64 body plus path, status polls sign the path only).
func Sign(payload []byte, contextPath, saltKey, saltIndex string) string {
	h := sha256.New()
	h.Write(payload)
	h.Write([]byte(contextPath))
	h.Write([]byte(saltKey))
	return hex.EncodeToString(h.Sum(nil)) + "###" + saltIndex
}

// Verifier checks that an inbound callback body was produced by the gateway.
type Verifier struct {
	saltKey   string
	saltIndex string
	log       *zap.Logger

	// allowUnverified is the development bypass. It is injected from config,
	// which refuses to enable it in production.
	allowUnverified bool
}

type Config struct {
	SaltKey         string
	SaltIndex       string
	AllowUnverified bool
}

func NewVerifier(cfg Config, log *zap.Logger) *Verifier {
	return &Verifier{
		saltKey:         strings.TrimSpace(cfg.SaltKey),
		saltIndex:       strings.TrimSpace(cfg.SaltIndex),
		allowUnverified: cfg.AllowUnverified,
		log:             log.Named("payment.signature"),
	}
}

// Verify checks the declared signature against the checksum of the untouched
// raw body. The body must never be re-serialized before verification;
// whitespace or key-order changes would break the hash.
func (v *Verifier) Verify(rawBody []byte, declared, contextPath string) bool {
	if v.allowUnverified {
		v.log.Warn("signature verification bypassed", zap.String("path", contextPath))
		return true
	}

	declared = strings.TrimSpace(declared)
	if declared == "" {
		v.log.Warn("callback missing signature header", zap.String("path", contextPath))
		return false
	}
	if v.saltKey == "" {
		v.log.Error("gateway salt key not configured, rejecting callback")
		return false
	}

	expected := Sign(rawBody, contextPath, v.saltKey, v.saltIndex)
	if !hmac.Equal([]byte(declared), []byte(expected)) {
		v.log.Warn("callback signature mismatch", zap.String("path", contextPath))
		return false
	}
	return true
}
