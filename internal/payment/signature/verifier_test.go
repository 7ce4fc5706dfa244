package signature

import (
	"testing"

	"go.uber.org/zap"
)

func newVerifier(t *testing.T, cfg Config) *Verifier {
	t.Helper()
	return NewVerifier(cfg, zap.NewNop())
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	body := []byte(`{"response":"eyJjb2RlIjoiUEFZTUVOVF9TVUNDRVNTIn0="}`)
	path := "/callbacks/phonepe"

	v := newVerifier(t, Config{SaltKey: "salt", SaltIndex: "1"})
	declared := Sign(body, path, "salt", "1")

	if !v.Verify(body, declared, path) {
		t.Fatalf("expected valid signature to verify")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"code":"PAYMENT_SUCCESS"}`)
	path := "/callbacks/phonepe"

	v := newVerifier(t, Config{SaltKey: "salt", SaltIndex: "1"})
	declared := Sign(body, path, "other-salt", "1")

	if v.Verify(body, declared, path) {
		t.Fatalf("expected signature from wrong secret to fail")
	}
}

func TestVerifyRejectsMutatedBody(t *testing.T) {
	body := []byte(`{"code":"PAYMENT_SUCCESS"}`)
	path := "/callbacks/phonepe"

	v := newVerifier(t, Config{SaltKey: "salt", SaltIndex: "1"})
	declared := Sign(body, path, "salt", "1")

	mutated := []byte(`{"code":"PAYMENT_SUCCESS" }`)
	if v.Verify(mutated, declared, path) {
		t.Fatalf("expected mutated body to fail verification")
	}
}

func TestVerifyRejectsMissingSignature(t *testing.T) {
	v := newVerifier(t, Config{SaltKey: "salt", SaltIndex: "1"})
	if v.Verify([]byte(`{}`), "", "/callbacks/phonepe") {
		t.Fatalf("expected missing signature to fail")
	}
}

func TestVerifyRejectsWhenSaltMissing(t *testing.T) {
	v := newVerifier(t, Config{SaltIndex: "1"})
	declared := Sign([]byte(`{}`), "/callbacks/phonepe", "salt", "1")
	if v.Verify([]byte(`{}`), declared, "/callbacks/phonepe") {
		t.Fatalf("expected missing salt configuration to fail closed")
	}
}

func TestVerifyBypassOnlyWhenConfigured(t *testing.T) {
	v := newVerifier(t, Config{SaltKey: "salt", SaltIndex: "1", AllowUnverified: true})
	if !v.Verify([]byte(`{}`), "garbage", "/callbacks/phonepe") {
		t.Fatalf("expected bypass to accept anything")
	}
}
