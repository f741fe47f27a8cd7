package payments

import "testing"

func TestVerifyCallbackSignature(t *testing.T) {
	payload := []byte(`{"event":"order_payment"}`)
	secret := "top-secret"

	validSig := SignCallback(payload, secret)
	if !VerifyCallbackSignature(payload, validSig, secret) {
		t.Fatalf("expected signature to validate")
	}
	if !VerifyCallbackSignature(payload, "sha256="+validSig, secret) {
		t.Fatalf("expected prefixed signature to validate")
	}
	if VerifyCallbackSignature(payload, "deadbeef", secret) {
		t.Fatalf("expected invalid signature to fail")
	}
	if VerifyCallbackSignature(payload, "not-hex", secret) {
		t.Fatalf("expected malformed signature to fail")
	}
	if VerifyCallbackSignature(payload, validSig, "") {
		t.Fatalf("expected empty secret to fail")
	}
	if VerifyCallbackSignature([]byte(`{"event":"tampered"}`), validSig, secret) {
		t.Fatalf("expected tampered payload to fail")
	}
}
