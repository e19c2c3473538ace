package webhooks

import (
	"testing"
)

func TestSign(t *testing.T) {
	secret := "secret"
	payload := []byte("payload")

	// echo -n "payload" | openssl dgst -sha256 -hmac "secret"
	expected := "b82fcb791acec57859b989b430a826488ce2e479fdf92326bd0a2e8375a42ba4"

	got := Sign(secret, payload)

	if got != expected {
		t.Errorf("Sign() = %v, want %v", got, expected)
	}
}

func TestVerify(t *testing.T) {
	payload := []byte(`{"event":"docket.processed"}`)
	sig := Sign("whsec_1", payload)

	if !Verify("whsec_1", payload, sig) {
		t.Error("Expected signature to verify")
	}
	if Verify("whsec_2", payload, sig) {
		t.Error("Expected signature under another secret to fail")
	}
	if Verify("whsec_1", []byte(`{"event":"alert.created"}`), sig) {
		t.Error("Expected signature over another payload to fail")
	}
}
