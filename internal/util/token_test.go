package util

import "testing"

func TestResetTokenRoundTrip(t *testing.T) {
	raw, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(raw))
	}

	stored := HashResetToken(raw)
	if !VerifyResetToken(raw, stored) {
		t.Fatal("expected token to verify against its own digest")
	}

	other, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if VerifyResetToken(other, stored) {
		t.Fatal("expected a different token to fail verification")
	}
	if VerifyResetToken("", stored) {
		t.Fatal("expected empty token to fail verification")
	}
}
