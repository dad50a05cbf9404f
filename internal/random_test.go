package internal

import (
	"encoding/base64"
	"testing"
)

func TestNewRefreshTokenShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		token, err := NewRefreshToken()
		if err != nil {
			t.Fatalf("NewRefreshToken: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(token)
		if err != nil {
			t.Fatalf("token %q is not unpadded base64url: %v", token, err)
		}
		if len(raw) != RefreshTokenRawSize {
			t.Fatalf("expected %d raw bytes, got %d", RefreshTokenRawSize, len(raw))
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate refresh token %q", token)
		}
		seen[token] = struct{}{}
	}
}

func TestFingerprintIsStableAndShort(t *testing.T) {
	a := Fingerprint("secret-value")
	if a != Fingerprint("secret-value") {
		t.Fatal("expected fingerprint to be deterministic")
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars, got %d", len(a))
	}
	if a == Fingerprint("other-value") {
		t.Fatal("expected different fingerprints for different inputs")
	}
	if Fingerprint("") != "" {
		t.Fatal("expected empty fingerprint for empty input")
	}
}
