package password

import (
	"errors"
	"strings"
	"testing"
)

// loginConfig mirrors the cheapest parameters the engine accepts, so the
// tests stay fast while exercising real argon2id work.
func loginConfig() Config {
	return Config{
		Memory:      minMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newHasher(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func mustHash(t *testing.T, h *Argon2, pw string) string {
	t.Helper()
	encoded, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return encoded
}

func TestHashProducesVerifiablePHC(t *testing.T) {
	h := newHasher(t, loginConfig())
	encoded := mustHash(t, h, "alice-correct-horse")

	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", encoded)
	}

	ok, err := h.Verify("alice-correct-horse", encoded)
	if err != nil || !ok {
		t.Fatalf("expected the original password to verify: ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("alice-wrong-horse!", encoded)
	if err != nil || ok {
		t.Fatalf("expected a mismatch to be (false, nil): ok=%v err=%v", ok, err)
	}
}

func TestHashSaltsEveryCall(t *testing.T) {
	h := newHasher(t, loginConfig())
	a := mustHash(t, h, "same-password-twice")
	b := mustHash(t, h, "same-password-twice")
	if a == b {
		t.Fatal("expected distinct salts for repeated hashes")
	}
}

func TestHashLengthBounds(t *testing.T) {
	cfg := loginConfig()
	cfg.MaxPasswordBytes = 64
	h := newHasher(t, cfg)

	tests := []struct {
		name string
		pw   string
		want error
	}{
		{"empty", "", ErrPasswordTooShort},
		{"under minimum", "nine-byte", ErrPasswordTooShort},
		{"at minimum", "ten-bytes!", nil},
		{"at maximum", strings.Repeat("b", 64), nil},
		{"over maximum", strings.Repeat("a", 65), ErrPasswordTooLong},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Hash(tc.pw)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestVerifyRejectsOverlongBeforeParsing(t *testing.T) {
	cfg := loginConfig()
	cfg.MaxPasswordBytes = 64
	h := newHasher(t, cfg)

	if _, err := h.Verify(strings.Repeat("c", 65), "not-even-a-hash"); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestDefaultMaxPasswordBytes(t *testing.T) {
	h := newHasher(t, loginConfig())

	if _, err := h.Hash(strings.Repeat("e", DefaultMaxPasswordBytes)); err != nil {
		t.Fatalf("expected %d bytes to be accepted: %v", DefaultMaxPasswordBytes, err)
	}
	if _, err := h.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestVerifyRejectsCorruptHashes(t *testing.T) {
	h := newHasher(t, loginConfig())
	encoded := mustHash(t, h, "stored-for-bob-123")
	parts := strings.Split(encoded, "$")

	corrupt := map[string]string{
		"not phc":        "not-a-phc-hash",
		"argon2i":        strings.Replace(encoded, "$argon2id$", "$argon2i$", 1),
		"old version":    strings.Replace(encoded, "$v=19$", "$v=18$", 1),
		"weak memory":    strings.Replace(encoded, "m=8192", "m=1024", 1),
		"unknown param":  strings.Replace(encoded, "p=1", "x=1", 1),
		"short salt":     strings.Join([]string{"", parts[1], parts[2], parts[3], "c2FsdA==", parts[5]}, "$"),
		"bad key base64": strings.Join([]string{"", parts[1], parts[2], parts[3], parts[4], "!!"}, "$"),
	}
	for name, hash := range corrupt {
		if _, err := h.Verify("stored-for-bob-123", hash); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("%s: expected ErrInvalidHash, got %v", name, err)
		}
	}
}

func TestNeedsUpgrade(t *testing.T) {
	weak := newHasher(t, loginConfig())
	encoded := mustHash(t, weak, "rehash-on-login-1")

	if up, err := weak.NeedsUpgrade(encoded); err != nil || up {
		t.Fatalf("expected current parameters to need no upgrade: up=%v err=%v", up, err)
	}

	stronger := loginConfig()
	stronger.Memory = 2 * minMemoryKB
	if up, err := newHasher(t, stronger).NeedsUpgrade(encoded); err != nil || !up {
		t.Fatalf("expected more memory to require an upgrade: up=%v err=%v", up, err)
	}

	longerKey := loginConfig()
	longerKey.KeyLength = 64
	if up, err := newHasher(t, longerKey).NeedsUpgrade(encoded); err != nil || !up {
		t.Fatalf("expected a new key length to require an upgrade: up=%v err=%v", up, err)
	}

	if _, err := weak.NeedsUpgrade("garbage"); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}

func TestNewArgon2RejectsWeakParameters(t *testing.T) {
	mutate := map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = minMemoryKB - 1 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
	}
	for name, m := range mutate {
		cfg := loginConfig()
		m(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("%s: expected NewArgon2 to reject the config", name)
		}
	}
}
