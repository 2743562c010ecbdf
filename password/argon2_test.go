package password

import (
	"errors"
	"strings"
	"testing"
)

// Minimum cost keeps the suite fast.
func testConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T, cfg Config) *Hasher {
	t.Helper()
	h, err := NewHasher(cfg)
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t, testConfig())
	hash, err := h.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := h.Verify("P@ssw0rd-Ascii", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed: ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("wrong-password", hash)
	if err != nil || ok {
		t.Fatalf("expected wrong password to fail: ok=%v err=%v", ok, err)
	}
}

func TestPresetBindsName(t *testing.T) {
	a := Preset("alice@example.com", "hunter2")
	b := Preset("bob@example.com", "hunter2")
	if a == b {
		t.Fatal("same password under different names must differ")
	}
	if len(a) != PresetLength || strings.ToLower(a) != a {
		t.Fatalf("expected %d lower-case hex chars, got %q", PresetLength, a)
	}
	if Preset("alice@example.com", "hunter2") != a {
		t.Fatal("preset must be deterministic")
	}
}

func TestHashPresetRoundTrip(t *testing.T) {
	h := newTestHasher(t, testConfig())
	hash, err := h.HashPreset("alice@example.com", "short")
	if err != nil {
		t.Fatalf("HashPreset error: %v", err)
	}
	if ok, err := h.VerifyPreset("alice@example.com", "short", hash); err != nil || !ok {
		t.Fatalf("expected preset verification to succeed: ok=%v err=%v", ok, err)
	}
	if ok, _ := h.VerifyPreset("bob@example.com", "short", hash); ok {
		t.Fatal("hash must be bound to the account name")
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newTestHasher(t, testConfig())
	hash, err := weak.Hash("test-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	stronger := testConfig()
	stronger.Time = 2
	needs, err := newTestHasher(t, stronger).NeedsRehash(hash)
	if err != nil || !needs {
		t.Fatalf("expected rehash for weaker parameters: needs=%v err=%v", needs, err)
	}
	needs, err = weak.NeedsRehash(hash)
	if err != nil || needs {
		t.Fatalf("expected no rehash for same parameters: needs=%v err=%v", needs, err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t, testConfig())
	for _, bad := range []string{
		"not-a-phc-hash",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
	} {
		if _, err := h.Verify("password", bad); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("%q: expected ErrMalformedHash, got %v", bad, err)
		}
	}
}

func TestVerifyAcceptsPaddedEncoding(t *testing.T) {
	h := newTestHasher(t, testConfig())
	hash, err := h.Hash("padded-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	parts := strings.Split(hash, "$")
	// 16-byte salt and 32-byte key need "==" and "=" padding respectively.
	parts[4] += "=="
	parts[5] += "="
	ok, err := h.Verify("padded-password", strings.Join(parts, "$"))
	if err != nil || !ok {
		t.Fatalf("expected padded PHC to verify: ok=%v err=%v", ok, err)
	}
}

func TestInputLengthLimits(t *testing.T) {
	cfg := testConfig()
	cfg.MaxInputBytes = 64
	h := newTestHasher(t, cfg)

	if _, err := h.Hash(""); !errors.Is(err, ErrInputLength) {
		t.Fatalf("expected empty input to be rejected, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", 65)); !errors.Is(err, ErrInputLength) {
		t.Fatalf("expected long input to be rejected, got %v", err)
	}
	hash, err := h.Hash(strings.Repeat("b", 64))
	if err != nil {
		t.Fatalf("expected max-length input to be accepted: %v", err)
	}
	if _, err := h.Verify(strings.Repeat("c", 65), hash); !errors.Is(err, ErrInputLength) {
		t.Fatalf("expected long verify input to be rejected, got %v", err)
	}
}

func TestNewHasherRejectsWeakConfig(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Memory = 1024 },
		func(c *Config) { c.Time = 0 },
		func(c *Config) { c.Parallelism = 0 },
		func(c *Config) { c.SaltLength = 8 },
		func(c *Config) { c.KeyLength = 8 },
		func(c *Config) { c.MaxInputBytes = -1 },
	}
	for i, mutate := range cases {
		cfg := testConfig()
		mutate(&cfg)
		if _, err := NewHasher(cfg); err == nil {
			t.Fatalf("case %d: expected config to be rejected", i)
		}
	}
	if _, err := NewHasher(DefaultConfig()); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}
}
