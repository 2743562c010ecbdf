package pii

import (
	"bytes"
	"errors"
	"testing"
)

func newTestCipher(t *testing.T, secret string, opts ...Option) *Cipher {
	t.Helper()
	c, err := NewCipher([]byte(secret), opts...)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	return c
}

func TestRoundTrip(t *testing.T) {
	c := newTestCipher(t, "pii-secret")
	in := Contact{Phone: "+15555550100", AltEmail: "alt@example.com", Address: "1 Main St"}
	blob, err := c.Encrypt(in)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	var out Contact
	if err := c.Decrypt(blob, &out); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestFreshNoncePerCall(t *testing.T) {
	c := newTestCipher(t, "pii-secret")
	a, _ := c.Encrypt(Contact{Phone: "1"})
	b, _ := c.Encrypt(Contact{Phone: "1"})
	if bytes.Equal(a[:12], b[:12]) || bytes.Equal(a, b) {
		t.Fatal("two encryptions must differ")
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	c := newTestCipher(t, "pii-secret")
	blob, err := c.Encrypt(map[string]string{"phone": "555"})
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	for i := range blob {
		mutated := append([]byte(nil), blob...)
		mutated[i] ^= 0x01
		var out map[string]string
		if err := c.Decrypt(mutated, &out); !errors.Is(err, ErrCiphertext) {
			t.Fatalf("byte %d: expected ErrCiphertext, got %v", i, err)
		}
		if out != nil {
			t.Fatalf("byte %d: partial data leaked", i)
		}
	}

	var out Contact
	if err := c.Decrypt(blob[:20], &out); !errors.Is(err, ErrCiphertext) {
		t.Fatalf("short blob: expected ErrCiphertext, got %v", err)
	}
	if err := c.Decrypt(nil, &out); !errors.Is(err, ErrCiphertext) {
		t.Fatalf("nil blob: expected ErrCiphertext, got %v", err)
	}
}

func TestDecryptRejectsOtherKeys(t *testing.T) {
	blob, err := newTestCipher(t, "one").Encrypt(Contact{Phone: "1"})
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	var out Contact
	if err := newTestCipher(t, "two").Decrypt(blob, &out); !errors.Is(err, ErrCiphertext) {
		t.Fatalf("expected ErrCiphertext for other secret, got %v", err)
	}
	if err := newTestCipher(t, "one", WithInfo("other.info")).Decrypt(blob, &out); !errors.Is(err, ErrCiphertext) {
		t.Fatalf("expected ErrCiphertext for other info, got %v", err)
	}
	if err := newTestCipher(t, "one", WithSalt([]byte("other-salt"))).Decrypt(blob, &out); !errors.Is(err, ErrCiphertext) {
		t.Fatalf("expected ErrCiphertext for other salt, got %v", err)
	}
}

func TestDecryptPayloadMismatch(t *testing.T) {
	c := newTestCipher(t, "pii-secret")
	blob, err := c.Encrypt([]int{1, 2, 3})
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	var out Contact
	if err := c.Decrypt(blob, &out); !errors.Is(err, ErrPayload) {
		t.Fatalf("expected ErrPayload, got %v", err)
	}
}

func TestDecryptFailureLeavesOutUntouched(t *testing.T) {
	c := newTestCipher(t, "pii-secret")
	blob, err := c.Encrypt(map[string]any{"phone": "+15550300", "alt_email": 7})
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	out := Contact{Phone: "+15550999"}
	if err := c.Decrypt(blob, &out); !errors.Is(err, ErrPayload) {
		t.Fatalf("expected ErrPayload, got %v", err)
	}
	if out != (Contact{Phone: "+15550999"}) {
		t.Fatalf("out changed on error: %+v", out)
	}

	if err := c.Decrypt(blob, out); !errors.Is(err, ErrPayload) {
		t.Fatalf("expected ErrPayload for non-pointer target, got %v", err)
	}

	good, _ := c.Encrypt(Contact{Address: "1 Main St"})
	if err := c.Decrypt(good, &out); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if out != (Contact{Address: "1 Main St"}) {
		t.Fatalf("expected decoded value to replace out, got %+v", out)
	}
}

func TestNewCipherRequiresSecret(t *testing.T) {
	if _, err := NewCipher(nil); err == nil {
		t.Fatal("expected empty secret to fail")
	}
}

func TestDefaultSaltLength(t *testing.T) {
	if len(DefaultSalt) != 32 {
		t.Fatalf("expected 32-byte default salt, got %d", len(DefaultSalt))
	}
}
