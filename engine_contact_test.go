package goVerify

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goVerify/pii"
)

func TestContactRoundTrip(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	acct := te.seedAccount(t, "pat@example.com", "pat-password")

	c, err := te.Contact(ctx, acct.ID)
	if err != nil || !c.Empty() {
		t.Fatalf("expected empty contact, got %+v err=%v", c, err)
	}

	want := pii.Contact{Phone: "+15550300", Address: "1 Main St"}
	if err := te.UpdateContact(ctx, acct.ID, want); err != nil {
		t.Fatalf("UpdateContact failed: %v", err)
	}
	got, err := te.Contact(ctx, acct.ID)
	if err != nil {
		t.Fatalf("Contact failed: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestDecryptContactTampered(t *testing.T) {
	te := newTestEngine(t, nil)

	blob, err := te.EncryptContact(pii.Contact{Phone: "+15550301"})
	if err != nil {
		t.Fatalf("EncryptContact failed: %v", err)
	}
	blob[len(blob)-1] ^= 0x01

	c, err := te.DecryptContact(blob)
	if err == nil {
		t.Fatal("expected tampered blob rejected")
	}
	if !c.Empty() {
		t.Fatal("expected no partial contact")
	}
}

func TestUpdateContactSMSAccountNeedsPhone(t *testing.T) {
	te := newTestEngine(t, nil)
	id, _ := newSMSAccount(t, te, "sms@example.com", "+15550302")

	err := te.UpdateContact(context.Background(), id, pii.Contact{AltEmail: "other@example.com"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestContactPIIDisabled(t *testing.T) {
	te := newTestEngine(t, func(c *Config) {
		c.PII.Enabled = false
	})

	if _, err := te.EncryptContact(pii.Contact{Phone: "+1"}); !errors.Is(err, ErrPIIDisabled) {
		t.Fatalf("expected ErrPIIDisabled, got %v", err)
	}
	if _, err := te.DecryptContact([]byte("x")); !errors.Is(err, ErrPIIDisabled) {
		t.Fatalf("expected ErrPIIDisabled, got %v", err)
	}
}
