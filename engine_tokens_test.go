package goVerify

import (
	"errors"
	"testing"
	"time"
)

func TestActionTokens(t *testing.T) {
	te := newTestEngine(t, nil)

	tok, err := te.IssueActionToken("alice@example.com", ActionEnable)
	if err != nil {
		t.Fatalf("IssueActionToken failed: %v", err)
	}
	value, err := te.ValidateActionToken(tok, ActionEnable)
	if err != nil || value != "alice@example.com" {
		t.Fatalf("ValidateActionToken = %q, %v", value, err)
	}
	if _, err := te.ValidateActionToken(tok, ActionReset); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected other action rejected, got %v", err)
	}
	if _, err := te.ValidateTimedActionToken(tok, ActionEnable, 0); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected untimed token rejected as timed, got %v", err)
	}
}

func TestTimedActionTokens(t *testing.T) {
	te := newTestEngine(t, nil)

	tok, err := te.IssueTimedActionToken("alice@example.com", ActionInvite)
	if err != nil {
		t.Fatalf("IssueTimedActionToken failed: %v", err)
	}
	if _, err := te.ValidateActionToken(tok, ActionInvite); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected timed token rejected as untimed, got %v", err)
	}

	te.clock.Advance(59 * time.Minute)
	if value, err := te.ValidateTimedActionToken(tok, ActionInvite, 0); err != nil || value != "alice@example.com" {
		t.Fatalf("ValidateTimedActionToken = %q, %v", value, err)
	}
	if _, err := te.ValidateTimedActionToken(tok, ActionInvite, 30*time.Minute); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired with shorter max age, got %v", err)
	}

	te.clock.Advance(2 * time.Minute)
	if _, err := te.ValidateTimedActionToken(tok, ActionInvite, 0); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if got := te.MetricsSnapshot().Counters[MetricTokenRejected]; got != 3 {
		t.Fatalf("expected 3 rejected tokens, got %d", got)
	}
}

func TestMalformedActionTokens(t *testing.T) {
	te := newTestEngine(t, nil)

	for _, tok := range []string{"", "garbage", "a.b"} {
		if _, err := te.ValidateActionToken(tok, ActionEnable); !errors.Is(err, ErrValidation) {
			t.Fatalf("untimed %q: expected ErrValidation, got %v", tok, err)
		}
		if _, err := te.ValidateTimedActionToken(tok, ActionEnable, 0); !errors.Is(err, ErrValidation) {
			t.Fatalf("timed %q: expected ErrValidation, got %v", tok, err)
		}
	}

	tok, err := te.IssueActionToken("v", ActionEnable)
	if err != nil {
		t.Fatalf("IssueActionToken failed: %v", err)
	}
	if _, err := te.ValidateActionToken(tok+"x", ActionEnable); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected tampered signature to be an authentication failure, got %v", err)
	}
}
