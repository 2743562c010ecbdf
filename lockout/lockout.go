package lockout

import (
	"time"
	"unicode/utf8"
)

const (
	// DefaultMaxFailures is the number of failures tolerated before locking.
	DefaultMaxFailures = 3
	// DefaultLockTime is how long a lock holds.
	DefaultLockTime = 1800 * time.Second
)

// Policy holds the lockout tunables.
type Policy struct {
	MaxFailures int
	LockTime    time.Duration
}

// DefaultPolicy returns the default lockout policy.
func DefaultPolicy() Policy {
	return Policy{MaxFailures: DefaultMaxFailures, LockTime: DefaultLockTime}
}

// Login is the metadata recorded on a successful verification.
type Login struct {
	IP    string
	Agent string
	At    time.Time
}

// MaxLoginField is the longest IP or Agent, in bytes, a Login keeps.
const MaxLoginField = 255

// Clip returns l with IP and Agent cut to MaxLoginField bytes. Cuts fall on a
// rune boundary.
func (l Login) Clip() Login {
	l.IP = clip(l.IP, MaxLoginField)
	l.Agent = clip(l.Agent, MaxLoginField)
	return l
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Record is the persisted per-account lockout state. A zero LockedAt means no
// lock timestamp is set.
type Record struct {
	Failures  int
	LockedAt  time.Time
	LastLogin Login
}

// State is the outcome of a lock check.
type State uint8

const (
	// Open allows the attempt.
	Open State = iota
	// Locked rejects the attempt without evaluating the credential.
	Locked
	// Probation allows one attempt after an elapsed lock.
	Probation
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Locked:
		return "locked"
	case Probation:
		return "probation"
	default:
		return "unknown"
	}
}

// Decision is returned by Evaluate.
type Decision struct {
	State State
	// Failures is the effective failure count for this attempt.
	Failures int
	// RetryAfter is the remaining lock time when State is Locked.
	RetryAfter time.Duration
	// Stamp is set when the record exceeded the limit without a lock
	// timestamp; the caller should persist LockedAt = now.
	Stamp bool
}

// Evaluate is the lock check performed before any credential comparison.
func (p Policy) Evaluate(rec Record, exists bool, now time.Time) Decision {
	if !exists || rec.Failures <= p.MaxFailures {
		return Decision{State: Open, Failures: rec.Failures}
	}
	if rec.LockedAt.IsZero() {
		return Decision{State: Locked, Failures: rec.Failures, RetryAfter: p.LockTime, Stamp: true}
	}
	elapsed := now.Sub(rec.LockedAt)
	if elapsed <= p.LockTime {
		return Decision{State: Locked, Failures: rec.Failures, RetryAfter: p.LockTime - elapsed}
	}
	return Decision{State: Probation, Failures: p.MaxFailures}
}

// Fail returns rec after one failed attempt at now.
func (p Policy) Fail(rec Record, exists bool, now time.Time) Record {
	if !exists {
		rec = Record{}
	} else if d := p.Evaluate(rec, true, now); d.State == Probation {
		rec.Failures = d.Failures
		rec.LockedAt = time.Time{}
	}
	rec.Failures++
	if rec.Failures > p.MaxFailures && rec.LockedAt.IsZero() {
		rec.LockedAt = now
	}
	return rec
}

// Succeed returns rec after a successful attempt.
func (p Policy) Succeed(rec Record, login Login) Record {
	rec.Failures = 0
	rec.LockedAt = time.Time{}
	rec.LastLogin = login
	return rec
}

// Stamp returns rec with LockedAt set to now if it is over the limit and
// unstamped.
func (p Policy) Stamp(rec Record, now time.Time) Record {
	if rec.Failures > p.MaxFailures && rec.LockedAt.IsZero() {
		rec.LockedAt = now
	}
	return rec
}
