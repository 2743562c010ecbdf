package session

import (
	"time"

	"github.com/MrEthical07/goVerify/lockout"
)

// Session is the stored lockout state for one account.
type Session struct {
	SchemaVersion uint8
	AccountID     string

	Failures uint32
	// LockedAt is unix seconds; zero means unset.
	LockedAt int64

	LoginIP    string
	LoginAgent string
	LoginAt    int64
}

// FromRecord builds a Session for accountID from rec. Login metadata longer
// than lockout.MaxLoginField is clipped to fit the encoding.
func FromRecord(accountID string, rec lockout.Record) *Session {
	login := rec.LastLogin.Clip()
	s := &Session{
		SchemaVersion: CurrentSchemaVersion,
		AccountID:     accountID,
		LoginIP:       login.IP,
		LoginAgent:    login.Agent,
	}
	if rec.Failures > 0 {
		s.Failures = uint32(rec.Failures)
	}
	if !rec.LockedAt.IsZero() {
		s.LockedAt = rec.LockedAt.Unix()
	}
	if !rec.LastLogin.At.IsZero() {
		s.LoginAt = rec.LastLogin.At.Unix()
	}
	return s
}

// Record converts s back to a lockout.Record.
func (s *Session) Record() lockout.Record {
	rec := lockout.Record{
		Failures: int(s.Failures),
		LastLogin: lockout.Login{
			IP:    s.LoginIP,
			Agent: s.LoginAgent,
		},
	}
	if s.LockedAt != 0 {
		rec.LockedAt = time.Unix(s.LockedAt, 0)
	}
	if s.LoginAt != 0 {
		rec.LastLogin.At = time.Unix(s.LoginAt, 0)
	}
	return rec
}
